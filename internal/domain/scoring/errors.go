package scoring

import "errors"

// ErrOverflow is returned when a total is not a finite number.
var ErrOverflow = errors.New("score total overflows")
