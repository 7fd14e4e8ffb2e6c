package feed

import "errors"

// ErrDecode is returned when a message payload is not a score change.
var ErrDecode = errors.New("decode score change")
