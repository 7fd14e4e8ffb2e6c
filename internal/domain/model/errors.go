package model

import "errors"

// ErrInvalidRecord is returned when a record fails boundary validation.
var ErrInvalidRecord = errors.New("invalid record")
