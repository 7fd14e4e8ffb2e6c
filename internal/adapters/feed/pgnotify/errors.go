package pgnotify

import "errors"

// ErrPayload is returned for notifications that are not change payloads.
var ErrPayload = errors.New("malformed notification payload")
