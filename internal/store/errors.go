package store

import "errors"

// ErrNotFound is returned when a referenced record does not exist or
// does not belong to the caller.
var ErrNotFound = errors.New("record not found")
