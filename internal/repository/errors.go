package repository

import "errors"

// ErrNotFound is returned when a lookup matches no row. Callers must be able
// to tell a missing record apart from a store failure.
var ErrNotFound = errors.New("record not found")
