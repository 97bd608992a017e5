package storage

import "errors"

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("storage: not found")

// ErrVersionConflict is returned when an optimistic version check fails:
// the row changed between read and write. Callers re-read and retry.
var ErrVersionConflict = errors.New("storage: version conflict")
