package bucket

import "errors"

var (
	// ErrLocked is returned when Open finds an existing lockfile in the
	// bucket directory, meaning another process already holds it open for
	// writing.
	ErrLocked = errors.New("bucket: a lockfile already exists")
	// ErrReadOnly is returned by Insert against a bucket opened with
	// WithReadOnly.
	ErrReadOnly = errors.New("bucket: insert not allowed in read-only mode")
	// ErrEmptyKey is returned when Read is given an empty key.
	ErrEmptyKey = errors.New("bucket: empty key")
)
