package boltstore

import "errors"

// Sentinel kinds for key/value store errors.
var (
	ErrNotFound   = errors.New("record not found")
	ErrEmptyName  = errors.New("record has no name")
	ErrBadPayload = errors.New("stored value is not a record")
)
