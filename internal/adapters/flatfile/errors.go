package flatfile

import (
	"errors"
	"fmt"
)

// Sentinel kinds for record pipeline failures.
var (
	ErrEmptyLine     = errors.New("empty line")
	ErrMalformedUUID = errors.New("malformed uuid")
	ErrSchemaTooOld  = errors.New("record predates versioned schema")
	ErrBuildRecord   = errors.New("cannot build record")
)

// DecodeError ties a pipeline failure to the record it came from.
type DecodeError struct {
	Name string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("record %q: %v", e.Name, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
