// Package failure holds the error type shared by components that call out to
// collaborators they do not own (catalog sources, order registries, senders).
package failure

import (
	"errors"
	"fmt"
)

// ExternalError reports that a collaborator was unavailable or failed.
// Callers decide whether to degrade or surface it.
type ExternalError struct {
	Op  string
	Err error
}

func (e *ExternalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ExternalError) Unwrap() error { return e.Err }

// External wraps err as an ExternalError. A nil err stays nil.
func External(op string, err error) error {
	if err == nil {
		return nil
	}
	return &ExternalError{Op: op, Err: err}
}

// IsExternal reports whether err carries an ExternalError anywhere in its chain.
func IsExternal(err error) bool {
	var ext *ExternalError
	return errors.As(err, &ext)
}
