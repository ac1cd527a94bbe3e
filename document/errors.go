package document

import (
	"errors"
	"fmt"
)

// ErrNoActiveDocument is returned when an operation needs an application
// and none has been loaded.
var ErrNoActiveDocument = errors.New("no application loaded")

// ErrInvalidSource is returned for a version source other than user or ai.
var ErrInvalidSource = errors.New("invalid version source")

// NotFoundError reports an unknown question, version or logframe element.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func notFound(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
