package engine

import (
	"errors"
	"fmt"
)

// Sentinel errors for each resolution failure. A *ResolutionError unwraps to
// one of these.
var (
	ErrTemplateNotFound = errors.New("template not found")
	ErrSourceNotFound   = errors.New("source element not found")
	ErrBadImageID       = errors.New("malformed image id")
)

// ResolutionError reports a replacement whose source could not be located.
// It aborts the build of the current variant.
type ResolutionError struct {
	Kind     error
	DestID   string
	SourceID string
	Path     string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("replace %q with %q from %q: %v", e.DestID, e.SourceID, e.Path, e.Kind)
}

func (e *ResolutionError) Unwrap() error {
	return e.Kind
}

// IsResolutionError reports whether err is or wraps a *ResolutionError.
func IsResolutionError(err error) bool {
	var re *ResolutionError
	return errors.As(err, &re)
}
