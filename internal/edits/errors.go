package edits

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors, one per parse failure kind. A *ParseError unwraps to the
// sentinel for its kind so callers can use errors.Is.
var (
	ErrMalformed            = errors.New("malformed declaration")
	ErrDuplicateKey         = errors.New("duplicate key")
	ErrDuplicateNestedKey   = errors.New("duplicate nested key")
	ErrDuplicateDestination = errors.New("duplicate destination")
	ErrUnknownDestination   = errors.New("unknown destination")
)

// ParseError reports a declaration that could not be added to a spec. No
// partial spec is returned alongside it.
type ParseError struct {
	Kind    error
	Source  string
	Line    int
	Variant string
	Key     string
	Message string
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString("parse ")
	if e.Source != "" {
		b.WriteString(e.Source)
	} else {
		b.WriteString("edits")
	}
	if e.Line > 0 {
		fmt.Fprintf(&b, " line %d", e.Line)
	}
	if e.Variant != "" {
		fmt.Fprintf(&b, " (%s)", e.Variant)
	}
	b.WriteString(": ")
	b.WriteString(e.Kind.Error())
	if e.Key != "" {
		fmt.Fprintf(&b, " %q", e.Key)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

func (e *ParseError) Unwrap() error {
	return e.Kind
}

// IsParseError reports whether err is or wraps a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
