// Package fault defines the error taxonomy shared by the value pipeline.
//
// Every failure surfaced by the bridge, the importers, the session builder
// and the compile driver carries a Kind. Callers branch on the kind with
// errors.Is against the exported sentinels, or with KindOf:
//
//	if errors.Is(err, fault.ErrMalformedInput) { ... }
//
// Nothing in this package retries or downgrades an error.
package fault

import (
	"errors"
	"fmt"
	"strings"
)

// Kind categorizes a failure.
type Kind string

const (
	// KindUnsupportedHostType indicates a host value with no tagged-value form.
	KindUnsupportedHostType Kind = "UNSUPPORTED_HOST_TYPE"

	// KindDepthExceeded indicates nesting beyond the configured bound.
	KindDepthExceeded Kind = "DEPTH_EXCEEDED"

	// KindReferenceCycle indicates a host structure that contains itself.
	KindReferenceCycle Kind = "REFERENCE_CYCLE"

	// KindInvalidUTF8 indicates a text payload that is not valid UTF-8.
	KindInvalidUTF8 Kind = "INVALID_UTF8"

	// KindUnrepresentable indicates a value the target model cannot hold
	// (non-finite floats, integers beyond int64).
	KindUnrepresentable Kind = "UNREPRESENTABLE"

	// KindMalformedInput indicates a JSON, CSV or YAML payload that cannot be decoded.
	KindMalformedInput Kind = "MALFORMED_INPUT"

	// KindInvalidName indicates a binding name templates cannot reference.
	KindInvalidName Kind = "INVALID_NAME"

	// KindNoBody indicates a compile attempted without a template body.
	KindNoBody Kind = "NO_BODY"

	// KindCompileFailed indicates the compiler rejected the environment.
	KindCompileFailed Kind = "COMPILE_FAILED"
)

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrUnsupportedHostType = &Error{Kind: KindUnsupportedHostType}
	ErrDepthExceeded       = &Error{Kind: KindDepthExceeded}
	ErrReferenceCycle      = &Error{Kind: KindReferenceCycle}
	ErrInvalidUTF8         = &Error{Kind: KindInvalidUTF8}
	ErrUnrepresentable     = &Error{Kind: KindUnrepresentable}
	ErrMalformedInput      = &Error{Kind: KindMalformedInput}
	ErrInvalidName         = &Error{Kind: KindInvalidName}
	ErrNoBody              = &Error{Kind: KindNoBody}
	ErrCompileFailed       = &Error{Kind: KindCompileFailed}
)

// Error is a classified failure.
//
// Path locates the offending node inside a value tree ("rows[3].name").
// Line and Column are 1-based positions inside a decoded payload; zero
// means unknown. Offset is a byte offset, or -1 when unknown.
type Error struct {
	Kind    Kind
	Message string
	Path    string
	Line    int
	Column  int
	Offset  int64
	Err     error
}

// New creates an Error with no location.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Offset: -1}
}

// At creates an Error located at a value-tree path.
func At(kind Kind, path string, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Path: path, Offset: -1}
}

// Wrap creates an Error that keeps err as its cause.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Offset: -1, Err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Path != "" {
		fmt.Fprintf(&b, " (at %s)", e.Path)
	}
	switch {
	case e.Line > 0 && e.Column > 0:
		fmt.Fprintf(&b, " (line %d, column %d)", e.Line, e.Column)
	case e.Line > 0:
		fmt.Fprintf(&b, " (line %d)", e.Line)
	case e.Offset >= 0:
		fmt.Fprintf(&b, " (offset %d)", e.Offset)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a sentinel of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Path == ""
}

// Classified is implemented by errors that belong to the taxonomy but are
// not *Error values (compiler.CompileError).
type Classified interface {
	error
	Kind() Kind
}

// KindOf returns the kind of err, or "" when err is unclassified.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	var ce Classified
	if errors.As(err, &ce) {
		return ce.Kind()
	}
	return ""
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsMalformedInput returns true if err is a decode failure.
func IsMalformedInput(err error) bool {
	return Is(err, KindMalformedInput)
}

// IsDepthExceeded returns true if err is a nesting-bound failure.
func IsDepthExceeded(err error) bool {
	return Is(err, KindDepthExceeded)
}

// IsNoBody returns true if err reports a missing template body.
func IsNoBody(err error) bool {
	return Is(err, KindNoBody)
}

// IsCompileFailed returns true if err carries compiler diagnostics.
func IsCompileFailed(err error) bool {
	return Is(err, KindCompileFailed)
}

// JoinPath appends a mapping key to a value-tree path.
func JoinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

// IndexPath appends a sequence index to a value-tree path.
func IndexPath(path string, i int) string {
	return fmt.Sprintf("%s[%d]", path, i)
}
