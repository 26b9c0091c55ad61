// Package wassetteerr defines the error taxonomy shared by every
// subsystem: each failure carries a Kind that the MCP surface maps to
// either a JSON-RPC error object or a tool result with isError: true.
package wassetteerr

import "fmt"

// Kind classifies a failure for the purposes of MCP error mapping.
type Kind string

const (
	Parse       Kind = "Parse"
	Validation  Kind = "Validation"
	Resolve     Kind = "Resolve"
	Compile     Kind = "Compile"
	Instantiate Kind = "Instantiate"
	Invoke      Kind = "Invoke"
	NotFound    Kind = "NotFound"
	Conflict    Kind = "Conflict"
	Internal    Kind = "Internal"
)

// Error is the taxonomy-tagged error every subsystem returns.
type Error struct {
	Kind    Kind
	Op      string // operation that failed, e.g. "load-component"
	Reason  string // stable sub-reason, e.g. "ResolveFailed", "InvalidCIDR"
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Op, e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs an Error of the given kind.
func New(kind Kind, op, reason, message string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Reason: reason, Message: message, Err: cause}
}

func Parsef(op, reason, format string, args ...any) *Error {
	return New(Parse, op, reason, fmt.Sprintf(format, args...), nil)
}

func Validationf(op, reason, format string, args ...any) *Error {
	return New(Validation, op, reason, fmt.Sprintf(format, args...), nil)
}

func NotFoundf(op, format string, args ...any) *Error {
	return New(NotFound, op, "NotFound", fmt.Sprintf(format, args...), nil)
}

func Conflictf(op, format string, args ...any) *Error {
	return New(Conflict, op, "Conflict", fmt.Sprintf(format, args...), nil)
}

func Internalf(op string, cause error, format string, args ...any) *Error {
	return New(Internal, op, "Internal", fmt.Sprintf(format, args...), cause)
}

// KindOf extracts the Kind from err, defaulting to Internal when err does
// not carry one.
func KindOf(err error) Kind {
	var e *Error
	for err != nil {
		if as, ok := err.(*Error); ok {
			e = as
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	if e == nil {
		return Internal
	}
	return e.Kind
}
