package opt

import "fmt"

// ErrorKind names a class of engine failure. The string value is what the
// invocation boundary reports in the "error" field.
type ErrorKind string

const (
	KindInvalidGraph     ErrorKind = "InvalidGraphError"
	KindUnsupportedGraph ErrorKind = "UnsupportedGraphError"
	KindNoPath           ErrorKind = "NoPathError"
	KindNegativeCycle    ErrorKind = "NegativeCycleError"
	KindInfeasibleWindow ErrorKind = "InfeasibleWindowError"
	KindCapacityExceeded ErrorKind = "CapacityExceededError"
	KindInvalidRequest   ErrorKind = "InvalidRequestError"
	KindInternal         ErrorKind = "InternalError"
)

// Error is the single error type returned by the engine.
// Ref carries the offending reference (node id, edge, delivery id) when known.
type Error struct {
	Kind    ErrorKind
	Message string
	Ref     string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Message
}

// Is matches any *Error of the same kind, so callers can test against the
// sentinels below with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrInvalidGraph     = &Error{Kind: KindInvalidGraph}
	ErrUnsupportedGraph = &Error{Kind: KindUnsupportedGraph}
	ErrNoPath           = &Error{Kind: KindNoPath}
	ErrNegativeCycle    = &Error{Kind: KindNegativeCycle}
	ErrInfeasibleWindow = &Error{Kind: KindInfeasibleWindow}
	ErrCapacityExceeded = &Error{Kind: KindCapacityExceeded}
	ErrInvalidRequest   = &Error{Kind: KindInvalidRequest}
)

func newError(kind ErrorKind, ref, format string, args ...any) *Error {
	return &Error{Kind: kind, Ref: ref, Message: fmt.Sprintf(format, args...)}
}

// InvalidGraphf builds an InvalidGraphError naming ref.
func InvalidGraphf(ref, format string, args ...any) *Error {
	return newError(KindInvalidGraph, ref, format, args...)
}

// InvalidRequestf builds an InvalidRequestError naming ref.
func InvalidRequestf(ref, format string, args ...any) *Error {
	return newError(KindInvalidRequest, ref, format, args...)
}
