package transport

import (
	"context"
	"errors"
	"fmt"
)

// Error taxonomy. Drivers, the scan controller and the connection
// orchestrator only ever surface errors that unwrap to one of these.
var (
	// ErrRadioUnavailable means the radio is off or absent. Not retriable
	// until the user acts.
	ErrRadioUnavailable = errors.New("radio unavailable")

	// ErrDriverFailure is a transient radio failure (e.g. scan throttling).
	ErrDriverFailure = errors.New("driver failure")

	// ErrNotConnected means an operation required a connected peer.
	ErrNotConnected = errors.New("not connected")

	// ErrConnectFailure means connecting failed after all retries.
	ErrConnectFailure = errors.New("connect failure")

	// ErrPeerUnknown means the peer is not in the registry.
	ErrPeerUnknown = errors.New("peer unknown")

	// ErrTimeout means an operation exceeded its time budget.
	ErrTimeout = errors.New("operation timed out")

	// ErrInternal is an unexpected failure.
	ErrInternal = errors.New("internal error")
)

// Code is the machine-readable error code carried to the host.
type Code string

// Error codes.
const (
	CodeRadioUnavailable Code = "RADIO_UNAVAILABLE"
	CodeDriverFailure    Code = "DRIVER_FAILURE"
	CodeNotConnected     Code = "NOT_CONNECTED"
	CodeConnectFailure   Code = "CONNECT_FAILURE"
	CodePeerUnknown      Code = "PEER_UNKNOWN"
	CodeTimeout          Code = "TIMEOUT"
	CodeInternal         Code = "INTERNAL"
)

var codeSentinels = []struct {
	code Code
	err  error
}{
	{CodeRadioUnavailable, ErrRadioUnavailable},
	{CodeDriverFailure, ErrDriverFailure},
	{CodeNotConnected, ErrNotConnected},
	{CodeConnectFailure, ErrConnectFailure},
	{CodePeerUnknown, ErrPeerUnknown},
	{CodeTimeout, ErrTimeout},
	{CodeInternal, ErrInternal},
}

// Error is a structured transport error: TRANSPORT_ERROR{transport} with a
// machine code and a human-readable message.
type Error struct {
	Transport Kind
	Code      Code
	Message   string

	// Err is the taxonomy sentinel, optionally wrapping a cause.
	Err error
}

// NewError builds an Error whose code is derived from the sentinel kind.
func NewError(k Kind, kind error, message string) *Error {
	return &Error{
		Transport: k,
		Code:      codeOf(kind),
		Message:   message,
		Err:       kind,
	}
}

// WrapError builds an Error for kind that also records cause.
func WrapError(k Kind, kind error, message string, cause error) *Error {
	e := NewError(k, kind, message)
	if cause != nil {
		e.Err = fmt.Errorf("%w: %w", kind, cause)
	}
	return e
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %s", e.Transport.ErrorDomain(), e.Code)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Transport.ErrorDomain(), e.Message, e.Code)
}

// Unwrap returns the taxonomy sentinel.
func (e *Error) Unwrap() error {
	return e.Err
}

func codeOf(kind error) Code {
	for _, cs := range codeSentinels {
		if errors.Is(kind, cs.err) {
			return cs.code
		}
	}
	return CodeInternal
}

// CodeOf returns the code for any error; unknown errors map to CodeInternal
// and nil maps to "".
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var te *Error
	if errors.As(err, &te) {
		return te.Code
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CodeTimeout
	}
	return codeOf(err)
}

// Retriable reports whether the caller may retry the failed operation
// without user action.
func Retriable(err error) bool {
	switch CodeOf(err) {
	case CodeDriverFailure, CodeTimeout, CodeConnectFailure:
		return true
	}
	return false
}

// FromContext converts a context error into a TIMEOUT error for k.
// It returns nil when ctx is not done.
func FromContext(k Kind, ctx context.Context, op string) error {
	switch ctx.Err() {
	case nil:
		return nil
	case context.DeadlineExceeded:
		return NewError(k, ErrTimeout, op+" timed out")
	default:
		return WrapError(k, ErrTimeout, op+" cancelled", ctx.Err())
	}
}
