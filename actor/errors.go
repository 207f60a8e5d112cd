package actor

import "fmt"

// Fault wraps any value thrown out of a message handler into a stable error
// with a deterministic string form (spec.md §7 "Non-Error thrown value").
// Go handlers only ever return errors, so Fault is mostly exercised when a
// handler panics with a non-error value; NewFault normalizes that case.
type Fault struct {
	Handler string
	cause   error
}

// NewFault wraps an arbitrary recovered panic value as a Fault.
func NewFault(handler string, recovered interface{}) *Fault {
	if err, ok := recovered.(error); ok {
		return &Fault{Handler: handler, cause: err}
	}
	return &Fault{Handler: handler, cause: fmt.Errorf("%v", recovered)}
}

func (f *Fault) Error() string {
	return fmt.Sprintf("actor: handler %q failed: %v", f.Handler, f.cause)
}

// Unwrap exposes the underlying cause for errors.Is/errors.As.
func (f *Fault) Unwrap() error { return f.cause }

// ErrStopped is returned when a caller addresses a stopped actor in a way
// that requires a synchronous answer (e.g. Ask against a dead PID).
type ErrStopped struct {
	Address string
}

func (e *ErrStopped) Error() string {
	return fmt.Sprintf("actor: %s is stopped", e.Address)
}

// ErrTimeout is returned by stop(timeout) when shutdown does not complete
// within the deadline (spec.md §4.5).
type ErrTimeout struct {
	Address string
}

func (e *ErrTimeout) Error() string {
	return fmt.Sprintf("actor: %s did not stop within the timeout", e.Address)
}

// ErrUnhandledMessage is a convenience error actors may return from Receive
// when a type switch falls through to default; not required by the
// runtime, but it gives dead letters and supervision alike a stable
// message.
type ErrUnhandledMessage struct {
	MessageType string
}

func (e *ErrUnhandledMessage) Error() string {
	return fmt.Sprintf("actor: unhandled message type %s", e.MessageType)
}
