package actor

import "github.com/lguibr/actorstage/address"

// Message is the tuple described in spec.md §3: a target address, a method
// selector, an argument tuple, and the deferred result the caller observes.
// Go's idiomatic equivalent of "selector + argument tuple" is a single
// typed payload value (a struct per operation, as every actor library in
// the retrieval pack does it — see SPEC_FULL §0): the payload's dynamic
// type IS the selector, its fields ARE the arguments. Actor.Receive
// recovers both with a type switch.
type Message struct {
	Target  address.Address
	Payload interface{}
	future  *Future
}

// controlKind distinguishes the internal lifecycle messages a process's run
// loop recognizes before handing anything to user code (mirrors the
// teacher's Started/Stopping/Stopped system messages). Restart and Resume
// directives are applied directly by the supervisor instead of travelling
// through this channel: supervision runs on the faulting actor's own
// dispatch goroutine after its mailbox has been suspended, so no other
// message of that actor is in flight (see applyRestart/applyResume in
// process.go). Stop still has to go through the mailbox so
// it is ordered after any messages already queued ahead of it.
type controlKind int

const (
	controlStop controlKind = iota
)

// controlMessage carries a lifecycle instruction through the same mailbox
// user messages travel, preserving FIFO between control and user traffic
// (spec.md §4.5 "Running -- stop enqueued --> Stopping").
type controlMessage struct {
	kind    controlKind
	timeout *Future // resolved when the control operation completes
}

// envelope is what actually lives in the Mailbox: either a user Message or
// a controlMessage, tagged for the run loop's switch.
type envelope struct {
	message *Message
	control *controlMessage
	sender  address.Address
}

// IsControl implements mailbox.ControlEnvelope: a suspended mailbox still
// surrenders a queued control envelope to the dispatcher (spec.md §4.5
// step 1, "blocks new user work but allows internal control").
func (e *envelope) IsControl() bool { return e.control != nil }
