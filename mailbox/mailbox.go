// Package mailbox implements the per-actor FIFO queue described in spec.md
// §3/§4.2: an unbounded variant and a bounded variant with three overflow
// policies, suspend/resume/close semantics, and a dropped-message counter.
package mailbox

import (
	"sync"
)

// OverflowPolicy governs what a bounded Mailbox does when Send is called
// while the queue is already at capacity.
type OverflowPolicy int

const (
	// DropOldest discards the head of the queue to make room for the new
	// message.
	DropOldest OverflowPolicy = iota
	// DropNewest discards the incoming message; the queue is unchanged.
	DropNewest
	// Reject redirects the incoming message to DeadLetters.
	Reject
)

func (p OverflowPolicy) String() string {
	switch p {
	case DropOldest:
		return "drop-oldest"
	case DropNewest:
		return "drop-newest"
	case Reject:
		return "reject"
	default:
		return "unknown"
	}
}

// Unbounded marks a Mailbox as having no capacity limit.
const Unbounded = 0

// OverflowHandler is invoked by a bounded Mailbox when the Reject policy
// diverts an incoming message. It is the Mailbox's only dependency on the
// outside world, kept as a function value so this package never imports
// the dead-letter package (avoiding a dependency cycle: deadletter does not
// need to know about mailbox, and mailbox only needs one callback).
type OverflowHandler func(msg interface{}, reason string)

// ControlEnvelope is implemented by queued values that carry internal
// lifecycle control rather than user work. Suspend blocks new user work but
// still allows internal control through (spec.md §4.5 step 1): Pop
// recognizes a ControlEnvelope and surfaces it even while suspended.
type ControlEnvelope interface {
	IsControl() bool
}

// Mailbox is a FIFO queue of messages for one actor. The zero value is not
// usable; construct with New or NewBounded.
type Mailbox struct {
	mu        sync.Mutex
	queue     []interface{}
	capacity  int // Unbounded (0) means no limit.
	policy    OverflowPolicy
	suspended bool
	closed    bool
	dropped   uint64

	onOverflowReject OverflowHandler
	onClose          OverflowHandler // called for every message drained on Close
	onDispatchable   func()          // scheduled whenever a dispatch turn becomes runnable
}

// New constructs an unbounded Mailbox.
func New() *Mailbox {
	return &Mailbox{capacity: Unbounded}
}

// NewBounded constructs a Mailbox with the given positive capacity and
// overflow policy.
func NewBounded(capacity int, policy OverflowPolicy) *Mailbox {
	if capacity <= 0 {
		panic("mailbox: bounded capacity must be a positive integer")
	}
	return &Mailbox{capacity: capacity, policy: policy}
}

// OnOverflowReject registers the callback used when the Reject policy diverts
// a message to dead letters. Must be set before the first Send if the Reject
// policy is in effect.
func (m *Mailbox) OnOverflowReject(h OverflowHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onOverflowReject = h
}

// OnClose registers the callback invoked, once per queued message, when
// Close drains the mailbox.
func (m *Mailbox) OnClose(h OverflowHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onClose = h
}

// OnDispatchable registers a callback fired whenever Send/resume makes the
// mailbox eligible for a dispatch turn. The dispatcher (actor package) uses
// this to schedule itself without Mailbox knowing anything about actors.
func (m *Mailbox) OnDispatchable(f func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onDispatchable = f
}

// ErrClosed is returned by Send when the mailbox has been closed.
type ErrClosed struct{}

func (ErrClosed) Error() string { return "mailbox: closed" }

// Send enqueues msg under the mailbox's capacity rules. It schedules a
// dispatch turn if the mailbox is not suspended.
func (m *Mailbox) Send(msg interface{}) error {
	m.mu.Lock()

	if m.closed {
		m.mu.Unlock()
		return ErrClosed{}
	}

	if m.capacity != Unbounded && len(m.queue) >= m.capacity {
		switch m.policy {
		case DropOldest:
			m.queue = append(m.queue[1:], msg)
			m.dropped++
		case DropNewest:
			m.dropped++
			m.mu.Unlock()
			return nil
		case Reject:
			m.dropped++
			handler := m.onOverflowReject
			m.mu.Unlock()
			if handler != nil {
				handler(msg, "mailbox overflow")
			}
			return nil
		}
	} else {
		m.queue = append(m.queue, msg)
	}

	suspended := m.suspended
	notify := m.onDispatchable
	m.mu.Unlock()

	if !suspended && notify != nil {
		notify()
	}
	return nil
}

// SendControl enqueues msg bypassing capacity and overflow policy entirely;
// only a closed mailbox rejects it. Lifecycle control travels through the
// same FIFO queue as user messages (to stay ordered relative to them) but
// must never be dropped by a bounded mailbox's overflow policy, and it
// wakes the dispatch loop even while the mailbox is suspended: a Stop
// directive must reach a fault-suspended actor (spec.md §4.5 step 1).
func (m *Mailbox) SendControl(msg interface{}) error {
	m.mu.Lock()

	if m.closed {
		m.mu.Unlock()
		return ErrClosed{}
	}

	m.queue = append(m.queue, msg)
	notify := m.onDispatchable
	m.mu.Unlock()

	if notify != nil {
		notify()
	}
	return nil
}

// Pop removes and returns the head message. ok is false if the mailbox is
// empty or closed. While suspended, only a queued ControlEnvelope is
// surfaced (skipping past any blocked user messages ahead of it in the
// queue); plain user messages stay put until Resume.
func (m *Mailbox) Pop() (msg interface{}, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed || len(m.queue) == 0 {
		return nil, false
	}

	if !m.suspended {
		msg = m.queue[0]
		m.queue = m.queue[1:]
		return msg, true
	}

	for i, item := range m.queue {
		if ce, isControl := item.(ControlEnvelope); isControl && ce.IsControl() {
			m.queue = append(m.queue[:i:i], m.queue[i+1:]...)
			return item, true
		}
	}
	return nil, false
}

// Suspend idempotently marks the mailbox as suspended; dispatch turns stop
// until Resume.
func (m *Mailbox) Suspend() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.suspended = true
}

// Resume idempotently clears the suspended flag, unless the mailbox is
// closed (resume-after-close is a no-op). If messages are queued, a dispatch
// turn is scheduled.
func (m *Mailbox) Resume() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.suspended = false
	nonEmpty := len(m.queue) > 0
	notify := m.onDispatchable
	m.mu.Unlock()

	if nonEmpty && notify != nil {
		notify()
	}
}

// Close idempotently closes the mailbox and drains any queued messages to
// the registered OnClose handler, each with reason "actor stopped".
func (m *Mailbox) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	drained := m.queue
	m.queue = nil
	handler := m.onClose
	m.mu.Unlock()

	if handler != nil {
		for _, msg := range drained {
			handler(msg, "actor stopped")
		}
	}
}

// IsReceivable reports whether the mailbox is eligible for a dispatch turn:
// not suspended, not closed, and non-empty.
func (m *Mailbox) IsReceivable() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.suspended && !m.closed && len(m.queue) > 0
}

// IsClosed reports whether Close has been called.
func (m *Mailbox) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// IsSuspended reports whether the mailbox is currently suspended.
func (m *Mailbox) IsSuspended() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.suspended
}

// DroppedCount returns the number of messages dropped due to overflow since
// construction.
func (m *Mailbox) DroppedCount() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dropped
}

// Len returns the number of queued messages.
func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Capacity returns the configured capacity, or Unbounded.
func (m *Mailbox) Capacity() int {
	return m.capacity
}

// Policy returns the configured overflow policy. Meaningless for an
// unbounded mailbox.
func (m *Mailbox) Policy() OverflowPolicy {
	return m.policy
}
