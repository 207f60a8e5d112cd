// Package deadletter implements the runtime's process-wide DeadLetters sink
// (spec.md §3, §4.7): a broadcast point for undeliverable messages, plus a
// retaining Recorder listener used by tests (§8 scenarios 3, 6, 7).
package deadletter

import (
	"fmt"
	"strings"
	"sync"
)

// Letter records one undeliverable message.
type Letter struct {
	Target  string // address string of the intended recipient
	Message interface{}
	Reason  string
	// Context carries a copy of the target actor's execution-context map as
	// of the event that produced this letter, when known (SPEC_FULL §3).
	Context map[string]interface{}
}

// String renders a human-readable representation used for substring search
// and for log lines.
func (l Letter) String() string {
	return fmt.Sprintf("deadletter target=%s reason=%q message=%T(%+v)", l.Target, l.Reason, l.Message, l.Message)
}

// Listener receives a synchronous callback for every Letter broadcast after
// DeadLetters.Record.
type Listener interface {
	Receive(l Letter)
}

// ListenerFunc adapts a plain function to Listener.
type ListenerFunc func(l Letter)

// Receive implements Listener.
func (f ListenerFunc) Receive(l Letter) { f(l) }

// DeadLetters is the process-wide (or per-Stage) sink. Listeners subscribe
// and unsubscribe; every letter is broadcast to all current listeners
// synchronously, under a short-lived lock over the listener list (§5).
type DeadLetters struct {
	mu        sync.Mutex
	listeners map[int]Listener
	nextID    int
	total     uint64
}

// New constructs an empty DeadLetters sink.
func New() *DeadLetters {
	return &DeadLetters{listeners: make(map[int]Listener)}
}

// Subscription identifies a registered Listener for later Unsubscribe.
type Subscription int

// Subscribe registers l and returns a handle for Unsubscribe.
func (d *DeadLetters) Subscribe(l Listener) Subscription {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.nextID
	d.nextID++
	d.listeners[id] = l
	return Subscription(id)
}

// Unsubscribe removes a previously registered Listener. Idempotent.
func (d *DeadLetters) Unsubscribe(sub Subscription) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.listeners, int(sub))
}

// Record broadcasts a Letter built from the given fields to every current
// listener, synchronously.
func (d *DeadLetters) Record(target string, message interface{}, reason string, execCtx map[string]interface{}) {
	letter := Letter{Target: target, Message: message, Reason: reason, Context: execCtx}

	d.mu.Lock()
	d.total++
	snapshot := make([]Listener, 0, len(d.listeners))
	for _, l := range d.listeners {
		snapshot = append(snapshot, l)
	}
	d.mu.Unlock()

	for _, l := range snapshot {
		l.Receive(letter)
	}
}

// Total returns the number of letters recorded since construction.
func (d *DeadLetters) Total() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.total
}

// Recorder is the test listener (§4.7): it retains every letter it observes,
// in order, and supports substring search over the letter's message
// representation.
type Recorder struct {
	mu      sync.Mutex
	letters []Letter
}

// NewRecorder constructs an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Receive implements Listener.
func (r *Recorder) Receive(l Letter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.letters = append(r.letters, l)
}

// All returns a copy of every letter retained so far, in arrival order.
func (r *Recorder) All() []Letter {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Letter, len(r.letters))
	copy(out, r.letters)
	return out
}

// Len returns the number of retained letters.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.letters)
}

// Search returns every retained letter whose String() contains substr.
func (r *Recorder) Search(substr string) []Letter {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Letter
	for _, l := range r.letters {
		if strings.Contains(l.String(), substr) {
			out = append(out, l)
		}
	}
	return out
}

// Clear discards every retained letter.
func (r *Recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.letters = nil
}
