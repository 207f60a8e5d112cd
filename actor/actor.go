package actor

// Actor is the interface every user actor implements. Receive handles one
// application message per call; the dispatcher (process.go) guarantees it
// is never called concurrently with itself for the same actor instance
// (spec.md §4.3, §5 "single-writer guarantee").
//
// A non-nil error return is a handler failure (spec.md §7): the caller's
// Future is rejected with it and the fault is handed to supervision. A
// panic inside Receive is recovered by the dispatcher and normalized into a
// *Fault with the same effect.
type Actor interface {
	Receive(ctx *Context, message interface{}) (interface{}, error)
}

// The following are optional lifecycle hooks (spec.md §6). An Actor
// implementation satisfies whichever it needs; the dispatcher probes for
// each with a type assertion, the idiomatic Go stand-in for the spec's
// "overridable hooks on a base class" (Go has no inheritance to override).

// BeforeStarter runs before the actor's first message is dispatched.
type BeforeStarter interface {
	BeforeStart() error
}

// BeforeStopper and AfterStopper bracket the shutdown sequence (spec.md
// §4.5 steps 2 and 5).
type BeforeStopper interface {
	BeforeStop() error
}

// AfterStopper runs after the mailbox has been closed and children have
// been asked to stop.
type AfterStopper interface {
	AfterStop() error
}

// BeforeRestarter and AfterRestarter bracket a Restart directive (spec.md
// §4.5 Restarting row). reason is the fault that triggered the restart.
type BeforeRestarter interface {
	BeforeRestart(reason error) error
}

// AfterRestarter runs on the replacement actor instance after construction.
type AfterRestarter interface {
	AfterRestart(reason error) error
}

// BeforeResumer runs before a Resume directive clears the suspension caused
// by a handler fault (spec.md §4.6).
type BeforeResumer interface {
	BeforeResume(reason error) error
}

// StateSnapshotter lets an actor carry an opaque value across a restart
// (spec.md §6 "stateSnapshot(value?)"). The dispatcher calls Snapshot on
// the outgoing instance and, if the new instance implements Restorer, calls
// Restore with that value immediately after construction, before
// AfterRestart.
type StateSnapshotter interface {
	Snapshot() interface{}
}

// Restorer receives the value produced by the previous instance's
// StateSnapshotter, if any.
type Restorer interface {
	Restore(snapshot interface{})
}
