package supervisor

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Decider maps a handler fault to a Directive. cause is whatever error the
// handler returned, or the *actor.Fault a recovered panic was normalized
// into.
type Decider func(cause error) Directive

// RestartForAnyError is the default Decider (spec.md §4.6): every fault
// gets a Restart, deferring to the Strategy's restart-intensity window to
// eventually Escalate a runaway failure instead of restart-looping forever.
func RestartForAnyError(cause error) Directive { return Restart }

// Strategy bundles a Decider with a Scope and restart-intensity limits
// (SPEC_FULL §3), grounded in ergonode's SupervisorStrategy{Intensity,
// Period} and protoactor-go's RestartStatistics: more than MaxRestarts
// restarts within Within escalates instead of restarting again.
type Strategy struct {
	Decide Decider
	Scope  Scope

	// MaxRestarts <= 0 means unlimited restarts (no intensity escalation).
	MaxRestarts int
	Within      time.Duration

	// Backoff, if set, is waited on before applying a Restart directive,
	// and reset whenever the restart-intensity window goes quiet.
	Backoff backoff.BackOff
}

// DefaultStrategy restarts on any fault, scoped to the failing actor alone,
// escalating once more than 10 restarts occur within 10 seconds — the same
// numbers ergonode's SupervisorRestartIntensity/SupervisorRestartPeriod
// default to.
func DefaultStrategy() Strategy {
	return Strategy{
		Decide:      RestartForAnyError,
		Scope:       One,
		MaxRestarts: 10,
		Within:      10 * time.Second,
	}
}

// AlwaysResume never restarts or stops; useful for actors whose handlers
// are expected to fail in ways that don't corrupt in-memory state.
func AlwaysResume() Strategy {
	return Strategy{Decide: func(error) Directive { return Resume }, Scope: One}
}

// StopOnAnyError tears an actor down on its first fault, with no restart
// budget to track.
func StopOnAnyError() Strategy {
	return Strategy{Decide: func(error) Directive { return Stop }, Scope: One}
}
