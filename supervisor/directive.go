// Package supervisor implements the fault-isolation policies described in
// spec.md §4.6: a Supervisor receives a suspended actor and the error that
// suspended it, decides a Directive, and applies it — optionally to every
// sibling under the same parent that names the same supervisor
// (Scope.All), escalating to its own parent
// Supervisor when a restart storm exceeds its intensity window.
package supervisor

// Directive is the action a Strategy decides to take in response to a
// handler fault (spec.md §4.6).
type Directive int

const (
	// Resume clears the suspension and leaves the actor instance and its
	// state untouched.
	Resume Directive = iota
	// Restart discards the actor instance and constructs a fresh one,
	// carrying forward whatever StateSnapshotter/Restorer exchange.
	Restart
	// Stop tears the actor down permanently.
	Stop
	// Escalate hands the fault to the supervisor's own parent Supervisor.
	Escalate
)

func (d Directive) String() string {
	switch d {
	case Resume:
		return "resume"
	case Restart:
		return "restart"
	case Stop:
		return "stop"
	case Escalate:
		return "escalate"
	default:
		return "unknown"
	}
}

// Scope controls how many actors one Directive applies to (spec.md §9 Open
// Question: SupervisionScope.All is resolved here as "every sibling
// registered under the same parent as the faulting actor whose Definition
// names the same supervisor", mirroring Erlang/OTP's one_for_all strategy
// as seen in the ergonode sample).
type Scope int

const (
	// One applies the directive only to the actor that faulted.
	One Scope = iota
	// All applies the directive to the faulting actor and every sibling
	// sharing its parent and its supervisor name.
	All
)

func (s Scope) String() string {
	switch s {
	case One:
		return "one"
	case All:
		return "all"
	default:
		return "unknown"
	}
}
