package supervisor

import "github.com/lguibr/actorstage/actor"

// PrivateRootName and PublicRootName are the well-known supervisor names a
// Stage registers at construction (spec.md §3 "Root actors").
const (
	PrivateRootName = "private-root"
	PublicRootName  = "public-root"
)

// NewRoots builds the two-level root supervision every Stage starts with
// (spec.md §3 "Root actors"): a private root with an escalating/stopping
// policy (DefaultStrategy, nothing above it, so an Escalate reaching it
// degrades to Stop) supervising a public root with an unconditional
// restart-forever policy — the implicit supervisor for any actor spawned
// without an explicit Definition.SupervisorName.
func NewRoots(log actor.Logger) (privateRoot, publicRoot *Supervisor) {
	privateRoot = New(PrivateRootName, DefaultStrategy(), nil, log)

	publicRoot = New(PublicRootName, Strategy{
		Decide:      RestartForAnyError,
		Scope:       One,
		MaxRestarts: 0,
	}, privateRoot, log)
	return privateRoot, publicRoot
}
