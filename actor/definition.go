package actor

import (
	"github.com/lguibr/actorstage/address"
	"github.com/lguibr/actorstage/mailbox"
)

// Instantiator produces a fresh Actor instance bound to env. It is called
// once at first start and again on every restart (spec.md §3 "Protocol").
type Instantiator func(env *Environment, params []interface{}) (Actor, error)

// Protocol is a named contract: a type name plus the instantiator that
// builds actors implementing it. Two Protocols are distinct iff their
// TypeName differs (spec.md §3).
type Protocol struct {
	TypeName string
	New      Instantiator
}

// Definition is the construction recipe for one actor: its protocol type
// name, its address, and the ordered constructor parameters supplied at
// spawn time (spec.md §3).
type Definition struct {
	ProtocolType string
	Address      address.Address
	Params       []interface{}
	// SupervisorName optionally names a user-defined supervisor, resolved
	// through Host.ResolveSupervisor on every fault. Stage keeps supervisors
	// in its own name registry (Stage.RegisterSupervisor), not in the
	// Directory. Empty means "default to the public root" (spec.md §3
	// "Supervisor link").
	SupervisorName string

	// MailboxCapacity configures a bounded mailbox; <= 0 means unbounded
	// (spec.md §4.2). OverflowPolicy only matters when MailboxCapacity > 0.
	MailboxCapacity int
	OverflowPolicy  mailbox.OverflowPolicy
}
