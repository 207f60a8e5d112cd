package actor

import (
	"sync"

	"github.com/lguibr/actorstage/address"
	"github.com/lguibr/actorstage/deadletter"
	"github.com/lguibr/actorstage/mailbox"
	"github.com/lguibr/actorstage/scheduler"
)

// Host is the slice of Stage that the actor package needs. It is an
// interface, not a direct import of the stage package, so that stage can
// import actor without a cycle (stage.Stage implements Host).
type Host interface {
	Logger() Logger
	DeadLetters() *deadletter.DeadLetters
	Scheduler() *scheduler.Scheduler
	ActorOf(addr address.Address) (*Ref, bool)
	// SpawnChild constructs a new actor as a child of parent, registers it
	// with the Directory on Running entry, and returns its Ref.
	SpawnChild(parent *Ref, protocol Protocol, supervisorName string, params ...interface{}) (*Ref, error)
	// ResolveSupervisor looks up the named supervisor (empty name means the
	// Stage's public root), returning nil if none is registered.
	ResolveSupervisor(name string) Supervisor
	// Deregister removes addr from the Directory once its actor has stopped.
	Deregister(addr address.Address)
}

// Supervisor is the narrow slice of the supervisor package's Supervisor
// type that a process needs when handing off a fault (spec.md §4.6). It is
// declared here, not imported, so that supervisor can depend on actor
// without a cycle.
type Supervisor interface {
	HandleFault(target *Ref, cause error)
}

// Environment is the per-actor infrastructure handle described in spec.md
// §3/§4: the mailbox, the supervisor link, the optional parent, the set of
// children, and a small execution-context map reset between messages. It
// outlives restarts; only the Actor instance is replaced.
type Environment struct {
	address     address.Address
	definition  Definition
	instantiate Instantiator
	mailbox     *mailbox.Mailbox
	host        Host
	parent      *Ref // nil for root actors

	mu          sync.Mutex
	children    map[string]*Ref
	execContext map[string]interface{}
	snapshot    interface{}

	self *Ref // back-reference set once Ref is constructed
}

func newEnvironment(addr address.Address, def Definition, instantiator Instantiator, mb *mailbox.Mailbox, host Host, parent *Ref) *Environment {
	return &Environment{
		address:     addr,
		definition:  def,
		instantiate: instantiator,
		mailbox:     mb,
		host:        host,
		parent:      parent,
		children:    make(map[string]*Ref),
		execContext: make(map[string]interface{}),
	}
}

// Address returns the actor's address.
func (e *Environment) Address() address.Address { return e.address }

// Definition returns the recipe the actor was constructed from.
func (e *Environment) Definition() Definition { return e.definition }

// Parent returns the parent Ref, or nil for a root actor.
func (e *Environment) Parent() *Ref { return e.parent }

// Logger returns the Stage's default logger.
func (e *Environment) Logger() Logger { return e.host.Logger() }

// Scheduler returns the Stage's Scheduler.
func (e *Environment) Scheduler() *scheduler.Scheduler { return e.host.Scheduler() }

// DeadLetters returns the Stage's DeadLetters sink.
func (e *Environment) DeadLetters() *deadletter.DeadLetters { return e.host.DeadLetters() }

// Self returns the Ref for this actor.
func (e *Environment) Self() *Ref {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.self
}

func (e *Environment) setSelf(r *Ref) {
	e.mu.Lock()
	e.self = r
	e.mu.Unlock()
}

// Children returns a snapshot slice of the current child set.
func (e *Environment) Children() []*Ref {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*Ref, 0, len(e.children))
	for _, c := range e.children {
		out = append(out, c)
	}
	return out
}

func (e *Environment) addChild(r *Ref) {
	e.mu.Lock()
	e.children[r.Address().String()] = r
	e.mu.Unlock()
}

func (e *Environment) removeChild(addr address.Address) {
	e.mu.Lock()
	delete(e.children, addr.String())
	e.mu.Unlock()
}

// ChildActorFor spawns protocol as a child of this actor (spec.md §6
// "childActorFor").
func (e *Environment) ChildActorFor(protocol Protocol, supervisorName string, params ...interface{}) (*Ref, error) {
	return e.host.SpawnChild(e.self, protocol, supervisorName, params...)
}

// StateSnapshot stores or fetches an opaque value carried across a restart
// (spec.md §6 "stateSnapshot(value?)"): called with a value it stores and
// returns that value; called with no arguments it returns whatever was last
// stored (nil if nothing was).
func (e *Environment) StateSnapshot(value ...interface{}) interface{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(value) > 0 {
		e.snapshot = value[0]
	}
	return e.snapshot
}

// resetExecContext clears the per-message execution-context map; called by
// the dispatcher before every Receive invocation (spec.md §5).
func (e *Environment) resetExecContext() {
	e.mu.Lock()
	e.execContext = make(map[string]interface{})
	e.mu.Unlock()
}

// SetExecContext stores a named value visible to supervision and dead
// letters for the message currently in flight.
func (e *Environment) SetExecContext(key string, value interface{}) {
	e.mu.Lock()
	e.execContext[key] = value
	e.mu.Unlock()
}

func (e *Environment) execContextSnapshot() map[string]interface{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]interface{}, len(e.execContext))
	for k, v := range e.execContext {
		out[k] = v
	}
	return out
}

func (e *Environment) supervisorName() string {
	return e.definition.SupervisorName
}

// Context is passed to Actor.Receive for one message dispatch (spec.md
// §4.3).
type Context struct {
	env     *Environment
	self    address.Address
	sender  address.Address
	message interface{}
}

// Self returns the address of the actor processing the message.
func (c *Context) Self() address.Address { return c.self }

// Sender returns the address of the actor that sent the message, the zero
// Address if none was supplied.
func (c *Context) Sender() address.Address { return c.sender }

// Message returns the message currently being processed.
func (c *Context) Message() interface{} { return c.message }

// Env exposes the full Environment for handlers that need it (spawning
// children, reading exec context, etc).
func (c *Context) Env() *Environment { return c.env }
