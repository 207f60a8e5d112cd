package actor

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/lguibr/actorstage/address"
	"github.com/lguibr/actorstage/deadletter"
	"github.com/lguibr/actorstage/mailbox"
	"github.com/lguibr/actorstage/scheduler"
	"golang.org/x/sync/errgroup"
)

// Ref is the caller-facing handle for one actor (spec.md §4.4 "Proxy").
// It exposes the operational method set synchronously from the
// Environment. Of the lifecycle methods, Stop is mailbox-mediated; Start is
// a no-op once spawned and Restart is applied directly. Access to the underlying Environment is
// deliberately unexported: Go has no runtime proxy mechanism, so "no public
// accessor, reachable only via an unforgeable private key" (spec.md §4.4,
// §9) is realized as Go's own visibility rule — only code inside this
// package can call Ref.environment(); external packages only ever see the
// operational methods below and the Ask/Tell free functions.
type Ref struct {
	env       *Environment
	lifecycle *LifeCycle
	mailbox   *mailbox.Mailbox

	mu      sync.Mutex
	actor   Actor
	wake    chan struct{}
	started chan struct{}
}

func (r *Ref) environment() *Environment { return r.env }

// Address returns the actor's address.
func (r *Ref) Address() address.Address { return r.env.Address() }

// Definition returns the actor's construction recipe.
func (r *Ref) Definition() Definition { return r.env.Definition() }

// Type returns the actor's protocol type name.
func (r *Ref) Type() string { return r.env.Definition().ProtocolType }

// IsStopped reports whether the actor has fully stopped.
func (r *Ref) IsStopped() bool { return r.lifecycle.IsStopped() }

// State returns the current LifeCycle state, chiefly for tests and
// diagnostics.
func (r *Ref) State() State { return r.lifecycle.Current() }

// Equals reports whether other refers to the same actor.
func (r *Ref) Equals(other *Ref) bool {
	if other == nil {
		return false
	}
	return r.Address().Equal(other.Address())
}

// String renders the Ref for logs.
func (r *Ref) String() string {
	return fmt.Sprintf("Ref(%s:%s)", r.Type(), r.Address())
}

// Logger returns the Stage's default logger.
func (r *Ref) Logger() Logger { return r.env.Logger() }

// DeadLetters returns the Stage's dead-letter sink.
func (r *Ref) DeadLetters() *deadletter.DeadLetters { return r.env.DeadLetters() }

// Scheduler returns the Stage's scheduler, the same one the actor uses
// internally to self-schedule work.
func (r *Ref) Scheduler() *scheduler.Scheduler { return r.env.Scheduler() }

// buildMailbox constructs the mailbox a Definition asks for: unbounded by
// default, or bounded with its configured overflow policy (spec.md §4.2).
func buildMailbox(def Definition) *mailbox.Mailbox {
	if def.MailboxCapacity <= 0 {
		return mailbox.New()
	}
	return mailbox.NewBounded(def.MailboxCapacity, def.OverflowPolicy)
}

// Spawn constructs and starts a root actor (no parent) under host, with an
// unbounded mailbox; adding it to a Directory is left to host. SpawnChildOf
// is the equivalent with a parent.
func Spawn(host Host, addr address.Address, protocol Protocol, supervisorName string, params ...interface{}) (*Ref, error) {
	return spawn(host, addr, protocol, supervisorName, nil, params...)
}

// SpawnChildOf is Spawn with an explicit parent, used by Host
// implementations of SpawnChild.
func SpawnChildOf(host Host, addr address.Address, protocol Protocol, supervisorName string, parent *Ref, params ...interface{}) (*Ref, error) {
	return spawn(host, addr, protocol, supervisorName, parent, params...)
}

func spawn(host Host, addr address.Address, protocol Protocol, supervisorName string, parent *Ref, params ...interface{}) (*Ref, error) {
	def := Definition{ProtocolType: protocol.TypeName, Address: addr, Params: params, SupervisorName: supervisorName}
	return SpawnDefinition(host, def, protocol, parent)
}

// SpawnDefinition is the fully-general spawn primitive: it takes a
// complete Definition (including mailbox sizing) instead of building one
// with defaults, for hosts (e.g. stage.Stage) that apply a configured
// mailbox capacity/policy per actor.
func SpawnDefinition(host Host, def Definition, protocol Protocol, parent *Ref) (*Ref, error) {
	ref := newRef(def.Address, def, protocol.New, buildMailbox(def), host, parent)
	if err := ref.start(); err != nil {
		return nil, err
	}
	return ref, nil
}

// newRef constructs a Ref and its backing process, but does not start it.
func newRef(addr address.Address, def Definition, instantiator Instantiator, mb *mailbox.Mailbox, host Host, parent *Ref) *Ref {
	env := newEnvironment(addr, def, instantiator, mb, host, parent)
	r := &Ref{
		env:       env,
		lifecycle: newLifeCycle(),
		mailbox:   mb,
		wake:      make(chan struct{}, 1),
		started:   make(chan struct{}),
	}
	env.setSelf(r)

	mb.OnDispatchable(func() {
		select {
		case r.wake <- struct{}{}:
		default:
		}
	})
	mb.OnOverflowReject(func(msg interface{}, reason string) {
		r.routeToDeadLetters(msg, reason)
	})
	mb.OnClose(func(msg interface{}, reason string) {
		r.routeToDeadLetters(msg, reason)
	})
	return r
}

func (r *Ref) routeToDeadLetters(raw interface{}, reason string) {
	env := r.env
	var payload interface{} = raw
	if env2, ok := raw.(*envelope); ok {
		if env2.message != nil {
			payload = env2.message.Payload
			if env2.message.future != nil {
				var ferr error = &ErrStopped{Address: r.Address().String()}
				if reason == "mailbox overflow" {
					ferr = fmt.Errorf("actor: %s: mailbox overflow", r.Address())
				}
				env2.message.future.complete(nil, ferr)
			}
		} else {
			return // control messages are never meaningfully "dead lettered"
		}
	}
	env.DeadLetters().Record(r.Address().String(), payload, reason, env.execContextSnapshot())
}

// start runs the Constructed -> Starting -> Running sequence synchronously
// (spec.md §4.5), then launches the dispatch goroutine. It blocks until the
// actor is Running (or failed to construct).
func (r *Ref) start() error {
	if !r.lifecycle.transition(Starting) {
		return nil
	}

	instance, err := r.env.instantiate(r.env, r.env.Definition().Params)
	if err != nil {
		return fmt.Errorf("actor: constructing %s: %w", r.Type(), err)
	}
	r.mu.Lock()
	r.actor = instance
	r.mu.Unlock()

	runHookLogged(r.env.Logger(), "beforeStart", func() error {
		if bs, ok := instance.(BeforeStarter); ok {
			return bs.BeforeStart()
		}
		return nil
	})

	r.lifecycle.transition(Running)
	if r.env.parent != nil {
		r.env.parent.environment().addChild(r)
	}
	go r.loop()
	return nil
}

func runHookLogged(log Logger, name string, fn func() error) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("hook panicked", "hook", name, "panic", rec)
		}
	}()
	if err := fn(); err != nil {
		log.Error("hook failed", "hook", name, "error", err.Error())
	}
}

// send enqueues a user Message onto the mailbox.
func (r *Ref) send(payload interface{}, sender address.Address) *Future {
	f := newFuture()
	env := &envelope{message: &Message{Target: r.Address(), Payload: payload, future: f}, sender: sender}
	if err := r.mailbox.Send(env); err != nil {
		f.complete(nil, &ErrStopped{Address: r.Address().String()})
	}
	return f
}

// Tell sends payload to ref without waiting for a result (fire-and-forget).
func Tell(ref *Ref, payload interface{}) {
	ref.send(payload, address.Address{})
}

// TellFrom sends payload to ref on behalf of sender (visible to ref's
// handler as ctx.Sender()).
func TellFrom(ref *Ref, payload interface{}, sender *Ref) {
	var from address.Address
	if sender != nil {
		from = sender.Address()
	}
	ref.send(payload, from)
}

// Ask sends payload to ref and blocks for a typed result, the idiomatic-Go
// realization of the spec's generated protocol proxy method (SPEC_FULL
// §0): hand-written client wrappers call Ask[T] once per method, with T
// fixed at the call site instead of reflected off an interface.
func Ask[T any](ctx context.Context, ref *Ref, payload interface{}) (T, error) {
	var zero T
	f := ref.send(payload, address.Address{})
	val, err := f.Get(ctx)
	if err != nil {
		return zero, err
	}
	if val == nil {
		return zero, nil
	}
	typed, ok := val.(T)
	if !ok {
		return zero, fmt.Errorf("actor: response type %T does not match expected %T", val, zero)
	}
	return typed, nil
}

// Start is a no-op if the actor is already Running or further along;
// otherwise it is handled internally at spawn time, so this exists chiefly
// to satisfy the operational surface and round-trip idempotence (spec.md
// §8 "Starting an already-Running actor is a no-op").
func (r *Ref) Start(ctx context.Context) error {
	return nil
}

// Stop requests shutdown, optionally bounded by timeout (<=0 means no
// timeout). It enqueues a stop control message so it is ordered after any
// messages already sent to this actor (spec.md §4.5).
func (r *Ref) Stop(ctx context.Context, timeout time.Duration) error {
	if r.lifecycle.Is(Stopped) || r.lifecycle.Is(Stopping) {
		return nil
	}
	f := newFuture()
	ce := &envelope{control: &controlMessage{kind: controlStop, timeout: f}}
	if err := r.mailbox.SendControl(ce); err != nil {
		// Already closed: treat as already stopped.
		return nil
	}

	if timeout > 0 {
		deadline, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		_, err := f.Get(deadline)
		if err != nil {
			r.ForceStop()
			return &ErrTimeout{Address: r.Address().String()}
		}
		return nil
	}
	_, err := f.Get(ctx)
	return err
}

// Restart forces a Restart directive outside of supervision (useful in
// tests and for operator-driven restarts).
func (r *Ref) Restart(ctx context.Context, reason error) error {
	r.applyRestart(reason)
	return nil
}

// Resume clears a fault-induced suspension without reconstructing the
// actor. Exported so the supervisor package, which cannot see Ref's
// unexported methods, can apply the Resume directive (spec.md §4.6).
func (r *Ref) Resume(reason error) { r.applyResume(reason) }

// Suspend blocks new user dispatch without touching actor state or
// lifecycle. Exported so a Supervisor can pre-suspend every actor in a
// SupervisionScope.All group before applying a directive to any of them,
// narrowing the window in which a sibling's dispatch loop is still mid-
// Receive when the directive lands (idempotent; a no-op if already
// suspended, e.g. the actor whose fault triggered supervision).
func (r *Ref) Suspend() { r.mailbox.Suspend() }

// Parent returns the parent Ref, or nil for a root actor.
func (r *Ref) Parent() *Ref { return r.env.Parent() }

// Siblings returns the other children of this actor's parent, whatever
// their supervisor. SupervisionScope.All (spec.md §9 Open Question: "All"
// operates over actors sharing the same supervisor) narrows this list to
// the siblings naming the same supervisor. Returns nil for a root actor.
func (r *Ref) Siblings() []*Ref {
	parent := r.env.Parent()
	if parent == nil {
		return nil
	}
	all := parent.environment().Children()
	out := make([]*Ref, 0, len(all))
	for _, c := range all {
		if !c.Equals(r) {
			out = append(out, c)
		}
	}
	return out
}

// loop is the per-actor dispatch goroutine (spec.md §4.3, §5): it wakes
// whenever the mailbox becomes dispatchable and drains it one message at a
// time, continuing while the actor is Running and the mailbox is
// receivable; once either stops holding it goes back to waiting on wake.
func (r *Ref) loop() {
	close(r.started)
	for {
		<-r.wake
		for {
			if r.lifecycle.Is(Stopped) {
				return
			}
			raw, ok := r.mailbox.Pop()
			if !ok {
				break
			}
			env := raw.(*envelope)
			if env.control != nil {
				if r.handleControl(env.control) {
					return
				}
				continue
			}
			r.dispatchOne(env.message, env.sender)
			if !r.lifecycle.IsRunning() || !r.mailbox.IsReceivable() {
				break
			}
		}
	}
}

func (r *Ref) handleControl(c *controlMessage) (exit bool) {
	switch c.kind {
	case controlStop:
		r.runShutdown()
		if c.timeout != nil {
			c.timeout.complete(nil, nil)
		}
		return true
	}
	return false
}

// dispatchOne implements spec.md §4.3's per-message algorithm.
func (r *Ref) dispatchOne(msg *Message, sender address.Address) {
	r.env.resetExecContext()

	ctx := &Context{env: r.env, self: r.Address(), sender: sender, message: msg.Payload}

	result, err := r.invokeReceive(ctx)

	if err != nil {
		msg.future.complete(nil, err)
		r.onHandlerFailure(err)
		return
	}
	msg.future.complete(result, nil)
}

func (r *Ref) invokeReceive(ctx *Context) (result interface{}, err error) {
	r.mu.Lock()
	instance := r.actor
	r.mu.Unlock()

	defer func() {
		if rec := recover(); rec != nil {
			err = NewFault(r.Type(), rec)
			r.env.Logger().Error("actor panicked", "actor", r.String(), "panic", rec, "stack", string(debug.Stack()))
		}
	}()
	return instance.Receive(ctx, ctx.message)
}

// onHandlerFailure implements the supervision hand-off of spec.md §4.6: the
// mailbox is suspended so no further user messages dispatch until a
// directive (Resume/Restart/Stop/Escalate) is applied, then the fault is
// handed to the actor's supervisor.
func (r *Ref) onHandlerFailure(cause error) {
	r.mailbox.Suspend()
	supervisor := r.env.host.ResolveSupervisor(r.env.supervisorName())
	if supervisor == nil {
		r.env.Logger().Error("no supervisor resolvable; resuming to avoid a stuck actor", "actor", r.String(), "error", cause.Error())
		r.mailbox.Resume()
		return
	}
	supervisor.HandleFault(r, cause)
}

// performRestart executes spec.md §4.5's Restarting row.
func (r *Ref) performRestart(reason error) {
	r.lifecycle.transition(Restarting)
	r.mailbox.Suspend()

	r.mu.Lock()
	previous := r.actor
	r.mu.Unlock()

	runHookLogged(r.env.Logger(), "beforeRestart", func() error {
		if br, ok := previous.(BeforeRestarter); ok {
			return br.BeforeRestart(reason)
		}
		return nil
	})

	var carried interface{}
	if snap, ok := previous.(StateSnapshotter); ok {
		carried = snap.Snapshot()
	}

	fresh, err := r.env.instantiate(r.env, r.env.Definition().Params)
	if err != nil {
		r.env.Logger().Error("restart failed to construct replacement actor", "actor", r.String(), "error", err.Error())
		r.lifecycle.transition(Running)
		r.mailbox.Resume()
		return
	}
	if carried != nil {
		if rest, ok := fresh.(Restorer); ok {
			rest.Restore(carried)
		}
	}

	r.mu.Lock()
	r.actor = fresh
	r.mu.Unlock()

	runHookLogged(r.env.Logger(), "afterRestart", func() error {
		if ar, ok := fresh.(AfterRestarter); ok {
			return ar.AfterRestart(reason)
		}
		return nil
	})

	r.lifecycle.transition(Running)
	r.mailbox.Resume()
}

// performResume executes the Resume directive of spec.md §4.6.
func (r *Ref) performResume(reason error) {
	r.mu.Lock()
	instance := r.actor
	r.mu.Unlock()

	runHookLogged(r.env.Logger(), "beforeResume", func() error {
		if bs, ok := instance.(BeforeResumer); ok {
			return bs.BeforeResume(reason)
		}
		return nil
	})
	r.lifecycle.transition(Running)
	r.mailbox.Resume()
}

// applyRestart/applyResume are the synchronous entry points behind the
// exported Restart and Resume, which the supervisor package calls; the
// target's mailbox is already suspended (the fault that triggered
// supervision suspended it) and HandleFault runs on the faulting actor's
// own dispatch goroutine, so it is safe to mutate state here before handing
// back control to the target's dispatch loop via mailbox.Resume().
func (r *Ref) applyRestart(reason error) { r.performRestart(reason) }
func (r *Ref) applyResume(reason error)  { r.performResume(reason) }

// runShutdown implements spec.md §4.5's Stopping -> Stopped sequence.
func (r *Ref) runShutdown() {
	r.lifecycle.transition(Stopping)
	r.mailbox.Suspend()

	r.mu.Lock()
	instance := r.actor
	r.mu.Unlock()

	runHookLogged(r.env.Logger(), "beforeStop", func() error {
		if bs, ok := instance.(BeforeStopper); ok {
			return bs.BeforeStop()
		}
		return nil
	})

	children := r.env.Children()
	if len(children) > 0 {
		var g errgroup.Group
		for _, child := range children {
			child := child
			g.Go(func() error {
				if err := child.Stop(context.Background(), 5*time.Second); err != nil {
					r.env.Logger().Error("child failed to stop cleanly", "child", child.String(), "error", err.Error())
				}
				return nil
			})
		}
		_ = g.Wait()
	}

	r.mailbox.Close()

	runHookLogged(r.env.Logger(), "afterStop", func() error {
		if as, ok := instance.(AfterStopper); ok {
			return as.AfterStop()
		}
		return nil
	})

	if r.env.parent != nil {
		r.env.parent.environment().removeChild(r.Address())
	}
	r.env.host.Deregister(r.Address())
	r.lifecycle.transition(Stopped)
}

// ForceStop closes the mailbox immediately and marks the actor Stopped,
// without running beforeStop/afterStop — used when stop(timeout) expires
// (spec.md §4.5).
func (r *Ref) ForceStop() {
	r.mailbox.Close()
	if r.env.parent != nil {
		r.env.parent.environment().removeChild(r.Address())
	}
	r.env.host.Deregister(r.Address())
	r.lifecycle.transition(Stopped)
}
