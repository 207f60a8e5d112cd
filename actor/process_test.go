package actor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lguibr/actorstage/address"
	"github.com/lguibr/actorstage/deadletter"
	"github.com/lguibr/actorstage/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeHost is the minimal Host a unit test needs: it spawns actors directly
// (no sharded Directory, no root hierarchy) and lets the test install a
// Supervisor per name.
type fakeHost struct {
	mu          sync.Mutex
	factory     *address.Factory
	log         Logger
	dead        *deadletter.DeadLetters
	sched       *scheduler.Scheduler
	actors      map[string]*Ref
	supervisors map[string]Supervisor
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		factory:     address.NewFactory("test"),
		log:         NopLogger(),
		dead:        deadletter.New(),
		sched:       scheduler.New(nil),
		actors:      make(map[string]*Ref),
		supervisors: make(map[string]Supervisor),
	}
}

func (h *fakeHost) Logger() Logger                       { return h.log }
func (h *fakeHost) DeadLetters() *deadletter.DeadLetters { return h.dead }
func (h *fakeHost) Scheduler() *scheduler.Scheduler      { return h.sched }

func (h *fakeHost) ActorOf(addr address.Address) (*Ref, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.actors[addr.String()]
	return r, ok
}

func (h *fakeHost) Deregister(addr address.Address) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.actors, addr.String())
}

func (h *fakeHost) ResolveSupervisor(name string) Supervisor {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.supervisors[name]
}

func (h *fakeHost) setSupervisor(name string, s Supervisor) {
	h.mu.Lock()
	h.supervisors[name] = s
	h.mu.Unlock()
}

func (h *fakeHost) SpawnChild(parent *Ref, protocol Protocol, supervisorName string, params ...interface{}) (*Ref, error) {
	addr := h.factory.New()
	ref, err := SpawnChildOf(h, addr, protocol, supervisorName, parent, params...)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	h.actors[addr.String()] = ref
	h.mu.Unlock()
	return ref, nil
}

func (h *fakeHost) spawn(protocol Protocol, supervisorName string, params ...interface{}) (*Ref, error) {
	return h.SpawnChild(nil, protocol, supervisorName, params...)
}

// fakeSupervisor applies a fixed directive whenever a fault arrives.
type fakeSupervisor struct {
	mu        sync.Mutex
	faults    []error
	directive func(target *Ref, cause error)
}

func (s *fakeSupervisor) HandleFault(target *Ref, cause error) {
	s.mu.Lock()
	s.faults = append(s.faults, cause)
	s.mu.Unlock()
	s.directive(target, cause)
}

func (s *fakeSupervisor) faultCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.faults)
}

// --- Counter actor, the hand-authored "proxy" example used across scenarios ---

type incrementMsg struct{}
type getCountMsg struct{}
type failNextMsg struct{ err error }

type counterActor struct {
	count int
}

func newCounter(env *Environment, params []interface{}) (Actor, error) {
	return &counterActor{}, nil
}

func (c *counterActor) Receive(ctx *Context, message interface{}) (interface{}, error) {
	switch m := message.(type) {
	case incrementMsg:
		c.count++
		return nil, nil
	case getCountMsg:
		return c.count, nil
	case failNextMsg:
		return nil, m.err
	default:
		return nil, &ErrUnhandledMessage{MessageType: "unknown"}
	}
}

func (c *counterActor) Snapshot() interface{} { return c.count }
func (c *counterActor) Restore(v interface{}) {
	if n, ok := v.(int); ok {
		c.count = n
	}
}

var counterProtocol = Protocol{TypeName: "counter", New: newCounter}

func mustAsk[T any](t *testing.T, ref *Ref, payload interface{}) T {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	v, err := Ask[T](ctx, ref, payload)
	require.NoError(t, err)
	return v
}

// Scenario 1: FIFO per-actor processing — N increments followed by a read
// always yields the full count, regardless of submission order.
func TestCounterFIFOProcessing(t *testing.T) {
	h := newFakeHost()
	ref, err := h.spawn(counterProtocol, "")
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		Tell(ref, incrementMsg{})
	}
	got := mustAsk[int](t, ref, getCountMsg{})
	assert.Equal(t, 50, got)
}

// Scenario 4: a handler error suspends the mailbox and hands off to
// supervision; a Restart directive reconstructs the actor (losing
// in-memory state unless StateSnapshotter/Restorer carry it across).
func TestRestartOnErrorCarriesSnapshot(t *testing.T) {
	h := newFakeHost()
	sup := &fakeSupervisor{directive: func(target *Ref, cause error) {
		target.applyRestart(cause)
	}}
	h.setSupervisor("sup", sup)

	ref, err := h.spawn(counterProtocol, "sup")
	require.NoError(t, err)

	Tell(ref, incrementMsg{})
	Tell(ref, incrementMsg{})
	boom := errors.New("boom")
	Tell(ref, failNextMsg{err: boom})

	// Next Ask blocks until the restart completes and the mailbox resumes.
	got := mustAsk[int](t, ref, getCountMsg{})
	assert.Equal(t, 2, got, "snapshot/restore must carry the count across a restart")
	assert.Equal(t, 1, sup.faultCount())
}

// Scenario 5: Resume leaves the existing actor instance and its state
// intact; only the suspension caused by the fault is cleared.
func TestResumeOnErrorKeepsState(t *testing.T) {
	h := newFakeHost()
	sup := &fakeSupervisor{directive: func(target *Ref, cause error) {
		target.applyResume(cause)
	}}
	h.setSupervisor("sup", sup)

	ref, err := h.spawn(counterProtocol, "sup")
	require.NoError(t, err)

	Tell(ref, incrementMsg{})
	Tell(ref, failNextMsg{err: errors.New("boom")})
	Tell(ref, incrementMsg{})

	got := mustAsk[int](t, ref, getCountMsg{})
	assert.Equal(t, 2, got)
	assert.Equal(t, 1, sup.faultCount())
}

// Scenario 6: a Stop directive from supervision tears the actor down; its
// queued and subsequent messages are rejected with ErrStopped, and any
// already-suspended future is never silently dropped.
func TestStopDirectiveFromSupervision(t *testing.T) {
	h := newFakeHost()
	sup := &fakeSupervisor{directive: func(target *Ref, cause error) {
		go func() { _ = target.Stop(context.Background(), time.Second) }()
	}}
	h.setSupervisor("sup", sup)

	ref, err := h.spawn(counterProtocol, "sup")
	require.NoError(t, err)

	Tell(ref, failNextMsg{err: errors.New("fatal")})

	require.Eventually(t, func() bool { return ref.IsStopped() }, time.Second, time.Millisecond)

	f := ref.send(getCountMsg{}, address.Address{})
	_, err2 := f.Get(context.Background())
	require.Error(t, err2)
	var stopped *ErrStopped
	assert.ErrorAs(t, err2, &stopped)
}

// Invariant P1: concurrent Tells from many goroutines are still applied
// one at a time, and the final count equals the number sent (no lost or
// duplicated dispatch).
func TestConcurrentSendsSingleWriter(t *testing.T) {
	h := newFakeHost()
	ref, err := h.spawn(counterProtocol, "")
	require.NoError(t, err)

	const n = 200
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			Tell(ref, incrementMsg{})
		}()
	}
	wg.Wait()

	require.Eventually(t, func() bool {
		got := mustAsk[int](t, ref, getCountMsg{})
		return got == n
	}, time.Second, time.Millisecond)
}

// Invariant: a handler panic is recovered and normalized into a *Fault,
// with the same supervision hand-off as a returned error.
func TestHandlerPanicBecomesFault(t *testing.T) {
	h := newFakeHost()
	sup := &fakeSupervisor{directive: func(target *Ref, cause error) {
		target.applyResume(cause)
	}}
	h.setSupervisor("sup", sup)

	panicker := Protocol{TypeName: "panicker", New: func(env *Environment, params []interface{}) (Actor, error) {
		return &panicActor{}, nil
	}}
	ref, err := h.spawn(panicker, "sup")
	require.NoError(t, err)

	Tell(ref, "go boom")

	require.Eventually(t, func() bool { return sup.faultCount() == 1 }, time.Second, time.Millisecond)
	var fault *Fault
	assert.ErrorAs(t, sup.faults[0], &fault)
}

type panicActor struct{}

func (p *panicActor) Receive(ctx *Context, message interface{}) (interface{}, error) {
	panic("kaboom")
}

// Close draining: messages still queued when the mailbox closes are routed
// to dead letters with reason "actor stopped" (spec.md §9 Open Question 1).
func TestCloseDrainsQueuedMessagesToDeadLetters(t *testing.T) {
	h := newFakeHost()
	rec := deadletter.NewRecorder()
	h.dead.Subscribe(rec)

	slow := Protocol{TypeName: "slow", New: func(env *Environment, params []interface{}) (Actor, error) {
		return &blockingActor{release: make(chan struct{})}, nil
	}}
	ref, err := h.spawn(slow, "")
	require.NoError(t, err)

	ba := ref.actor.(*blockingActor)

	Tell(ref, "block-me")
	time.Sleep(20 * time.Millisecond) // let the handler start and block

	// Both land in the queue behind the blocked message; stop is processed
	// first, and its Close() drains "never-delivered" to dead letters
	// without ever invoking the handler for it.
	require.NoError(t, ref.mailbox.SendControl(&envelope{control: &controlMessage{kind: controlStop}}))
	Tell(ref, "never-delivered")

	close(ba.release)

	require.Eventually(t, func() bool { return ref.IsStopped() }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return rec.Len() > 0 }, time.Second, time.Millisecond)
	found := rec.Search("never-delivered")
	assert.NotEmpty(t, found)
	assert.Equal(t, "actor stopped", found[0].Reason)
}

type blockingActor struct {
	release chan struct{}
}

func (b *blockingActor) Receive(ctx *Context, message interface{}) (interface{}, error) {
	if message == "block-me" {
		<-b.release
	}
	return nil, nil
}
