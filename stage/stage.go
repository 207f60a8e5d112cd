// Package stage implements Stage, the runtime's top-level orchestrator
// (spec.md §3 "Stage", §9): it owns the Directory, DeadLetters sink,
// Scheduler, the two system root supervisors, and every actor's Definition
// bookkeeping, and is the actor.Host that every Ref's Environment talks to.
// It mirrors the teacher's bollywood.Engine in shape (a single owning
// struct with a concurrency-safe spawn/lookup/stop surface) while replacing
// its flat PID-keyed map with the sharded Directory and its ad hoc
// supervision with the supervisor package.
package stage

import (
	"context"
	"sync"

	"github.com/lguibr/actorstage/actor"
	"github.com/lguibr/actorstage/address"
	"github.com/lguibr/actorstage/deadletter"
	"github.com/lguibr/actorstage/directory"
	"github.com/lguibr/actorstage/scheduler"
	"github.com/lguibr/actorstage/supervisor"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Stage is the runtime's single entry point (spec.md §9): construct one per
// process (or per test), spawn root actors with ActorFor, look them up with
// ActorOf, and tear the whole tree down with Close.
type Stage struct {
	cfg     Config
	log     actor.Logger
	addrs   *address.Factory
	dir     *directory.Directory
	dead    *deadletter.DeadLetters
	sched   *scheduler.Scheduler
	metrics *Metrics
	reg     *prometheus.Registry

	mu          sync.RWMutex
	supervisors map[string]actor.Supervisor
	roots       map[string]*actor.Ref // root actors (no parent), keyed by address string
	privateRoot *supervisor.Supervisor
	publicRoot  *supervisor.Supervisor

	closeOnce sync.Once
}

// New constructs a Stage from cfg, logging through sugar (a nil sugar uses
// a no-op zap logger, as in a unit test). The Scheduler's cron runner is
// started immediately; ScheduleCron registrations added later begin firing
// without any further call.
func New(cfg Config, sugar *zap.SugaredLogger) *Stage {
	if sugar == nil {
		sugar = zap.NewNop().Sugar()
	}
	log := actor.NewZapLogger(sugar)
	registry := prometheus.NewRegistry()

	s := &Stage{
		cfg:         cfg,
		log:         log,
		addrs:       address.NewFactory("user"),
		dir:         directory.New(cfg.directoryConfig()),
		dead:        deadletter.New(),
		sched:       scheduler.New(sugar),
		metrics:     newMetrics(registry, cfg.MetricsEnabled),
		reg:         registry,
		supervisors: make(map[string]actor.Supervisor),
		roots:       make(map[string]*actor.Ref),
	}

	s.privateRoot, s.publicRoot = supervisor.NewRoots(log)
	s.publicRoot.SetOnRestart(s.metrics.recordRestart)
	s.privateRoot.SetOnRestart(s.metrics.recordRestart)
	s.supervisors[supervisor.PrivateRootName] = s.privateRoot
	s.supervisors[supervisor.PublicRootName] = s.publicRoot

	s.dead.Subscribe(deadletter.ListenerFunc(func(l deadletter.Letter) {
		s.metrics.recordDeadLetter()
		if l.Reason == "mailbox overflow" {
			actorType, policy := "unknown", "unknown"
			if addr, err := address.Parse(l.Target); err == nil {
				if ref, ok := s.ActorOf(addr); ok {
					actorType = ref.Type()
					policy = ref.Definition().OverflowPolicy.String()
				}
			}
			s.metrics.recordMailboxDrop(actorType, policy)
		}
	}))

	s.sched.Start()
	return s
}

// NewDefault constructs a Stage with DefaultConfig and a no-op logger,
// convenient for tests and examples.
func NewDefault() *Stage {
	return New(DefaultConfig(), nil)
}

// Logger implements actor.Host.
func (s *Stage) Logger() actor.Logger { return s.log }

// DeadLetters implements actor.Host.
func (s *Stage) DeadLetters() *deadletter.DeadLetters { return s.dead }

// Scheduler implements actor.Host.
func (s *Stage) Scheduler() *scheduler.Scheduler { return s.sched }

// Registry exposes the Stage's prometheus registry so a caller can serve
// /metrics (e.g. cmd/actorstage-demo).
func (s *Stage) Registry() *prometheus.Registry { return s.reg }

// Directory exposes the underlying Directory for diagnostics (Size, Stats).
func (s *Stage) Directory() *directory.Directory { return s.dir }

// ActorOf implements actor.Host: a Directory lookup narrowed to *actor.Ref.
func (s *Stage) ActorOf(addr address.Address) (*actor.Ref, bool) {
	v, ok := s.dir.Get(addr.String())
	if !ok {
		return nil, false
	}
	ref, ok := v.(*actor.Ref)
	return ref, ok
}

// Deregister implements actor.Host: removes addr from the Directory once
// its actor has fully stopped (spec.md §4.5 Stopped row).
func (s *Stage) Deregister(addr address.Address) {
	s.dir.Remove(addr.String())
	s.metrics.setDirectorySize(s.dir.Size())
	s.mu.Lock()
	delete(s.roots, addr.String())
	s.mu.Unlock()
}

// RegisterSupervisor makes sup resolvable by name from any Definition whose
// SupervisorName equals name (spec.md §3 "Supervisor link"). Registering
// under supervisor.PrivateRootName or supervisor.PublicRootName is
// rejected silently (those names are reserved for the Stage's own roots).
func (s *Stage) RegisterSupervisor(name string, sup actor.Supervisor) {
	if name == "" || name == supervisor.PrivateRootName || name == supervisor.PublicRootName {
		return
	}
	s.mu.Lock()
	s.supervisors[name] = sup
	s.mu.Unlock()
}

// ResolveSupervisor implements actor.Host. An empty name, or a name with no
// registered supervisor, resolves to the public root (spec.md §3 "Root
// actors" — every actor is supervised by something).
func (s *Stage) ResolveSupervisor(name string) actor.Supervisor {
	if name == "" {
		return s.publicRoot
	}
	s.mu.RLock()
	sup, ok := s.supervisors[name]
	s.mu.RUnlock()
	if !ok {
		return s.publicRoot
	}
	return sup
}

// SpawnChild implements actor.Host. It also serves as ChildActorFor's
// backing call (Environment.ChildActorFor forwards to host.SpawnChild), so
// every spawn in the system — root or child — passes through here.
func (s *Stage) SpawnChild(parent *actor.Ref, protocol actor.Protocol, supervisorName string, params ...interface{}) (*actor.Ref, error) {
	addr := s.addrs.New()
	def := actor.Definition{
		ProtocolType:    protocol.TypeName,
		Address:         addr,
		Params:          params,
		SupervisorName:  supervisorName,
		MailboxCapacity: s.cfg.DefaultMailboxCapacity,
		OverflowPolicy:  s.cfg.mailboxPolicy(),
	}
	ref, err := actor.SpawnDefinition(s, def, protocol, parent)
	if err != nil {
		return nil, err
	}
	s.dir.Put(addr.String(), ref)
	s.metrics.setDirectorySize(s.dir.Size())
	if parent == nil {
		s.mu.Lock()
		s.roots[addr.String()] = ref
		s.mu.Unlock()
	}
	return ref, nil
}

// ActorFor spawns protocol as a new root actor — no parent, so its
// lifetime is bound only to Stage.Close — under the named supervisor
// (empty defaults to the public root), and registers it in the Directory
// (spec.md §9 "actorFor", the Go realization of the spec's generated
// proxy: callers pair the returned *actor.Ref with a hand-authored Client
// wrapper).
func (s *Stage) ActorFor(protocol actor.Protocol, supervisorName string, params ...interface{}) (*actor.Ref, error) {
	return s.SpawnChild(nil, protocol, supervisorName, params...)
}

// ActorForDef is ActorFor with full control over mailbox sizing, for
// callers that need a bounded mailbox on a specific root actor rather than
// the Stage-wide default (spec.md §4.2). def.Address and def.ProtocolType
// are overwritten by the Stage; set Params, SupervisorName,
// MailboxCapacity, and OverflowPolicy.
func (s *Stage) ActorForDef(def actor.Definition, protocol actor.Protocol) (*actor.Ref, error) {
	def.Address = s.addrs.New()
	def.ProtocolType = protocol.TypeName
	ref, err := actor.SpawnDefinition(s, def, protocol, nil)
	if err != nil {
		return nil, err
	}
	s.dir.Put(def.Address.String(), ref)
	s.metrics.setDirectorySize(s.dir.Size())
	s.mu.Lock()
	s.roots[def.Address.String()] = ref
	s.mu.Unlock()
	return ref, nil
}

// Close performs the ordered hierarchical shutdown of spec.md §4.5/§9:
// every root actor is stopped (each stop cascades to its own children
// first, per Ref.runShutdown), then the Scheduler is closed. Root actors
// are stopped concurrently via an errgroup, matching the teacher's
// Engine.Shutdown fan-out; each root's Stop is bounded by
// Config.ChildStopTimeout, while a parent bounds each of its own children's
// stops at a fixed 5s (Ref.runShutdown). Close is idempotent.
func (s *Stage) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		roots := s.rootRefs()
		g, gctx := errgroup.WithContext(ctx)
		for _, ref := range roots {
			ref := ref
			g.Go(func() error {
				if err := ref.Stop(gctx, s.cfg.ChildStopTimeout); err != nil {
					s.log.Error("stage close: root actor stop failed", "actor", ref.String(), "error", err.Error())
				}
				return nil
			})
		}
		_ = g.Wait()
		s.sched.Close()
	})
	return nil
}

// rootRefs returns every currently-registered actor with no parent: the set
// Close stops directly, letting each one cascade to its own descendants.
// Directory exposes no "list all values" operation (spec.md §4.1 keeps the
// lookup surface to get/put/remove/size/stats), so Stage tracks its roots
// separately instead of scanning shards.
func (s *Stage) rootRefs() []*actor.Ref {
	s.mu.RLock()
	defer s.mu.RUnlock()
	roots := make([]*actor.Ref, 0, len(s.roots))
	for _, ref := range s.roots {
		roots = append(roots, ref)
	}
	return roots
}
