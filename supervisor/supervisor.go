package supervisor

import (
	"context"
	"sync"
	"time"

	"github.com/lguibr/actorstage/actor"
)

// Supervisor implements actor.Supervisor (spec.md §4.6): it receives a
// suspended actor and the fault that suspended it, consults its Strategy
// for a Directive, and applies it — to the faulting actor alone, or, when
// Scope is All, also to every sibling under the same parent that names the
// same supervisor.
type Supervisor struct {
	name     string
	strategy Strategy
	parent   *Supervisor
	log      actor.Logger

	mu    sync.Mutex
	stats map[string]*restartStatistics // keyed by actor address string

	onRestart func(actorType string)
}

// SetOnRestart installs a callback invoked every time this supervisor
// applies a Restart directive. Stage uses it to feed the restarts_total
// metric; nil (the default) disables the hook.
func (s *Supervisor) SetOnRestart(fn func(actorType string)) {
	s.mu.Lock()
	s.onRestart = fn
	s.mu.Unlock()
}

// New constructs a Supervisor named name. parent may be nil, in which case
// an Escalate directive degrades to Stop (there is nowhere further up to
// hand the fault).
func New(name string, strategy Strategy, parent *Supervisor, log actor.Logger) *Supervisor {
	if log == nil {
		log = actor.NopLogger()
	}
	if strategy.Decide == nil {
		strategy.Decide = RestartForAnyError
	}
	return &Supervisor{
		name:     name,
		strategy: strategy,
		parent:   parent,
		log:      log,
		stats:    make(map[string]*restartStatistics),
	}
}

// Name returns the supervisor's registered name (the one actors reference
// via Definition.SupervisorName).
func (s *Supervisor) Name() string { return s.name }

func (s *Supervisor) statsFor(addr string) *restartStatistics {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs, ok := s.stats[addr]
	if !ok {
		rs = &restartStatistics{}
		s.stats[addr] = rs
	}
	return rs
}

// HandleFault implements actor.Supervisor. It is invoked on the dispatch
// goroutine of the actor that just suspended itself after a handler
// failure, so it must not block indefinitely; Stop and Restart are applied
// via Ref methods that themselves hand off to the target's own machinery.
func (s *Supervisor) HandleFault(target *actor.Ref, cause error) {
	directive := s.strategy.Decide(cause)

	if directive == Restart {
		directive = s.checkIntensity(target, cause)
	}

	group := []*actor.Ref{target}
	if s.strategy.Scope == All {
		for _, sib := range target.Siblings() {
			if sib.Definition().SupervisorName == target.Definition().SupervisorName {
				group = append(group, sib)
			}
		}
	}

	// Pre-suspend the whole group before applying anything: target is
	// already suspended (onHandlerFailure did that), but a sibling under
	// Scope.All is not, and might otherwise still be mid-dispatch when its
	// own directive lands.
	for _, ref := range group {
		ref.Suspend()
	}

	s.log.Info("supervision directive", "supervisor", s.name, "actor", target.String(), "directive", directive.String(), "scope", s.strategy.Scope.String(), "cause", cause.Error())

	for _, ref := range group {
		s.apply(ref, directive, cause)
	}
}

// checkIntensity escalates a Restart directive once the actor has
// restarted more than MaxRestarts times within Within (spec.md §4.6
// "restart intensity" / SPEC_FULL §3).
func (s *Supervisor) checkIntensity(target *actor.Ref, cause error) Directive {
	if s.strategy.MaxRestarts <= 0 && s.strategy.Backoff == nil {
		return Restart
	}
	rs := s.statsFor(target.Address().String())
	count, wasQuiet := rs.recordAndCount(time.Now(), s.strategy.Within)
	if wasQuiet && s.strategy.Backoff != nil {
		s.strategy.Backoff.Reset()
	}
	if s.strategy.MaxRestarts > 0 && count > s.strategy.MaxRestarts {
		s.log.Error("restart intensity exceeded; escalating", "supervisor", s.name, "actor", target.String(), "restarts", count, "within", s.strategy.Within.String())
		return Escalate
	}
	return Restart
}

func (s *Supervisor) apply(ref *actor.Ref, directive Directive, cause error) {
	switch directive {
	case Resume:
		ref.Resume(cause)
	case Restart:
		if s.strategy.Backoff != nil {
			time.Sleep(s.strategy.Backoff.NextBackOff())
		}
		_ = ref.Restart(context.Background(), cause)
		s.mu.Lock()
		onRestart := s.onRestart
		s.mu.Unlock()
		if onRestart != nil {
			onRestart(ref.Type())
		}
	case Stop:
		go func() { _ = ref.Stop(context.Background(), 5*time.Second) }()
	case Escalate:
		if s.parent != nil {
			s.parent.HandleFault(ref, cause)
			return
		}
		s.log.Error("fault escalated past the root supervisor; stopping", "supervisor", s.name, "actor", ref.String(), "cause", cause.Error())
		go func() { _ = ref.Stop(context.Background(), 5*time.Second) }()
	}
}
