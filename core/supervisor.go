package core

import (
	"fmt"
	"time"
)

// MessageTypeFailure is the type tag of messages carrying a Failure.
const MessageTypeFailure = "supervisor.failure"

// SupervisionStrategy tells a supervisor how to recover a failed child.
type SupervisionStrategy uint8

const (
	// StrategyRestart restarts the child
	StrategyRestart SupervisionStrategy = iota

	// StrategyStop stops the child immediately
	StrategyStop

	// StrategyResume leaves the child running
	StrategyResume

	// StrategyEscalate forwards the failure to the supervisor's own supervisor
	StrategyEscalate
)

// String returns the string representation of SupervisionStrategy.
func (s SupervisionStrategy) String() string {
	switch s {
	case StrategyRestart:
		return "restart"
	case StrategyStop:
		return "stop"
	case StrategyResume:
		return "resume"
	case StrategyEscalate:
		return "escalate"
	default:
		return "unknown"
	}
}

// Failure is the report a failing actor sends to its supervisor.
type Failure struct {
	// Child is the actor that failed
	Child ActorRef

	// Strategy is the recovery the supervisor should apply
	Strategy SupervisionStrategy

	// Reason describes the failure, for diagnostics
	Reason string

	// Escalated is set when a supervisor forwarded the failure upwards
	Escalated bool
}

// NewFailureMessage wraps f in a message of type MessageTypeFailure.
func NewFailureMessage(f Failure) Message {
	return NewPayloadMessage(MessageTypeFailure, f)
}

// Supervisor is a Behavior that applies supervision strategies to the
// children named in Failure messages.
type Supervisor struct {
	fallback   Behavior
	escalateAs SupervisionStrategy

	// Restart budget, disabled when maxRestarts is zero
	maxRestarts int
	within      time.Duration
	restarts    map[ActorRef][]time.Time
	now         func() time.Time
}

// SupervisorOption configures a Supervisor.
type SupervisorOption func(*Supervisor)

// WithFallback sets the behavior that handles non-failure messages.
func WithFallback(b Behavior) SupervisorOption {
	return func(s *Supervisor) {
		s.fallback = b
	}
}

// WithEscalationFallback sets the strategy a root supervisor applies to
// escalated failures. It defaults to StrategyStop.
func WithEscalationFallback(strategy SupervisionStrategy) SupervisorOption {
	return func(s *Supervisor) {
		if strategy != StrategyEscalate {
			s.escalateAs = strategy
		}
	}
}

// WithMaxRestarts limits restarts of a single child to max within the
// given window. Restarts beyond the budget stop the child instead.
func WithMaxRestarts(max int, within time.Duration) SupervisorOption {
	return func(s *Supervisor) {
		s.maxRestarts = max
		s.within = within
	}
}

// NewSupervisor creates a supervisor behavior.
func NewSupervisor(opts ...SupervisorOption) *Supervisor {
	s := &Supervisor{
		escalateAs: StrategyStop,
		restarts:   make(map[ActorRef][]time.Time),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Receive implements Behavior.
func (s *Supervisor) Receive(sys *System, self *Actor, msg Message) error {
	if msg.Type() != MessageTypeFailure {
		if s.fallback != nil {
			return s.fallback.Receive(sys, self, msg)
		}
		return nil
	}

	f, ok := PayloadOf[Failure](msg)
	if !ok {
		return fmt.Errorf("supervisor %s: malformed failure message from %s", self.Ref(), msg.From())
	}
	return s.handleFailure(sys, self, f)
}

func (s *Supervisor) handleFailure(sys *System, self *Actor, f Failure) error {
	logger := sys.Logger().With("supervisor", self.Ref().String(), "child", f.Child.String())

	if _, ok := sys.Lookup(f.Child); !ok {
		logger.Warn("failure reported for unknown child", "strategy", f.Strategy.String(), "reason", f.Reason)
		return fmt.Errorf("supervise %s: %w", f.Child, ErrUnknownRef)
	}

	strategy := f.Strategy
	if strategy == StrategyRestart && !s.allowRestart(sys, f.Child) {
		logger.Warn("restart budget exhausted, stopping child", "max_restarts", s.maxRestarts, "within", s.within)
		strategy = StrategyStop
	}

	switch strategy {
	case StrategyRestart:
		logger.Info("restarting child", "reason", f.Reason)
		return sys.RestartActor(f.Child)

	case StrategyStop:
		logger.Info("stopping child", "reason", f.Reason)
		return sys.ImmediateStopActor(f.Child)

	case StrategyResume:
		logger.Info("resuming child", "reason", f.Reason)
		return nil

	case StrategyEscalate:
		return s.escalate(sys, self, f)

	default:
		return fmt.Errorf("supervisor %s: unknown strategy %d", self.Ref(), f.Strategy)
	}
}

// escalate forwards f to this supervisor's own supervisor. A supervisor
// without one applies its escalation fallback to the child itself.
func (s *Supervisor) escalate(sys *System, self *Actor, f Failure) error {
	parent := self.Supervisor()
	if parent == NoRef {
		sys.Logger().Info("escalation reached root supervisor",
			"supervisor", self.Ref().String(),
			"child", f.Child.String(),
			"fallback", s.escalateAs.String())
		f.Strategy = s.escalateAs
		return s.handleFailure(sys, self, f)
	}

	f.Escalated = true
	sys.Logger().Info("escalating failure",
		"supervisor", self.Ref().String(),
		"parent", parent.String(),
		"child", f.Child.String())
	return sys.Tell(self.Ref(), parent, NewFailureMessage(f))
}

// allowRestart records a restart of child and reports whether it fits the
// restart budget. History of children that are gone or whose window has
// fully expired is dropped on the way.
func (s *Supervisor) allowRestart(sys *System, child ActorRef) bool {
	if s.maxRestarts <= 0 {
		return true
	}

	now := s.now()
	cutoff := now.Add(-s.within)

	for ref, times := range s.restarts {
		if _, ok := sys.Lookup(ref); !ok || !times[len(times)-1].After(cutoff) {
			delete(s.restarts, ref)
		}
	}

	window := s.restarts[child][:0]
	for _, t := range s.restarts[child] {
		if t.After(cutoff) {
			window = append(window, t)
		}
	}

	if len(window) >= s.maxRestarts {
		s.restarts[child] = window
		return false
	}
	s.restarts[child] = append(window, now)
	return true
}
