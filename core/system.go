package core

import (
	"context"
	"fmt"

	"cosmossdk.io/log"
	"github.com/google/uuid"
)

const (
	// DefaultMailboxCapacity is the initial mailbox buffer size of an Actor
	DefaultMailboxCapacity = 16

	// DefaultTerminateMaxRounds bounds the shutdown loop of Terminate
	DefaultTerminateMaxRounds = 10000
)

// System owns a population of actors and dispatches their messages in rounds.
type System struct {
	name string
	id   string

	reg   *registry
	names *nameTable

	logger log.Logger

	mailboxCapacity    int
	terminateMaxRounds int

	closed bool

	// Counters
	rounds         uint64
	processed      uint64
	unknownTargets uint64
	rejected       uint64
}

// SystemOption configures a System.
type SystemOption func(*System)

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger log.Logger) SystemOption {
	return func(s *System) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMailboxCapacity sets the initial mailbox buffer size for new actors.
// Mailboxes grow on demand; this only sizes the first allocation.
func WithMailboxCapacity(capacity int) SystemOption {
	return func(s *System) {
		if capacity > 0 {
			s.mailboxCapacity = capacity
		}
	}
}

// WithTerminateMaxRounds bounds the number of shutdown iterations Terminate
// performs before it force-terminates the remaining actors. Zero or a
// negative value removes the bound.
func WithTerminateMaxRounds(rounds int) SystemOption {
	return func(s *System) {
		s.terminateMaxRounds = rounds
	}
}

// NewSystem creates an empty actor system. The name is used for diagnostics
// only.
func NewSystem(name string, opts ...SystemOption) *System {
	s := &System{
		name:               name,
		id:                 uuid.NewString(),
		reg:                newRegistry(),
		names:              newNameTable(),
		logger:             log.NewNopLogger(),
		mailboxCapacity:    DefaultMailboxCapacity,
		terminateMaxRounds: DefaultTerminateMaxRounds,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.logger = s.logger.With("system", name)
	s.logger.Info("actor system created", "id", s.id)
	return s
}

// Name returns the system name.
func (s *System) Name() string {
	return s.name
}

// ID returns the unique identifier of this system instance.
func (s *System) ID() string {
	return s.id
}

// Closed reports whether the system was terminated or destroyed.
func (s *System) Closed() bool {
	return s.closed
}

// Logger returns the system logger.
func (s *System) Logger() log.Logger {
	return s.logger
}

// spawnConfig collects per-actor spawn options.
type spawnConfig struct {
	supervisor ActorRef
	name       string
}

// SpawnOption configures actor spawning.
type SpawnOption func(*spawnConfig)

// WithSupervisor declares the supervisor of the new actor.
func WithSupervisor(ref ActorRef) SpawnOption {
	return func(c *spawnConfig) {
		c.supervisor = ref
	}
}

// WithName registers the new actor under a service name.
func WithName(name string) SpawnOption {
	return func(c *spawnConfig) {
		c.name = name
	}
}

// Spawn creates an actor with the given behavior and initial data, starts
// it and returns its ref. On a closed system, or once every ActorRef has
// been handed out, it logs the failure and returns NoRef.
func (s *System) Spawn(behavior Behavior, initial any, opts ...SpawnOption) ActorRef {
	if s.closed {
		s.logger.Error("spawn on closed actor system")
		return NoRef
	}

	config := &spawnConfig{}
	for _, opt := range opts {
		opt(config)
	}

	ref, ok := s.reg.nextRef()
	if !ok {
		s.logger.Error("spawn failed, actor refs exhausted")
		return NoRef
	}
	a := newActor(ref, behavior, initial, config.supervisor, s.mailboxCapacity, s.logger)
	s.reg.add(a)

	if config.name != "" {
		if err := s.names.bind(config.name, ref); err != nil {
			s.logger.Warn("actor spawned without name", "actor", ref.String(), "error", err)
		} else {
			a.name = config.name
		}
	}

	// A fresh actor is Initialized, so Start cannot be rejected here.
	_ = a.Start()

	s.logger.Debug("spawned actor", "actor", ref.String(), "name", a.name, "supervisor", config.supervisor.String())
	return ref
}

// Tell sends msg from one actor to another. The sender is stamped into the
// message header. Delivery is fire-and-forget; the returned error only
// tells the caller that the message was dropped.
func (s *System) Tell(from, to ActorRef, msg Message) error {
	if s.closed {
		return ErrSystemClosed
	}

	msg = msg.withSender(from)

	a, ok := s.reg.lookup(to)
	if !ok {
		s.unknownTargets++
		s.logger.Warn("message to unknown actor dropped", "type", msg.Type(), "from", from.String(), "to", to.String())
		return fmt.Errorf("tell %s: %w", to, ErrUnknownRef)
	}

	if err := a.deliver(msg); err != nil {
		s.rejected++
		return err
	}
	return nil
}

// TellByName sends msg to the actor registered under name.
func (s *System) TellByName(from ActorRef, name string, msg Message) error {
	ref, ok := s.names.resolve(name)
	if !ok {
		s.unknownTargets++
		s.logger.Warn("message to unknown name dropped", "type", msg.Type(), "from", from.String(), "name", name)
		return fmt.Errorf("tell %q: %w", name, ErrUnknownRef)
	}
	return s.Tell(from, ref, msg)
}

// ProcessMessages runs one dispatch round: every actor registered when the
// round starts processes at most one message, newest actor first. Actors
// spawned during the round wait for the next one; actors removed during the
// round are skipped. It returns the number of messages processed.
func (s *System) ProcessMessages() int {
	if s.closed {
		return 0
	}

	s.reg.beginRound()
	defer s.reg.endRound()

	refs := s.reg.snapshot()
	processed := 0
	for i := len(refs) - 1; i >= 0; i-- {
		a, ok := s.reg.lookup(refs[i])
		if !ok {
			continue
		}
		if a.processOne(s) {
			processed++
		}
	}

	s.rounds++
	s.processed += uint64(processed)
	return processed
}

// Lookup returns the actor registered under ref.
func (s *System) Lookup(ref ActorRef) (*Actor, bool) {
	return s.reg.lookup(ref)
}

// Whereis returns the ref registered under name.
func (s *System) Whereis(name string) (ActorRef, bool) {
	return s.names.resolve(name)
}

// RegisterName binds name to an existing actor, replacing its previous name.
func (s *System) RegisterName(ref ActorRef, name string) error {
	a, err := s.resolve(ref, "register name")
	if err != nil {
		return err
	}
	if err := s.names.bind(name, ref); err != nil {
		return err
	}
	a.name = name
	return nil
}

// Names returns all registered actor names, sorted.
func (s *System) Names() []string {
	return s.names.names()
}

// Refs returns the refs of all registered actors in spawn order.
func (s *System) Refs() []ActorRef {
	return s.reg.snapshot()
}

// Len returns the number of registered actors.
func (s *System) Len() int {
	return s.reg.len()
}

// Pending returns the number of messages queued across all actors.
func (s *System) Pending() int {
	pending := 0
	for _, a := range s.reg.actors {
		pending += a.mailbox.len()
	}
	return pending
}

// StartActor starts the actor registered under ref.
func (s *System) StartActor(ref ActorRef) error {
	a, err := s.resolve(ref, "start")
	if err != nil {
		return err
	}
	return a.Start()
}

// GracefulStopActor asks the actor to drain its mailbox and stop.
func (s *System) GracefulStopActor(ref ActorRef) error {
	a, err := s.resolve(ref, "graceful stop")
	if err != nil {
		return err
	}
	return a.GracefulStop()
}

// ImmediateStopActor stops the actor without draining its mailbox.
func (s *System) ImmediateStopActor(ref ActorRef) error {
	a, err := s.resolve(ref, "immediate stop")
	if err != nil {
		return err
	}
	return a.ImmediateStop()
}

// RestartActor restarts the actor, invoking its state reset hook.
func (s *System) RestartActor(ref ActorRef) error {
	a, err := s.resolve(ref, "restart")
	if err != nil {
		return err
	}
	return a.Restart()
}

// TerminateActor makes the actor permanently inert. It stays registered
// until the next Cleanup.
func (s *System) TerminateActor(ref ActorRef) error {
	a, err := s.resolve(ref, "terminate")
	if err != nil {
		return err
	}
	return a.Terminate()
}

// RegisterStateResetProc attaches or replaces the hook invoked when the
// actor restarts.
func (s *System) RegisterStateResetProc(ref ActorRef, fn StateResetFunc, userData any) error {
	a, err := s.resolve(ref, "register state reset")
	if err != nil {
		return err
	}
	a.SetStateReset(fn, userData)
	return nil
}

// Cleanup removes every Terminated actor and returns how many were removed.
func (s *System) Cleanup() int {
	removed := 0
	for _, ref := range s.reg.snapshot() {
		a, ok := s.reg.lookup(ref)
		if !ok || a.state != ActorStateTerminated {
			continue
		}
		s.unregister(ref)
		removed++
	}
	if removed > 0 {
		s.logger.Debug("removed terminated actors", "count", removed)
	}
	return removed
}

// TerminateStopped terminates and removes every Stopped actor and returns
// how many were removed.
func (s *System) TerminateStopped() int {
	removed := 0
	for _, ref := range s.reg.snapshot() {
		a, ok := s.reg.lookup(ref)
		if !ok || a.state != ActorStateStopped {
			continue
		}
		_ = a.Terminate()
		s.unregister(ref)
		removed++
	}
	if removed > 0 {
		s.logger.Debug("removed stopped actors", "count", removed)
	}
	return removed
}

// Terminate shuts the system down gracefully. It repeatedly asks every actor
// to stop, runs a round so pending mail drains, and removes actors as they
// stop, until none remain. The loop is bounded by the configured maximum
// rounds and by ctx; when either is exceeded the remaining actors are
// force-terminated and an error is returned. The system is closed afterwards.
func (s *System) Terminate(ctx context.Context) error {
	if s.closed {
		return ErrSystemClosed
	}

	s.logger.Info("actor system terminating", "actors", s.reg.len())

	var err error
	rounds := 0
	for s.reg.len() > 0 {
		if s.terminateMaxRounds > 0 && rounds >= s.terminateMaxRounds {
			err = fmt.Errorf("%d actors left after %d rounds: %w", s.reg.len(), rounds, ErrTerminateIncomplete)
			break
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%d actors left: %w: %w", s.reg.len(), ErrTerminateIncomplete, ctxErr)
			break
		}

		for _, ref := range s.reg.snapshot() {
			if a, ok := s.reg.lookup(ref); ok && a.state == ActorStateRunning {
				_ = a.GracefulStop()
			}
		}
		s.ProcessMessages()
		s.TerminateStopped()
		s.Cleanup()
		rounds++
	}

	if err != nil {
		s.logger.Warn("forcing actor system teardown", "error", err)
		s.teardown()
	}

	s.closed = true
	s.logger.Info("actor system terminated", "rounds", rounds)
	return err
}

// Destroy frees every actor unconditionally, bypassing the lifecycle state
// machine, and closes the system.
func (s *System) Destroy() {
	if s.closed {
		return
	}
	count := s.reg.len()
	s.teardown()
	s.closed = true
	s.logger.Info("actor system destroyed", "actors", count)
}

// ReportFailure sends a Failure for ref to the actor's declared supervisor.
func (s *System) ReportFailure(ref ActorRef, strategy SupervisionStrategy, reason string) error {
	a, err := s.resolve(ref, "report failure")
	if err != nil {
		return err
	}
	if a.supervisor == NoRef {
		return fmt.Errorf("report failure for %s: %w", ref, ErrNoSupervisor)
	}
	return s.Tell(ref, a.supervisor, NewFailureMessage(Failure{
		Child:    ref,
		Strategy: strategy,
		Reason:   reason,
	}))
}

// ActorStats returns statistics for the actor registered under ref.
func (s *System) ActorStats(ref ActorRef) (ActorStats, error) {
	a, ok := s.reg.lookup(ref)
	if !ok {
		return ActorStats{}, fmt.Errorf("stats %s: %w", ref, ErrUnknownRef)
	}
	return a.Stats(), nil
}

// AllActorStats returns statistics for all actors in spawn order.
func (s *System) AllActorStats() []ActorStats {
	refs := s.reg.snapshot()
	stats := make([]ActorStats, 0, len(refs))
	for _, ref := range refs {
		if a, ok := s.reg.lookup(ref); ok {
			stats = append(stats, a.Stats())
		}
	}
	return stats
}

// Stats returns aggregated statistics for the system.
func (s *System) Stats() SystemStats {
	return SystemStats{
		Name:              s.name,
		Actors:            s.reg.len(),
		Rounds:            s.rounds,
		MessagesProcessed: s.processed,
		UnknownTargets:    s.unknownTargets,
		Rejected:          s.rejected,
		Pending:           s.Pending(),
	}
}

// resolve looks up ref for a lifecycle operation, reporting misses.
func (s *System) resolve(ref ActorRef, op string) (*Actor, error) {
	a, ok := s.reg.lookup(ref)
	if !ok {
		s.logger.Warn("operation on unknown actor", "op", op, "actor", ref.String())
		return nil, fmt.Errorf("%s %s: %w", op, ref, ErrUnknownRef)
	}
	return a, nil
}

func (s *System) unregister(ref ActorRef) {
	s.reg.remove(ref)
	s.names.release(ref)
}

// teardown drops every actor without running the lifecycle.
func (s *System) teardown() {
	for _, a := range s.reg.actors {
		a.mailbox.clear()
		a.state = ActorStateTerminated
	}
	s.reg.clear()
	s.names.clear()
}
