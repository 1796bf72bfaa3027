package core

import (
	"fmt"
	"runtime/debug"
	"time"

	"cosmossdk.io/log"
)

// Actor is a unit of computation owned by a System.
//
// An Actor holds private data, a Behavior, a FIFO mailbox and a lifecycle
// state. Actors are created with System.Spawn and must not be retained past
// their removal from the system.
type Actor struct {
	ref        ActorRef
	name       string
	behavior   Behavior
	supervisor ActorRef

	// Private data owned by the behavior
	data any

	mailbox *mailbox
	state   ActorState

	// Restart hook and the value passed to it
	resetFn   StateResetFunc
	resetData any

	stats  ActorStats
	logger log.Logger
}

func newActor(ref ActorRef, behavior Behavior, data any, supervisor ActorRef, mailboxCap int, logger log.Logger) *Actor {
	return &Actor{
		ref:        ref,
		behavior:   behavior,
		supervisor: supervisor,
		data:       data,
		mailbox:    newMailbox(mailboxCap),
		state:      ActorStateInitialized,
		stats:      ActorStats{CreatedAt: time.Now()},
		logger:     logger.With("actor", ref.String()),
	}
}

// Ref returns the identifier of this Actor.
func (a *Actor) Ref() ActorRef {
	return a.ref
}

// Name returns the registered name, or "" for anonymous actors.
func (a *Actor) Name() string {
	return a.name
}

// State returns the current lifecycle state.
func (a *Actor) State() ActorState {
	return a.state
}

// Supervisor returns the supervisor ref, NoRef when none was declared.
func (a *Actor) Supervisor() ActorRef {
	return a.supervisor
}

// Data returns the actor's private data.
func (a *Actor) Data() any {
	return a.data
}

// SetData replaces the actor's private data.
func (a *Actor) SetData(data any) {
	a.data = data
}

// MailboxLen returns the number of queued messages.
func (a *Actor) MailboxLen() int {
	return a.mailbox.len()
}

// Stats returns a snapshot of runtime statistics for this Actor.
func (a *Actor) Stats() ActorStats {
	s := a.stats
	s.Ref = a.ref
	s.Name = a.name
	s.State = a.state
	s.Supervisor = a.supervisor
	s.MailboxSize = a.mailbox.len()
	return s
}

// DataOf returns the actor's private data as S.
// It reports false if the data is not an S.
func DataOf[S any](a *Actor) (S, bool) {
	v, ok := a.data.(S)
	return v, ok
}

// Start moves an Initialized or Restarting actor to Running.
// Starting a Running actor is a no-op.
func (a *Actor) Start() error {
	switch a.state {
	case ActorStateInitialized, ActorStateRestarting:
		a.state = ActorStateRunning
		a.logger.Debug("actor started")
		return nil
	case ActorStateRunning:
		a.logger.Debug("actor already running")
		return nil
	default:
		return a.reject("start")
	}
}

// GracefulStop moves a Running actor to Stopping. The actor keeps draining
// its mailbox and becomes Stopped once it is empty.
func (a *Actor) GracefulStop() error {
	switch a.state {
	case ActorStateRunning:
		a.state = ActorStateStopping
		a.logger.Debug("actor stopping", "pending", a.mailbox.len())
		return nil
	case ActorStateStopping:
		a.logger.Debug("actor already stopping")
		return nil
	default:
		return a.reject("graceful stop")
	}
}

// ImmediateStop moves a Running or Stopping actor to Stopped. Queued
// messages stay in the mailbox but are no longer processed.
func (a *Actor) ImmediateStop() error {
	switch a.state {
	case ActorStateRunning, ActorStateStopping:
		a.state = ActorStateStopped
		a.logger.Debug("actor stopped", "pending", a.mailbox.len())
		return nil
	default:
		return a.reject("immediate stop")
	}
}

// Restart cycles a Running or Stopped actor through Restarting, invokes the
// registered reset hook once and starts it again.
func (a *Actor) Restart() error {
	switch a.state {
	case ActorStateRunning, ActorStateStopped:
	default:
		return a.reject("restart")
	}

	a.state = ActorStateRestarting
	if a.resetFn != nil {
		a.resetFn(a, a.resetData)
	}
	if err := a.Start(); err != nil {
		return err
	}
	a.stats.Restarts++
	a.logger.Info("actor restarted", "restarts", a.stats.Restarts)
	return nil
}

// Terminate makes the actor permanently inert and clears its mailbox.
func (a *Actor) Terminate() error {
	if a.state == ActorStateTerminated {
		return a.reject("terminate")
	}
	dropped := a.mailbox.len()
	a.mailbox.clear()
	a.state = ActorStateTerminated
	a.logger.Debug("actor terminated", "dropped", dropped)
	return nil
}

// SetStateReset attaches or replaces the hook invoked on restart.
// A nil fn removes the hook.
func (a *Actor) SetStateReset(fn StateResetFunc, userData any) {
	a.resetFn = fn
	a.resetData = userData
}

// deliver enqueues msg according to the receive policy.
func (a *Actor) deliver(msg Message) error {
	if !a.state.acceptsMail() {
		a.stats.MessagesRejected++
		a.logger.Debug("message rejected", "type", msg.Type(), "from", msg.From().String(), "state", a.state.String())
		return fmt.Errorf("actor %s in state %s: %w", a.ref, a.state, ErrMailboxRejected)
	}
	a.mailbox.push(msg)
	return nil
}

// processOne serves the actor for one round: it pops at most one message,
// runs the behavior and completes a pending graceful stop. It reports
// whether a message was processed.
func (a *Actor) processOne(sys *System) bool {
	if !a.state.dispatchable() {
		return false
	}

	processed := false
	if msg, ok := a.mailbox.pop(); ok {
		a.invoke(sys, msg)
		processed = true
	}

	if a.state == ActorStateStopping && a.mailbox.len() == 0 {
		a.state = ActorStateStopped
		a.logger.Debug("actor drained and stopped")
	}
	return processed
}

// invoke runs the behavior for msg, recovering from panics.
func (a *Actor) invoke(sys *System, msg Message) {
	a.stats.MessagesProcessed++
	a.stats.LastMessageAt = time.Now()

	defer func() {
		if r := recover(); r != nil {
			a.stats.BehaviorPanics++
			a.logger.Error("panic in behavior",
				"type", msg.Type(),
				"error", fmt.Sprint(r),
				"stack", string(debug.Stack()))
		}
	}()

	if a.behavior == nil {
		return
	}
	if err := a.behavior.Receive(sys, a, msg); err != nil {
		a.stats.BehaviorErrors++
		a.logger.Warn("behavior returned error", "type", msg.Type(), "from", msg.From().String(), "error", err)
	}
}

func (a *Actor) reject(op string) error {
	err := &TransitionError{Ref: a.ref, Op: op, From: a.state}
	a.logger.Debug("lifecycle transition rejected", "op", op, "state", a.state.String())
	return err
}
