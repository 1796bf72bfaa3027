package core

import (
	"fmt"
	"time"
)

// ActorRef is the identifier of an Actor within one System.
// Refs are assigned from a strictly increasing counter and never reused.
type ActorRef uint32

// NoRef is the zero ActorRef. It never identifies a registered actor and is
// used as the sender of messages that originate outside the system.
const NoRef ActorRef = 0

// String returns the string representation of ActorRef.
func (r ActorRef) String() string {
	if r == NoRef {
		return ":none"
	}
	return fmt.Sprintf(":%08x", uint32(r))
}

// ActorState represents the lifecycle state of an Actor.
type ActorState uint8

const (
	// ActorStateInitialized means the Actor was created but not started
	ActorStateInitialized ActorState = iota

	// ActorStateRunning means the Actor accepts and processes messages
	ActorStateRunning

	// ActorStateStopping means the Actor drains its mailbox before stopping
	ActorStateStopping

	// ActorStateStopped means the Actor no longer processes messages
	ActorStateStopped

	// ActorStateRestarting means the Actor is between Restart and Start
	ActorStateRestarting

	// ActorStateTerminated is terminal; the Actor is permanently inert
	ActorStateTerminated
)

// String returns the string representation of ActorState.
func (s ActorState) String() string {
	switch s {
	case ActorStateInitialized:
		return "initialized"
	case ActorStateRunning:
		return "running"
	case ActorStateStopping:
		return "stopping"
	case ActorStateStopped:
		return "stopped"
	case ActorStateRestarting:
		return "restarting"
	case ActorStateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// acceptsMail reports whether an Actor in this state enqueues new messages.
func (s ActorState) acceptsMail() bool {
	return s == ActorStateRunning || s == ActorStateStopping || s == ActorStateRestarting
}

// dispatchable reports whether an Actor in this state is served by a round.
func (s ActorState) dispatchable() bool {
	return s == ActorStateRunning || s == ActorStateStopping
}

// Behavior defines how an Actor reacts to a message.
//
// Receive runs synchronously inside a dispatch round and must not block. It
// may mutate self's state, send messages and request lifecycle transitions
// through sys. A returned error is reported and counted but does not change
// the Actor's state.
type Behavior interface {
	Receive(sys *System, self *Actor, msg Message) error
}

// BehaviorFunc adapts an ordinary function to the Behavior interface.
type BehaviorFunc func(sys *System, self *Actor, msg Message) error

// Receive calls f(sys, self, msg).
func (f BehaviorFunc) Receive(sys *System, self *Actor, msg Message) error {
	return f(sys, self, msg)
}

// StateResetFunc restores an Actor's state when it is restarted.
// userData is the value registered alongside the hook.
type StateResetFunc func(self *Actor, userData any)

// ActorStats contains runtime statistics for an Actor.
type ActorStats struct {
	// Ref of the Actor
	Ref ActorRef

	// Name of the Actor, empty when anonymous
	Name string

	// Current state
	State ActorState

	// Supervisor of the Actor, NoRef when none
	Supervisor ActorRef

	// Total messages processed
	MessagesProcessed uint64

	// Messages dropped by the receive policy
	MessagesRejected uint64

	// Behavior invocations that returned an error
	BehaviorErrors uint64

	// Behavior invocations that panicked
	BehaviorPanics uint64

	// Number of completed restarts
	Restarts uint64

	// Messages currently in mailbox
	MailboxSize int

	// Time when Actor was created
	CreatedAt time.Time

	// Last message processing time
	LastMessageAt time.Time
}

// SystemStats contains aggregated statistics for a System.
type SystemStats struct {
	// Name of the system
	Name string

	// Number of registered actors
	Actors int

	// Rounds executed by ProcessMessages
	Rounds uint64

	// Messages processed across all actors
	MessagesProcessed uint64

	// Messages dropped because the target ref was unknown
	UnknownTargets uint64

	// Messages dropped by a target's receive policy
	Rejected uint64

	// Messages waiting in mailboxes
	Pending int
}
