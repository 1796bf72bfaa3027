package core

import (
	"errors"
	"fmt"
)

// Lookup and delivery errors
var (
	ErrUnknownRef      = errors.New("unknown actor ref")
	ErrMailboxRejected = errors.New("message rejected by actor state")
	ErrNameTaken       = errors.New("actor name already registered")
	ErrNoSupervisor    = errors.New("actor has no supervisor")
)

// Lifecycle errors
var (
	ErrInvalidTransition   = errors.New("invalid lifecycle transition")
	ErrSystemClosed        = errors.New("actor system is closed")
	ErrTerminateIncomplete = errors.New("actor system terminate did not converge")
)

// TransitionError reports a lifecycle operation the state machine rejected.
type TransitionError struct {
	Ref  ActorRef
	Op   string
	From ActorState
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("actor %s: cannot %s from state %s", e.Ref, e.Op, e.From)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
