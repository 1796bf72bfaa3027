package core

import (
	"context"
	"errors"
	"testing"

	"cosmossdk.io/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSystem(opts ...SystemOption) *System {
	return NewSystem("test", append([]SystemOption{WithLogger(log.NewNopLogger())}, opts...)...)
}

// recorder collects the text of every message it receives.
type recorder struct {
	received []string
}

func (r *recorder) Receive(_ *System, _ *Actor, msg Message) error {
	text, _ := msg.Text()
	r.received = append(r.received, text)
	return nil
}

// echo sends every message back to itself, so its mailbox never drains.
var echo = BehaviorFunc(func(sys *System, self *Actor, msg Message) error {
	return sys.Tell(self.Ref(), self.Ref(), msg)
})

const pingPongLimit = 5

// pingPong answers ping with pong, and pong with ping while its count is
// below pingPongLimit. The count lives in the actor's data.
var pingPong = BehaviorFunc(func(sys *System, self *Actor, msg Message) error {
	count, _ := DataOf[int](self)
	count++
	self.SetData(count)

	switch msg.Type() {
	case "ping":
		return sys.Tell(self.Ref(), msg.From(), NewTextMessage("pong", ""))
	case "pong":
		if count < pingPongLimit {
			return sys.Tell(self.Ref(), msg.From(), NewTextMessage("ping", ""))
		}
	}
	return nil
})

func TestSystemSpawnDistinctRefs(t *testing.T) {
	sys := newTestSystem()

	seen := make(map[ActorRef]bool)
	for i := 0; i < 100; i++ {
		ref := sys.Spawn(nil, nil)
		require.NotEqual(t, NoRef, ref)
		require.False(t, seen[ref], "ref %s reused", ref)
		seen[ref] = true

		a, ok := sys.Lookup(ref)
		require.True(t, ok)
		assert.Equal(t, ActorStateRunning, a.State())
	}
	assert.Equal(t, 100, sys.Len())
}

func TestSystemRefsNotReusedAfterCleanup(t *testing.T) {
	sys := newTestSystem()

	first := sys.Spawn(nil, nil)
	require.NoError(t, sys.TerminateActor(first))
	assert.Equal(t, 1, sys.Cleanup())
	assert.Equal(t, 0, sys.Len())

	second := sys.Spawn(nil, nil)
	assert.NotEqual(t, first, second)

	_, ok := sys.Lookup(first)
	assert.False(t, ok)
}

func TestSystemTellUnknownRef(t *testing.T) {
	sys := newTestSystem()
	rec := &recorder{}
	ref := sys.Spawn(rec, nil)

	err := sys.Tell(ref, ActorRef(999), NewTextMessage("lost", ""))
	assert.ErrorIs(t, err, ErrUnknownRef)

	assert.Equal(t, 0, sys.Pending())
	assert.Equal(t, 1, sys.Len())
	assert.Equal(t, uint64(1), sys.Stats().UnknownTargets)
}

func TestSystemTellStampsSender(t *testing.T) {
	sys := newTestSystem()

	var from ActorRef
	target := sys.Spawn(BehaviorFunc(func(_ *System, _ *Actor, msg Message) error {
		from = msg.From()
		return nil
	}), nil)
	sender := sys.Spawn(nil, nil)

	require.NoError(t, sys.Tell(sender, target, NewTextMessage("hi", "")))
	sys.ProcessMessages()
	assert.Equal(t, sender, from)
}

func TestSystemOneMessagePerRound(t *testing.T) {
	sys := newTestSystem()
	rec := &recorder{}
	ref := sys.Spawn(rec, nil)

	for _, s := range []string{"a", "b", "c"} {
		require.NoError(t, sys.Tell(NoRef, ref, NewTextMessage("text", s)))
	}

	assert.Equal(t, 1, sys.ProcessMessages())
	assert.Equal(t, []string{"a"}, rec.received)
	assert.Equal(t, 2, sys.Pending())

	sys.ProcessMessages()
	sys.ProcessMessages()
	assert.Equal(t, []string{"a", "b", "c"}, rec.received)
	assert.Equal(t, 0, sys.ProcessMessages())
}

func TestSystemPingPong(t *testing.T) {
	sys := newTestSystem()
	a := sys.Spawn(pingPong, 0)
	b := sys.Spawn(pingPong, 0)

	require.NoError(t, sys.Tell(a, b, NewTextMessage("ping", "")))

	for i := 0; i < pingPongLimit; i++ {
		sys.ProcessMessages()
	}

	actorA, _ := sys.Lookup(a)
	actorB, _ := sys.Lookup(b)
	countA, _ := DataOf[int](actorA)
	countB, _ := DataOf[int](actorB)

	assert.Equal(t, pingPongLimit, countA)
	assert.Equal(t, pingPongLimit, countB)
	assert.Equal(t, 0, sys.Pending())
	assert.Equal(t, 0, sys.ProcessMessages())
}

func TestSystemGracefulStopDrains(t *testing.T) {
	sys := newTestSystem()
	rec := &recorder{}
	ref := sys.Spawn(rec, nil)

	for _, s := range []string{"a", "b", "c"} {
		require.NoError(t, sys.Tell(NoRef, ref, NewTextMessage("text", s)))
	}
	require.NoError(t, sys.GracefulStopActor(ref))

	// Stopping actors still accept mail.
	require.NoError(t, sys.Tell(NoRef, ref, NewTextMessage("text", "d")))

	a, _ := sys.Lookup(ref)
	for i := 0; i < 3; i++ {
		sys.ProcessMessages()
		assert.Equal(t, ActorStateStopping, a.State())
	}
	sys.ProcessMessages()
	assert.Equal(t, ActorStateStopped, a.State())
	assert.Equal(t, []string{"a", "b", "c", "d"}, rec.received)

	err := sys.Tell(NoRef, ref, NewTextMessage("text", "e"))
	assert.ErrorIs(t, err, ErrMailboxRejected)
	assert.Equal(t, uint64(1), sys.Stats().Rejected)
}

func TestSystemGracefulStopEmptyMailbox(t *testing.T) {
	sys := newTestSystem()
	ref := sys.Spawn(nil, nil)
	require.NoError(t, sys.GracefulStopActor(ref))

	assert.Equal(t, 0, sys.ProcessMessages())
	a, _ := sys.Lookup(ref)
	assert.Equal(t, ActorStateStopped, a.State())
}

func TestSystemStartStoppedRejected(t *testing.T) {
	sys := newTestSystem()
	ref := sys.Spawn(nil, nil)

	require.NoError(t, sys.ImmediateStopActor(ref))
	assert.ErrorIs(t, sys.StartActor(ref), ErrInvalidTransition)

	a, _ := sys.Lookup(ref)
	assert.Equal(t, ActorStateStopped, a.State())

	require.NoError(t, sys.TerminateActor(ref))
	assert.ErrorIs(t, sys.StartActor(ref), ErrInvalidTransition)
	assert.Equal(t, ActorStateTerminated, a.State())
}

func TestSystemLifecycleUnknownRef(t *testing.T) {
	sys := newTestSystem()

	ops := map[string]func(ActorRef) error{
		"start":          sys.StartActor,
		"graceful stop":  sys.GracefulStopActor,
		"immediate stop": sys.ImmediateStopActor,
		"restart":        sys.RestartActor,
		"terminate":      sys.TerminateActor,
		"reset": func(ref ActorRef) error {
			return sys.RegisterStateResetProc(ref, nil, nil)
		},
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, op(ActorRef(7)), ErrUnknownRef)
		})
	}
}

func TestSystemRestartActor(t *testing.T) {
	sys := newTestSystem()
	ref := sys.Spawn(nil, 10)

	calls := 0
	require.NoError(t, sys.RegisterStateResetProc(ref, func(self *Actor, userData any) {
		calls++
		self.SetData(userData)
	}, 0))

	require.NoError(t, sys.ImmediateStopActor(ref))
	require.NoError(t, sys.RestartActor(ref))

	a, _ := sys.Lookup(ref)
	assert.Equal(t, 1, calls)
	assert.Equal(t, ActorStateRunning, a.State())
	assert.Equal(t, 0, a.Data())
}

func TestSystemSpawnDuringRound(t *testing.T) {
	sys := newTestSystem()
	child := &recorder{}

	var childRef ActorRef
	parent := sys.Spawn(BehaviorFunc(func(sys *System, self *Actor, _ Message) error {
		childRef = sys.Spawn(child, nil)
		return sys.Tell(self.Ref(), childRef, NewTextMessage("text", "hello"))
	}), nil)

	require.NoError(t, sys.Tell(NoRef, parent, NewTextMessage("spawn", "")))

	assert.Equal(t, 1, sys.ProcessMessages())
	require.NotEqual(t, NoRef, childRef)
	assert.Empty(t, child.received)

	assert.Equal(t, 1, sys.ProcessMessages())
	assert.Equal(t, []string{"hello"}, child.received)
}

func TestSystemRemoveDuringRound(t *testing.T) {
	sys := newTestSystem()
	victim := &recorder{}
	older := sys.Spawn(victim, nil)

	newer := sys.Spawn(BehaviorFunc(func(sys *System, _ *Actor, _ Message) error {
		if err := sys.TerminateActor(older); err != nil {
			return err
		}
		sys.Cleanup()
		return nil
	}), nil)

	require.NoError(t, sys.Tell(NoRef, older, NewTextMessage("text", "never")))
	require.NoError(t, sys.Tell(NoRef, newer, NewTextMessage("kill", "")))

	// The newer actor runs first and removes the older one mid-round.
	assert.Equal(t, 1, sys.ProcessMessages())
	assert.Empty(t, victim.received)
	assert.Equal(t, []ActorRef{newer}, sys.Refs())
}

func TestSystemNames(t *testing.T) {
	sys := newTestSystem()
	rec := &recorder{}
	ref := sys.Spawn(rec, nil, WithName("logger"))

	got, ok := sys.Whereis("logger")
	require.True(t, ok)
	assert.Equal(t, ref, got)

	a, _ := sys.Lookup(ref)
	assert.Equal(t, "logger", a.Name())

	require.NoError(t, sys.TellByName(NoRef, "logger", NewTextMessage("text", "x")))
	sys.ProcessMessages()
	assert.Equal(t, []string{"x"}, rec.received)

	assert.ErrorIs(t, sys.TellByName(NoRef, "missing", NewTextMessage("text", "")), ErrUnknownRef)

	other := sys.Spawn(nil, nil)
	assert.ErrorIs(t, sys.RegisterName(other, "logger"), ErrNameTaken)

	// Names are released with their actor.
	require.NoError(t, sys.TerminateActor(ref))
	sys.Cleanup()
	_, ok = sys.Whereis("logger")
	assert.False(t, ok)
	require.NoError(t, sys.RegisterName(other, "logger"))
	assert.Equal(t, []string{"logger"}, sys.Names())
}

func TestSystemCleanupOnlyTerminated(t *testing.T) {
	sys := newTestSystem()
	running := sys.Spawn(nil, nil)
	stopped := sys.Spawn(nil, nil)
	terminated := sys.Spawn(nil, nil)

	require.NoError(t, sys.ImmediateStopActor(stopped))
	require.NoError(t, sys.TerminateActor(terminated))

	assert.Equal(t, 1, sys.Cleanup())
	assert.Equal(t, []ActorRef{running, stopped}, sys.Refs())

	assert.Equal(t, 1, sys.TerminateStopped())
	assert.Equal(t, []ActorRef{running}, sys.Refs())
}

func TestSystemTerminateConverges(t *testing.T) {
	sys := newTestSystem()
	rec := &recorder{}
	ref := sys.Spawn(rec, nil)
	sys.Spawn(nil, nil)
	for _, s := range []string{"a", "b", "c"} {
		require.NoError(t, sys.Tell(NoRef, ref, NewTextMessage("text", s)))
	}

	require.NoError(t, sys.Terminate(context.Background()))
	assert.Equal(t, []string{"a", "b", "c"}, rec.received)
	assert.Equal(t, 0, sys.Len())
	assert.True(t, sys.Closed())

	assert.ErrorIs(t, sys.Terminate(context.Background()), ErrSystemClosed)
}

func TestSystemTerminateIdleWithinActorCount(t *testing.T) {
	sys := newTestSystem()
	const n = 5
	for i := 0; i < n; i++ {
		sys.Spawn(&recorder{}, nil)
	}

	require.NoError(t, sys.Terminate(context.Background()))
	assert.LessOrEqual(t, sys.Stats().Rounds, uint64(n))
	assert.Equal(t, 0, sys.Len())
}

func TestSystemDispatchNewestFirst(t *testing.T) {
	sys := newTestSystem()

	var order []ActorRef
	track := BehaviorFunc(func(_ *System, self *Actor, _ Message) error {
		order = append(order, self.Ref())
		return nil
	})
	older := sys.Spawn(track, nil)
	newer := sys.Spawn(track, nil)
	require.NoError(t, sys.Tell(NoRef, older, NewTextMessage("tick", "")))
	require.NoError(t, sys.Tell(NoRef, newer, NewTextMessage("tick", "")))

	assert.Equal(t, 2, sys.ProcessMessages())
	assert.Equal(t, []ActorRef{newer, older}, order)
}

func TestSystemReplyToOlderPeerSameRound(t *testing.T) {
	sys := newTestSystem()
	rec := &recorder{}
	older := sys.Spawn(rec, nil)
	newer := sys.Spawn(BehaviorFunc(func(sys *System, self *Actor, msg Message) error {
		return sys.Tell(self.Ref(), msg.From(), NewTextMessage("reply", "pong"))
	}), nil)

	require.NoError(t, sys.Tell(older, newer, NewTextMessage("request", "ping")))
	assert.Equal(t, 2, sys.ProcessMessages())
	assert.Equal(t, []string{"pong"}, rec.received)
}

func TestSystemSpawnRefsExhausted(t *testing.T) {
	sys := newTestSystem()
	sys.reg.lastRef = ^ActorRef(0) - 1

	last := sys.Spawn(nil, nil)
	assert.Equal(t, ^ActorRef(0), last)

	assert.Equal(t, NoRef, sys.Spawn(nil, nil))
	assert.Equal(t, NoRef, sys.Spawn(nil, nil))
	assert.Equal(t, 1, sys.Len())
}

func TestSystemTerminateMaxRounds(t *testing.T) {
	sys := newTestSystem(WithTerminateMaxRounds(5))
	ref := sys.Spawn(echo, nil)
	require.NoError(t, sys.Tell(NoRef, ref, NewTextMessage("loop", "")))

	err := sys.Terminate(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTerminateIncomplete)
	assert.Equal(t, 0, sys.Len())
	assert.True(t, sys.Closed())
}

func TestSystemTerminateContextCanceled(t *testing.T) {
	sys := newTestSystem()
	ref := sys.Spawn(echo, nil)
	require.NoError(t, sys.Tell(NoRef, ref, NewTextMessage("loop", "")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := sys.Terminate(ctx)
	assert.ErrorIs(t, err, ErrTerminateIncomplete)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 0, sys.Len())
}

func TestSystemDestroy(t *testing.T) {
	sys := newTestSystem()
	ref := sys.Spawn(echo, nil, WithName("echo"))
	require.NoError(t, sys.Tell(NoRef, ref, NewTextMessage("loop", "")))
	a, _ := sys.Lookup(ref)

	sys.Destroy()
	assert.True(t, sys.Closed())
	assert.Equal(t, 0, sys.Len())
	assert.Empty(t, sys.Names())
	assert.Equal(t, ActorStateTerminated, a.State())

	// Destroy is idempotent.
	sys.Destroy()
}

func TestSystemClosed(t *testing.T) {
	sys := newTestSystem()
	sys.Destroy()

	assert.Equal(t, NoRef, sys.Spawn(nil, nil))
	assert.ErrorIs(t, sys.Tell(NoRef, 1, NewTextMessage("x", "")), ErrSystemClosed)
	assert.Equal(t, 0, sys.ProcessMessages())
}

func TestSystemStats(t *testing.T) {
	sys := newTestSystem()
	ref := sys.Spawn(nil, nil, WithName("worker"))
	require.NoError(t, sys.Tell(NoRef, ref, NewTextMessage("a", "")))
	require.NoError(t, sys.Tell(NoRef, ref, NewTextMessage("b", "")))
	sys.ProcessMessages()

	stats := sys.Stats()
	assert.Equal(t, "test", stats.Name)
	assert.Equal(t, 1, stats.Actors)
	assert.Equal(t, uint64(1), stats.Rounds)
	assert.Equal(t, uint64(1), stats.MessagesProcessed)
	assert.Equal(t, 1, stats.Pending)

	all := sys.AllActorStats()
	require.Len(t, all, 1)
	assert.Equal(t, "worker", all[0].Name)
	assert.Equal(t, 1, all[0].MailboxSize)

	_, err := sys.ActorStats(99)
	assert.ErrorIs(t, err, ErrUnknownRef)
	assert.NotEmpty(t, sys.ID())
}
