package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runRounds drives the system until no message is processed.
func runRounds(sys *System) {
	for sys.ProcessMessages() > 0 {
	}
}

func TestSupervisorStrategies(t *testing.T) {
	tests := []struct {
		strategy SupervisionStrategy
		want     ActorState
		restarts uint64
	}{
		{StrategyRestart, ActorStateRunning, 1},
		{StrategyStop, ActorStateStopped, 0},
		{StrategyResume, ActorStateRunning, 0},
	}

	for _, tt := range tests {
		t.Run(tt.strategy.String(), func(t *testing.T) {
			sys := newTestSystem()
			sup := sys.Spawn(NewSupervisor(), nil)
			child := sys.Spawn(nil, nil, WithSupervisor(sup))

			require.NoError(t, sys.ReportFailure(child, tt.strategy, "test"))
			runRounds(sys)

			stats, err := sys.ActorStats(child)
			require.NoError(t, err)
			assert.Equal(t, tt.want, stats.State)
			assert.Equal(t, tt.restarts, stats.Restarts)
		})
	}
}

func TestSupervisorRestartRunsResetHook(t *testing.T) {
	sys := newTestSystem()
	sup := sys.Spawn(NewSupervisor(), nil)
	child := sys.Spawn(nil, 99, WithSupervisor(sup))

	calls := 0
	require.NoError(t, sys.RegisterStateResetProc(child, func(self *Actor, _ any) {
		calls++
		self.SetData(0)
	}, nil))

	require.NoError(t, sys.Tell(child, sup, NewFailureMessage(Failure{Child: child, Strategy: StrategyRestart})))
	runRounds(sys)

	a, _ := sys.Lookup(child)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, a.Data())
}

func TestSupervisorEscalateToParent(t *testing.T) {
	sys := newTestSystem()

	var escalated []Failure
	root := sys.Spawn(BehaviorFunc(func(_ *System, _ *Actor, msg Message) error {
		if f, ok := PayloadOf[Failure](msg); ok {
			escalated = append(escalated, f)
		}
		return nil
	}), nil)
	mid := sys.Spawn(NewSupervisor(), nil, WithSupervisor(root))
	child := sys.Spawn(nil, nil, WithSupervisor(mid))

	require.NoError(t, sys.ReportFailure(child, StrategyEscalate, "disk full"))
	runRounds(sys)

	require.Len(t, escalated, 1)
	assert.Equal(t, child, escalated[0].Child)
	assert.Equal(t, "disk full", escalated[0].Reason)
	assert.True(t, escalated[0].Escalated)

	a, _ := sys.Lookup(child)
	assert.Equal(t, ActorStateRunning, a.State())
}

func TestSupervisorEscalateChain(t *testing.T) {
	sys := newTestSystem()
	root := sys.Spawn(NewSupervisor(WithEscalationFallback(StrategyRestart)), nil)
	mid := sys.Spawn(NewSupervisor(), nil, WithSupervisor(root))
	child := sys.Spawn(nil, nil, WithSupervisor(mid))

	require.NoError(t, sys.ReportFailure(child, StrategyEscalate, ""))
	runRounds(sys)

	stats, err := sys.ActorStats(child)
	require.NoError(t, err)
	assert.Equal(t, ActorStateRunning, stats.State)
	assert.Equal(t, uint64(1), stats.Restarts)
}

func TestSupervisorEscalateAtRootStops(t *testing.T) {
	sys := newTestSystem()
	root := sys.Spawn(NewSupervisor(), nil)
	child := sys.Spawn(nil, nil, WithSupervisor(root))

	require.NoError(t, sys.ReportFailure(child, StrategyEscalate, ""))
	runRounds(sys)

	a, _ := sys.Lookup(child)
	assert.Equal(t, ActorStateStopped, a.State())
}

func TestSupervisorUnknownChild(t *testing.T) {
	sys := newTestSystem()
	sup := sys.Spawn(NewSupervisor(), nil)
	other := sys.Spawn(nil, nil)

	require.NoError(t, sys.Tell(NoRef, sup, NewFailureMessage(Failure{Child: 404, Strategy: StrategyStop})))
	runRounds(sys)

	stats, err := sys.ActorStats(sup)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stats.BehaviorErrors)
	assert.Equal(t, ActorStateRunning, stats.State)

	a, _ := sys.Lookup(other)
	assert.Equal(t, ActorStateRunning, a.State())
}

func TestSupervisorFallback(t *testing.T) {
	sys := newTestSystem()
	rec := &recorder{}
	sup := sys.Spawn(NewSupervisor(WithFallback(rec)), nil)

	require.NoError(t, sys.Tell(NoRef, sup, NewTextMessage("text", "plain")))
	runRounds(sys)
	assert.Equal(t, []string{"plain"}, rec.received)
}

func TestSupervisorMalformedFailure(t *testing.T) {
	sys := newTestSystem()
	sup := sys.Spawn(NewSupervisor(), nil)

	require.NoError(t, sys.Tell(NoRef, sup, NewTextMessage(MessageTypeFailure, "oops")))
	runRounds(sys)

	stats, _ := sys.ActorStats(sup)
	assert.Equal(t, uint64(1), stats.BehaviorErrors)
}

func TestSupervisorRestartBudget(t *testing.T) {
	sys := newTestSystem()

	now := time.Unix(1000, 0)
	supervisor := NewSupervisor(WithMaxRestarts(2, time.Minute))
	supervisor.now = func() time.Time { return now }

	sup := sys.Spawn(supervisor, nil)
	child := sys.Spawn(nil, nil, WithSupervisor(sup))

	restart := func() {
		require.NoError(t, sys.ReportFailure(child, StrategyRestart, ""))
		runRounds(sys)
	}

	restart()
	restart()
	stats, _ := sys.ActorStats(child)
	assert.Equal(t, uint64(2), stats.Restarts)
	assert.Equal(t, ActorStateRunning, stats.State)

	// The third restart inside the window stops the child instead.
	restart()
	stats, _ = sys.ActorStats(child)
	assert.Equal(t, uint64(2), stats.Restarts)
	assert.Equal(t, ActorStateStopped, stats.State)

	// Once the window has passed the budget is available again.
	now = now.Add(2 * time.Minute)
	require.NoError(t, sys.RestartActor(child))
	restart()
	stats, _ = sys.ActorStats(child)
	assert.Equal(t, uint64(4), stats.Restarts)
	assert.Equal(t, ActorStateRunning, stats.State)
}

func TestSupervisorRestartHistoryPruned(t *testing.T) {
	sys := newTestSystem()

	now := time.Unix(1000, 0)
	supervisor := NewSupervisor(WithMaxRestarts(3, time.Minute))
	supervisor.now = func() time.Time { return now }
	sup := sys.Spawn(supervisor, nil)

	gone := sys.Spawn(nil, nil, WithSupervisor(sup))
	idle := sys.Spawn(nil, nil, WithSupervisor(sup))
	busy := sys.Spawn(nil, nil, WithSupervisor(sup))

	require.NoError(t, sys.ReportFailure(gone, StrategyRestart, ""))
	require.NoError(t, sys.ReportFailure(idle, StrategyRestart, ""))
	runRounds(sys)
	assert.Len(t, supervisor.restarts, 2)

	require.NoError(t, sys.TerminateActor(gone))
	sys.Cleanup()
	now = now.Add(2 * time.Minute)

	require.NoError(t, sys.ReportFailure(busy, StrategyRestart, ""))
	runRounds(sys)

	assert.Len(t, supervisor.restarts, 1)
	assert.Contains(t, supervisor.restarts, busy)
}

func TestReportFailureWithoutSupervisor(t *testing.T) {
	sys := newTestSystem()
	ref := sys.Spawn(nil, nil)

	assert.ErrorIs(t, sys.ReportFailure(ref, StrategyRestart, ""), ErrNoSupervisor)
	assert.ErrorIs(t, sys.ReportFailure(77, StrategyRestart, ""), ErrUnknownRef)
}

func TestSupervisionStrategyString(t *testing.T) {
	assert.Equal(t, "restart", StrategyRestart.String())
	assert.Equal(t, "stop", StrategyStop.String())
	assert.Equal(t, "resume", StrategyResume.String())
	assert.Equal(t, "escalate", StrategyEscalate.String())
	assert.Equal(t, "unknown", SupervisionStrategy(9).String())
}
