package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"cosmossdk.io/log"
	"golang.org/x/sync/semaphore"

	"github.com/najoast/coact/config"
	"github.com/najoast/coact/core"
)

// ErrDispatcherStarted is returned when a dispatcher is started twice.
var ErrDispatcherStarted = errors.New("dispatcher already started")

// Dispatcher drives a core.System from a goroutine: on every tick it runs up
// to RoundsPerTick rounds, ending the tick early once a round is idle.
//
// core.System is single-threaded. All access from other goroutines must go
// through Do, which serializes callers with the dispatch loop.
type Dispatcher struct {
	sys    *core.System
	logger log.Logger

	// Held for every round and every Do call
	sem *semaphore.Weighted

	// Settings, guarded by sem
	settings config.DispatcherConfig
	ticks    uint64

	rounds  atomic.Uint64
	running atomic.Bool

	resetTicker chan time.Duration

	startOnce sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewDispatcher creates a dispatcher for sys. It does not start the loop.
func NewDispatcher(sys *core.System, cfg config.DispatcherConfig, logger log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Dispatcher{
		sys:         sys,
		logger:      logger.With("module", "dispatcher"),
		sem:         semaphore.NewWeighted(1),
		settings:    normalize(cfg),
		resetTicker: make(chan time.Duration, 1),
		done:        make(chan struct{}),
	}
}

func normalize(cfg config.DispatcherConfig) config.DispatcherConfig {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 10 * time.Millisecond
	}
	if cfg.RoundsPerTick <= 0 {
		cfg.RoundsPerTick = 1
	}
	if cfg.CleanupEvery < 0 {
		cfg.CleanupEvery = 0
	}
	return cfg
}

// Name implements Service.
func (d *Dispatcher) Name() string {
	return "dispatcher"
}

// Start launches the dispatch loop. The loop outlives ctx; it ends on Stop or
// when the round budget is spent. A dispatcher can be started only once.
func (d *Dispatcher) Start(ctx context.Context) error {
	err := ErrDispatcherStarted
	d.startOnce.Do(func() {
		err = d.sem.Acquire(ctx, 1)
		if err != nil {
			return
		}
		settings := d.settings
		d.sem.Release(1)

		var loopCtx context.Context
		loopCtx, d.cancel = context.WithCancel(context.Background())
		d.running.Store(true)
		go d.loop(loopCtx, settings.TickInterval)

		d.logger.Info("dispatcher started",
			"tick_interval", settings.TickInterval,
			"rounds_per_tick", settings.RoundsPerTick)
	})
	return err
}

// Stop ends the dispatch loop and waits for the current tick to finish.
func (d *Dispatcher) Stop(ctx context.Context) error {
	if d.cancel == nil {
		return nil
	}
	d.cancel()

	select {
	case <-d.done:
		d.logger.Info("dispatcher stopped", "rounds", d.rounds.Load())
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for dispatcher: %w", ctx.Err())
	}
}

// Health implements Service.
func (d *Dispatcher) Health(ctx context.Context) (HealthStatus, error) {
	status := HealthStatus{
		State:     HealthHealthy,
		Message:   "dispatching rounds",
		LastCheck: time.Now(),
		Data: map[string]interface{}{
			"rounds": d.rounds.Load(),
		},
	}

	if !d.running.Load() {
		status.State = HealthStopped
		status.Message = "dispatcher not running"
	}

	err := d.Do(ctx, func(sys *core.System) {
		stats := sys.Stats()
		status.Data["actors"] = stats.Actors
		status.Data["pending"] = stats.Pending
	})
	return status, err
}

// Done is closed when the dispatch loop has exited.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

// Rounds returns the number of rounds run so far.
func (d *Dispatcher) Rounds() uint64 {
	return d.rounds.Load()
}

// System returns the dispatched system. Use Do to access it once the
// dispatcher has started.
func (d *Dispatcher) System() *core.System {
	return d.sys
}

// Do runs fn with exclusive access to the system. It blocks until any
// in-progress round completes or ctx is done.
func (d *Dispatcher) Do(ctx context.Context, fn func(sys *core.System)) error {
	if err := d.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer d.sem.Release(1)

	fn(d.sys)
	return nil
}

// ApplyConfig replaces the dispatcher settings. A new tick interval takes
// effect on the next tick.
func (d *Dispatcher) ApplyConfig(cfg config.DispatcherConfig) {
	cfg = normalize(cfg)

	_ = d.sem.Acquire(context.Background(), 1)
	old := d.settings
	d.settings = cfg
	d.sem.Release(1)

	if cfg.TickInterval != old.TickInterval {
		select {
		case <-d.resetTicker:
		default:
		}
		d.resetTicker <- cfg.TickInterval
	}

	d.logger.Info("dispatcher settings updated",
		"tick_interval", cfg.TickInterval,
		"rounds_per_tick", cfg.RoundsPerTick,
		"cleanup_every", cfg.CleanupEvery,
		"max_rounds", cfg.MaxRounds)
}

func (d *Dispatcher) loop(ctx context.Context, interval time.Duration) {
	defer close(d.done)
	defer d.running.Store(false)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case interval := <-d.resetTicker:
			ticker.Reset(interval)

		case <-ticker.C:
			if !d.tick(ctx) {
				d.logger.Info("dispatch loop finished", "rounds", d.rounds.Load())
				return
			}
		}
	}
}

// tick runs the rounds of one tick. It reports false once the round budget
// is spent or the system has been closed.
func (d *Dispatcher) tick(ctx context.Context) bool {
	if err := d.sem.Acquire(ctx, 1); err != nil {
		return true
	}
	defer d.sem.Release(1)

	if d.sys.Closed() {
		return false
	}

	for i := 0; i < d.settings.RoundsPerTick; i++ {
		if d.settings.MaxRounds > 0 && d.rounds.Load() >= d.settings.MaxRounds {
			return false
		}
		processed := d.sys.ProcessMessages()
		d.rounds.Add(1)
		if processed == 0 {
			break
		}
	}

	d.ticks++
	if d.settings.CleanupEvery > 0 && d.ticks%uint64(d.settings.CleanupEvery) == 0 {
		d.sys.Cleanup()
	}
	return true
}
