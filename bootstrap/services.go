package bootstrap

import (
	"context"
	"errors"
	"time"

	"cosmossdk.io/log"

	"github.com/najoast/coact/config"
	"github.com/najoast/coact/core"
)

// SystemService wraps the actor system as a managed service. Stopping it
// terminates the system gracefully.
type SystemService struct {
	dispatcher *Dispatcher
	logger     log.Logger
}

// NewSystemService creates the service owning the dispatcher's system.
func NewSystemService(d *Dispatcher, logger log.Logger) *SystemService {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &SystemService{dispatcher: d, logger: logger}
}

func (s *SystemService) Name() string {
	return "actor-system"
}

func (s *SystemService) Start(ctx context.Context) error {
	return s.dispatcher.Do(ctx, func(sys *core.System) {
		s.logger.Info("actor system ready", "system", sys.Name(), "id", sys.ID(), "actors", sys.Len())
	})
}

// Stop runs core.System.Terminate. An incomplete termination is logged and
// reported; the system is closed either way.
func (s *SystemService) Stop(ctx context.Context) error {
	var err error
	doErr := s.dispatcher.Do(ctx, func(sys *core.System) {
		if sys.Closed() {
			return
		}
		err = sys.Terminate(ctx)
	})
	if doErr != nil {
		return doErr
	}
	if errors.Is(err, core.ErrTerminateIncomplete) {
		s.logger.Warn("actor system did not drain before shutdown", "error", err)
	}
	return err
}

func (s *SystemService) Health(ctx context.Context) (HealthStatus, error) {
	status := HealthStatus{LastCheck: time.Now()}

	err := s.dispatcher.Do(ctx, func(sys *core.System) {
		if sys.Closed() {
			status.State = HealthStopped
			status.Message = "actor system closed"
			return
		}

		stats := sys.Stats()
		status.State = HealthHealthy
		status.Message = "actor system running"
		status.Data = map[string]interface{}{
			"id":                 sys.ID(),
			"actors":             stats.Actors,
			"pending":            stats.Pending,
			"rounds":             stats.Rounds,
			"messages_processed": stats.MessagesProcessed,
			"unknown_targets":    stats.UnknownTargets,
			"rejected":           stats.Rejected,
		}
	})
	return status, err
}

// ConfigWatcherService runs a config.Watcher and applies dispatcher settings
// from reloaded configuration.
type ConfigWatcherService struct {
	watcher    *config.Watcher
	dispatcher *Dispatcher
	logger     log.Logger
}

// NewConfigWatcherService creates the hot-reload service.
func NewConfigWatcherService(w *config.Watcher, d *Dispatcher, logger log.Logger) *ConfigWatcherService {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	s := &ConfigWatcherService{watcher: w, dispatcher: d, logger: logger}
	w.OnConfigChange(s.onChange)
	return s
}

func (s *ConfigWatcherService) Name() string {
	return "config-watcher"
}

func (s *ConfigWatcherService) Start(ctx context.Context) error {
	return s.watcher.Start()
}

func (s *ConfigWatcherService) Stop(ctx context.Context) error {
	return s.watcher.Stop()
}

func (s *ConfigWatcherService) Health(ctx context.Context) (HealthStatus, error) {
	return HealthStatus{
		State:     HealthHealthy,
		Message:   "watching configuration",
		LastCheck: time.Now(),
		Data:      map[string]interface{}{"app": s.watcher.GetConfig().App.Name},
	}, nil
}

func (s *ConfigWatcherService) onChange(oldConfig, newConfig *config.Config) {
	if oldConfig.Dispatcher != newConfig.Dispatcher {
		s.dispatcher.ApplyConfig(newConfig.Dispatcher)
	}
	if oldConfig.Log != newConfig.Log || oldConfig.Actor != newConfig.Actor {
		s.logger.Warn("log and actor settings take effect on restart")
	}
}
