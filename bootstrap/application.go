package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"cosmossdk.io/log"
	"golang.org/x/sync/errgroup"

	"github.com/najoast/coact/config"
	"github.com/najoast/coact/core"
)

var (
	// ErrAlreadyStarted is returned when Run is called more than once.
	ErrAlreadyStarted = errors.New("application already started")

	// ErrInterrupted is the shutdown cause logged when a signal ends Run.
	ErrInterrupted = errors.New("interrupted by signal")
)

// Application wires configuration, logging, an actor system and its
// dispatcher under one lifecycle manager.
type Application struct {
	config *config.Config
	logger log.Logger
	closer io.Closer

	system     *core.System
	dispatcher *Dispatcher
	lifecycle  *DefaultLifecycleManager
	watcher    *config.Watcher

	// Signals that end Run, empty when disabled
	signals []os.Signal

	mutex   sync.Mutex
	started bool
}

type options struct {
	configFile string
	logger     log.Logger
	systemOpts []core.SystemOption
	services   []serviceEntry
	signals    []os.Signal
	noSignals  bool
}

type serviceEntry struct {
	service Service
	deps    []string
}

// Option configures an Application.
type Option func(*options)

// WithConfigFile loads configuration from path and watches it for changes.
// Dispatcher settings are applied on reload.
func WithConfigFile(path string) Option {
	return func(o *options) {
		o.configFile = path
	}
}

// WithLogger overrides the logger built from the log configuration.
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithSystemOptions passes additional options to core.NewSystem.
func WithSystemOptions(opts ...core.SystemOption) Option {
	return func(o *options) {
		o.systemOpts = append(o.systemOpts, opts...)
	}
}

// WithService registers an additional service. It is started after the
// named dependencies.
func WithService(service Service, deps ...string) Option {
	return func(o *options) {
		o.services = append(o.services, serviceEntry{service: service, deps: deps})
	}
}

// WithSignals replaces the signals that end Run, SIGINT and SIGTERM by
// default.
func WithSignals(sigs ...os.Signal) Option {
	return func(o *options) {
		o.signals = sigs
	}
}

// WithoutSignals disables signal handling in Run.
func WithoutSignals() Option {
	return func(o *options) {
		o.noSignals = true
	}
}

// NewApplication builds an application from cfg. A nil cfg uses the defaults,
// or the file given with WithConfigFile.
func NewApplication(cfg *config.Config, opts ...Option) (*Application, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	app := &Application{closer: nopCloser{}}
	if !o.noSignals {
		app.signals = o.signals
		if len(app.signals) == 0 {
			app.signals = []os.Signal{os.Interrupt, syscall.SIGTERM}
		}
	}

	loader := config.NewLoader()
	if o.configFile != "" {
		loaded, err := loader.LoadFromFile(o.configFile)
		if err != nil {
			return nil, &ApplicationError{Operation: "load config", Err: err}
		}
		cfg = loaded
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, &ApplicationError{Operation: "validate config", Err: err}
	}
	app.config = cfg

	app.logger = o.logger
	if app.logger == nil {
		logger, closer, err := NewLogger(cfg.Log)
		if err != nil {
			return nil, &ApplicationError{Operation: "create logger", Err: err}
		}
		app.logger, app.closer = logger, closer
	}
	app.logger = app.logger.With("app", cfg.App.Name)

	if o.configFile != "" {
		w, err := config.NewWatcher(o.configFile, loader, config.WithWatcherLogger(app.logger))
		if err != nil {
			_ = app.closer.Close()
			return nil, &ApplicationError{Operation: "watch config", Err: err}
		}
		app.watcher = w
	}

	systemOpts := append([]core.SystemOption{
		core.WithLogger(app.logger),
		core.WithMailboxCapacity(cfg.Actor.MailboxCapacity),
		core.WithTerminateMaxRounds(cfg.Actor.TerminateMaxRounds),
	}, o.systemOpts...)
	app.system = core.NewSystem(cfg.GetSystemName(), systemOpts...)
	app.dispatcher = NewDispatcher(app.system, cfg.Dispatcher, app.logger)
	app.lifecycle = NewLifecycleManager(app.logger)
	if cfg.Actor.ShutdownTimeout > 0 {
		app.lifecycle.SetTimeout(cfg.Actor.ShutdownTimeout)
	}

	services := []serviceEntry{
		{service: NewSystemService(app.dispatcher, app.logger)},
		{service: app.dispatcher, deps: []string{"actor-system"}},
	}
	if app.watcher != nil {
		services = append(services, serviceEntry{
			service: NewConfigWatcherService(app.watcher, app.dispatcher, app.logger),
			deps:    []string{"dispatcher"},
		})
	}
	for _, entry := range append(services, o.services...) {
		if err := app.lifecycle.Register(entry.service.Name(), entry.service, entry.deps...); err != nil {
			app.release()
			return nil, &ApplicationError{Operation: "register", Service: entry.service.Name(), Err: err}
		}
	}

	return app, nil
}

// Run starts all services and blocks until ctx is done, a shutdown signal
// arrives or the dispatcher finishes. It then stops the services in reverse
// order, which terminates the actor system gracefully.
func (app *Application) Run(ctx context.Context) error {
	app.mutex.Lock()
	if app.started {
		app.mutex.Unlock()
		return ErrAlreadyStarted
	}
	app.started = true
	app.mutex.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	waitCtx := runCtx
	if len(app.signals) > 0 {
		var stop context.CancelFunc
		waitCtx, stop = signal.NotifyContext(runCtx, app.signals...)
		defer stop()
	}

	if err := app.lifecycle.Start(ctx); err != nil {
		_ = app.closer.Close()
		return &ApplicationError{Operation: "start", Err: err}
	}
	app.logger.Info("application started",
		"version", app.config.App.Version,
		"environment", app.config.App.Environment.String(),
		"system_id", app.system.ID())

	g, gctx := errgroup.WithContext(waitCtx)
	g.Go(func() error {
		select {
		case <-app.dispatcher.Done():
			app.logger.Info("dispatcher finished", "rounds", app.dispatcher.Rounds())
			cancel()
		case <-gctx.Done():
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		// runCtx is still live only when a signal ended the wait.
		if runCtx.Err() == nil {
			return ErrInterrupted
		}
		return nil
	})

	cause := g.Wait()
	if cause == nil {
		cause = context.Cause(runCtx)
	}
	app.logger.Info("shutting down", "cause", cause)

	return app.shutdown(ctx)
}

func (app *Application) shutdown(ctx context.Context) error {
	stopCtx := context.WithoutCancel(ctx)
	if timeout := app.config.Actor.ShutdownTimeout; timeout > 0 {
		var cancel context.CancelFunc
		stopCtx, cancel = context.WithTimeout(stopCtx, timeout)
		defer cancel()
	}

	var errs []error
	if err := app.lifecycle.Stop(stopCtx); err != nil {
		errs = append(errs, &ApplicationError{Operation: "shutdown", Err: err})
	}
	app.logger.Info("application stopped", "rounds", app.dispatcher.Rounds())

	if err := app.closer.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close log output: %w", err))
	}
	return errors.Join(errs...)
}

// release frees what NewApplication acquired before it failed.
func (app *Application) release() {
	if app.watcher != nil {
		_ = app.watcher.Stop()
	}
	_ = app.closer.Close()
}

// Health returns the health of every registered service.
func (app *Application) Health(ctx context.Context) (map[string]HealthStatus, error) {
	return app.lifecycle.Health(ctx)
}

// Config returns the configuration the application was built from.
func (app *Application) Config() *config.Config {
	return app.config
}

// Logger returns the application logger.
func (app *Application) Logger() log.Logger {
	return app.logger
}

// System returns the actor system. Once Run has been called, access it only
// through Dispatcher().Do.
func (app *Application) System() *core.System {
	return app.system
}

// Dispatcher returns the dispatcher driving the system.
func (app *Application) Dispatcher() *Dispatcher {
	return app.dispatcher
}

// LifecycleManager returns the lifecycle manager
func (app *Application) LifecycleManager() *DefaultLifecycleManager {
	return app.lifecycle
}
