package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/gofrs/flock"

	"clipvault/internal/api"
	"clipvault/internal/config"
	"clipvault/internal/logging"
	"clipvault/internal/metrics"
	"clipvault/internal/preflight"
)

// Daemon serves the clip API and enforces single-instance execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	runtime *api.Runtime
	server  *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// New constructs a daemon around an opened runtime.
func New(cfg *config.Config, runtime *api.Runtime, m *metrics.Metrics, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || runtime == nil || runtime.Service == nil {
		return nil, errors.New("daemon requires config and runtime")
	}
	logger = logging.NewComponentLogger(logger, "daemon")
	server, err := newAPIServer(cfg, runtime.Service, m, logger)
	if err != nil {
		return nil, err
	}
	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logger,
		runtime:  runtime,
		server:   server,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock, runs preflight checks, and starts serving.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another clipvault daemon instance is already running")
	}

	for _, result := range preflight.Failed(preflight.RunAll(ctx, d.cfg)) {
		d.logger.Warn("preflight check failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
		)
	}

	serveCtx, cancel := context.WithCancel(ctx)
	if err := d.server.start(serveCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start api server: %w", err)
	}
	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("clipvault daemon started",
		logging.String("lock", d.lockPath),
		logging.String("storage_dir", d.cfg.Paths.StorageDir),
	)
	return nil
}

// Stop stops serving and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.server.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("clipvault daemon stopped")
}

// Close stops the daemon and releases the runtime.
func (d *Daemon) Close() error {
	d.Stop()
	return d.runtime.Close()
}

// Addr returns the address the API is listening on, or "" when stopped.
func (d *Daemon) Addr() string {
	return d.server.addr()
}

// LockPath returns the lock file location.
func (d *Daemon) LockPath() string {
	return d.lockPath
}

// Running reports whether the daemon is serving.
func (d *Daemon) Running() bool {
	return d.running.Load()
}
