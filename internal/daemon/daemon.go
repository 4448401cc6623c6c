package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"karaoke/internal/config"
	"karaoke/internal/deps"
	"karaoke/internal/logging"
	"karaoke/internal/notifications"
	"karaoke/internal/preflight"
	"karaoke/internal/queue"
	"karaoke/internal/workflow"
)

// Daemon coordinates the background workers and enforces single-instance
// execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *queue.Store
	workflow *workflow.Manager
	logHub   *logging.StreamHub
	notifier notifications.Service
	api      *apiServer

	lockPath string
	lock     *flock.Flock

	mu      sync.Mutex
	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	Workflow     workflow.StatusSummary
	StoredJobs   map[string]int
	QueueDBPath  string
	LockFilePath string
	LogPath      string
	Dependencies []deps.Status
	Sinks        []preflight.Result
}

// New constructs a daemon. logHub and notifier may be nil.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, wf *workflow.Manager, logHub *logging.StreamHub, notifier notifications.Service) (*Daemon, error) {
	if cfg == nil || store == nil || wf == nil {
		return nil, errors.New("daemon requires config, store, and workflow manager")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		workflow: wf,
		logHub:   logHub,
		notifier: notifier,
		lockPath: cfg.LockPath(),
		lock:     flock.New(cfg.LockPath()),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock, starts the workers and begins serving the
// API.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another karaoke daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.workflow.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start workflow: %w", err)
	}
	if err := d.api.start(runCtx); err != nil {
		cancel()
		d.workflow.Stop()
		_ = d.lock.Unlock()
		return err
	}

	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("karaoke daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
		logging.String("api", d.APIAddress()),
	)
	return nil
}

// Stop stops the API and the workers and releases the daemon lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() {
		return
	}

	d.api.stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.workflow.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_lock_release_failed"),
			logging.String(logging.FieldErrorHint, "remove "+d.lockPath+" if the next start fails"),
		)
	}
	d.running.Store(false)
	d.logger.Info("karaoke daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close stops the daemon and releases the store.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// APIAddress returns the address the API listens on, or "" when stopped.
func (d *Daemon) APIAddress() string {
	return d.api.address()
}

// Workflow exposes the job manager.
func (d *Daemon) Workflow() *workflow.Manager {
	return d.workflow
}

// LogStream returns the in-memory log event hub.
func (d *Daemon) LogStream() *logging.StreamHub {
	return d.logHub
}

// Status returns the current daemon status including dependency and sink
// health.
func (d *Daemon) Status(ctx context.Context) Status {
	stored, err := d.store.Stats(ctx)
	if err != nil {
		logging.WarnWithContext(d.logger, "job stats unavailable", "job_stats_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the jobs database"),
			logging.String(logging.FieldImpact, "status omits stored job counts"),
		)
	}
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Workflow:     d.workflow.Status(),
		StoredJobs:   stored,
		QueueDBPath:  d.cfg.QueueDBPath(),
		LockFilePath: d.lockPath,
		LogPath:      d.cfg.LogFilePath(),
		Dependencies: preflight.CheckSystemDeps(ctx, d.cfg),
		Sinks:        preflight.CheckSinks(ctx, d.cfg),
	}
}

// TestNotification sends a test message through every configured sink.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" && strings.TrimSpace(d.cfg.Notifications.RedisAddr) == "" {
		return false, "no notification sink configured", nil
	}
	if err := d.notifier.Publish(ctx, notifications.EventTest, notifications.Payload{}); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}
