package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"karaoke/internal/config"
	"karaoke/internal/daemon"
	"karaoke/internal/logging"
	"karaoke/internal/notifications"
	"karaoke/internal/preflight"
	"karaoke/internal/queue"
	"karaoke/internal/workflow"
)

const logStreamCapacity = 4096

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the karaoke daemon and blocks until ctx ends or the process
// receives SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logHub := logging.NewStreamHub(logStreamCapacity)
	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout"},
		FilePath:    cfg.LogFilePath(),
		Development: opts.Development,
		Stream:      logHub,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logDependencySnapshot(signalCtx, logger, cfg)

	pidPath := filepath.Join(cfg.Paths.LogDir, "karaoked.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return err
	}

	notifier := notifications.NewService(cfg)
	manager := workflow.NewManager(cfg, store, logger, workflow.WithNotifier(notifier))

	d, err := daemon.New(cfg, store, logger, manager, logHub, notifier)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logger.Error("daemon start failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_start_failed"),
			logging.String(logging.FieldErrorHint, "check that no other karaoked is running and the api bind is free"),
		)
		return err
	}

	<-signalCtx.Done()
	logger.Info("karaoke daemon shutting down", logging.String(logging.FieldEventType, "daemon_shutdown"))
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.Bool("transcription_enabled", cfg.Transcription.Enabled),
		logging.Bool("ntfy_configured", cfg.Notifications.NtfyTopic != ""),
		logging.Bool("redis_configured", cfg.Notifications.RedisAddr != ""),
	}
	missing := 0
	for _, status := range preflight.CheckSystemDeps(ctx, cfg) {
		attrs = append(attrs, logging.Bool(strings.ToLower(status.Name)+"_available", status.Available))
		if !status.Available && !status.Optional {
			missing++
		}
	}
	if missing > 0 {
		logging.WarnWithContext(logger, "required dependencies missing", "dependency_snapshot",
			append(attrs,
				logging.Int("missing", missing),
				logging.String(logging.FieldErrorHint, "install ffmpeg with libass support and check render.ffmpeg_binary"),
			)...)
		return
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)
}
