package render

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"karaoke/internal/logging"
	"karaoke/internal/services"
)

// Runner executes render plans with ffmpeg.
type Runner struct {
	binary   string
	timeout  time.Duration
	logger   *slog.Logger
	progress func(Progress)
}

// NewRunner constructs a Runner. A zero timeout disables the deadline.
func NewRunner(binary string, timeout time.Duration, logger *slog.Logger) *Runner {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runner{binary: binary, timeout: timeout, logger: logger}
}

// WithProgress returns a copy of the runner that reports stats updates.
func (r *Runner) WithProgress(fn func(Progress)) *Runner {
	clone := *r
	clone.progress = fn
	return &clone
}

// Binary returns the ffmpeg executable used by the runner.
func (r *Runner) Binary() string {
	return r.binary
}

// Run executes the plan. Partial output is removed on failure.
func (r *Runner) Run(ctx context.Context, plan Plan) error {
	if len(plan.Args) == 0 {
		return services.Wrap(services.ErrValidation, "render", "run", "plan has no arguments", nil)
	}
	runCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	stderr := &stderrCapture{total: plan.Duration}
	sampler := logging.NewProgressSampler(10)
	stderr.progress = func(p Progress) {
		if r.progress != nil {
			r.progress(p)
		}
		if p.Percent >= 0 && sampler.ShouldLog(p.Percent, "encode") {
			r.logger.Debug("encode progress",
				logging.Float64(logging.FieldProgressPercent, p.Percent),
				logging.Duration("position", p.Position),
				logging.Float64("speed", p.Speed),
			)
		}
	}

	cmd := exec.CommandContext(runCtx, r.binary, plan.Args...)
	cmd.Stderr = stderr
	cmd.WaitDelay = 5 * time.Second

	start := time.Now()
	r.logger.Info("encode started",
		logging.String("output", plan.Output),
		logging.String("filters", plan.FilterChain()),
		logging.String("frame", plan.Frame.String()),
	)
	err := cmd.Run()
	if err == nil {
		r.logger.Info("encode finished", logging.Duration("elapsed", time.Since(start)))
		return nil
	}
	_ = os.Remove(plan.Output)

	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		return services.Wrap(services.ErrCancelled, "render", "encode", "", ctx.Err())
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		return services.Wrap(services.ErrTimeout, "render", "encode", "exceeded "+r.timeout.String(), runCtx.Err())
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &services.EncodeError{Binary: r.binary, ExitCode: exitErr.ExitCode(), Stderr: stderr.String()}
	}
	return services.Wrap(services.ErrExternalTool, "render", "encode", "start "+r.binary, err)
}
