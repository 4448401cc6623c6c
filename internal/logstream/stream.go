// Package logstream prints daemon logs for the CLI, preferring the daemon's
// structured stream and falling back to the log file on disk.
package logstream

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"karaoke/internal/api"
	"karaoke/internal/logs"
)

// ErrFiltersRequireAPI rejects filtered streaming when only the file is
// available.
var ErrFiltersRequireAPI = errors.New("log filters require the daemon API")

// Filters contains optional predicates supported by API log streaming.
type Filters struct {
	JobID     string
	Component string
	Level     string
}

func (f Filters) empty() bool {
	return strings.TrimSpace(f.JobID) == "" &&
		strings.TrimSpace(f.Component) == "" &&
		strings.TrimSpace(f.Level) == ""
}

// Options controls stream behavior.
type Options struct {
	Lines   int
	Follow  bool
	Filters Filters
}

// followWait bounds one file poll in follow mode.
const followWait = time.Second

// Stream emits log events from the API when the daemon answers, otherwise
// lines from logPath. It reports whether anything was emitted.
func Stream(
	ctx context.Context,
	client *logs.StreamClient,
	logPath string,
	opts Options,
	onEvent func(api.LogEvent),
	onLine func(string),
) (bool, error) {
	printed, err := streamAPI(ctx, client, opts, onEvent)
	if err == nil {
		return printed, nil
	}
	if printed || !api.IsAPIUnavailable(err) {
		return printed, err
	}
	if !opts.Filters.empty() {
		return false, fmt.Errorf("%w: %w", ErrFiltersRequireAPI, api.ErrAPIUnavailable)
	}
	if strings.TrimSpace(logPath) == "" {
		return false, api.ErrAPIUnavailable
	}
	return streamFile(ctx, logPath, opts, onLine)
}

func streamAPI(ctx context.Context, client *logs.StreamClient, opts Options, onEvent func(api.LogEvent)) (bool, error) {
	query := logs.StreamQuery{
		Limit:     opts.Lines,
		Tail:      true,
		JobID:     opts.Filters.JobID,
		Component: opts.Filters.Component,
		Level:     opts.Filters.Level,
	}
	if query.Limit <= 0 {
		query.Limit = 200
	}

	printed := false
	for {
		resp, err := client.Fetch(ctx, query)
		if err != nil {
			if printed && ctx.Err() != nil {
				return printed, nil
			}
			return printed, err
		}
		for _, evt := range resp.Events {
			if onEvent != nil {
				onEvent(evt)
			}
			printed = true
		}
		if !opts.Follow {
			return printed, nil
		}
		query.Since = resp.Next
		query.Limit = 200
		query.Tail = false
		query.Follow = true
	}
}

func streamFile(ctx context.Context, path string, opts Options, onLine func(string)) (bool, error) {
	offset := int64(-1)
	limit := max(opts.Lines, 0)
	if limit == 0 {
		offset = 0
	}

	printed := false
	for {
		tailOpts := logs.TailOptions{Offset: offset, Limit: limit, Follow: opts.Follow}
		if opts.Follow {
			tailOpts.Wait = followWait
		}
		result, err := logs.Tail(ctx, path, tailOpts)
		if err != nil {
			if ctx.Err() != nil {
				return printed, nil
			}
			return printed, fmt.Errorf("tail logs: %w", err)
		}
		for _, line := range result.Lines {
			if onLine != nil {
				onLine(line)
			}
			printed = true
		}
		offset = result.Offset
		limit = 0
		if !opts.Follow {
			return printed, nil
		}
		select {
		case <-ctx.Done():
			return printed, nil
		default:
		}
	}
}
