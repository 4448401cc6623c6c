package workflow

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"karaoke/internal/logging"
	"karaoke/internal/notifications"
)

func (m *Manager) notify(ctx context.Context, job Job) {
	if m.notifier == nil {
		return
	}
	var event notifications.Event
	switch job.Status {
	case StatusProcessing:
		event = notifications.EventJobStarted
	case StatusCompleted:
		event = notifications.EventJobCompleted
	case StatusFailed:
		event = notifications.EventJobFailed
	case StatusCancelled:
		event = notifications.EventJobCancelled
	default:
		return
	}
	payload := notifications.Payload{
		"job_id":    job.ID,
		"status":    string(job.Status),
		"files":     job.TotalFiles,
		"processed": job.ProcessedFiles,
		"failed":    job.FailedFiles,
		"progress":  job.Progress,
	}
	if job.Error != "" {
		payload["error"] = job.Error
	}
	if job.StartedAt != nil && job.FinishedAt != nil {
		payload["duration"] = job.FinishedAt.Sub(*job.StartedAt)
	}
	m.publishNotification(ctx, event, payload)
}

func (m *Manager) notifyFileFailed(ctx context.Context, job Job, index int) {
	if m.notifier == nil || index < 0 || index >= len(job.Files) {
		return
	}
	f := job.Files[index]
	m.publishNotification(ctx, notifications.EventFileFailed, notifications.Payload{
		"job_id": job.ID,
		"file":   filepath.Base(f.Source),
		"kind":   f.ErrorKind,
		"error":  f.Error,
	})
}

func (m *Manager) publishNotification(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	timeout := time.Duration(m.cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	sendCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := m.notifier.Publish(sendCtx, event, payload); err != nil {
		if errors.Is(err, context.Canceled) {
			m.logger.Debug("daemon shutting down, notification skipped", logging.String("event", string(event)))
			return
		}
		m.logger.Warn("notification failed",
			logging.String("event", string(event)),
			logging.Error(err),
			logging.String(logging.FieldEventType, "notification_failed"),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic and notifications.redis_addr"),
			logging.String(logging.FieldImpact, "job processing is unaffected"),
		)
	}
}
