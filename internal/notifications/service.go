package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"karaoke/internal/config"
)

// Event identifies a job lifecycle milestone.
type Event string

const (
	EventJobStarted   Event = "job_started"
	EventJobCompleted Event = "job_completed"
	EventJobFailed    Event = "job_failed"
	EventJobCancelled Event = "job_cancelled"
	EventFileFailed   Event = "file_failed"
	EventTest         Event = "test"
)

// Payload carries event details. Well-known keys are job_id, file, files,
// processed, failed, duration, kind and error.
type Payload map[string]any

// Service defines the notification surface exposed to workflow components.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
	Close() error
}

// NewService builds a notification service from configuration. Transports
// without configuration are omitted; with none configured a noop is returned.
func NewService(cfg *config.Config) Service {
	var sinks []Service
	if svc := newNtfyService(cfg); svc != nil {
		sinks = append(sinks, svc)
	}
	if svc := newRedisService(cfg); svc != nil {
		sinks = append(sinks, svc)
	}
	switch len(sinks) {
	case 0:
		return noopService{}
	case 1:
		return sinks[0]
	default:
		return multiService(sinks)
	}
}

type multiService []Service

func (m multiService) Publish(ctx context.Context, event Event, payload Payload) error {
	var errs []error
	for _, svc := range m {
		if err := svc.Publish(ctx, event, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m multiService) Close() error {
	var errs []error
	for _, svc := range m {
		if err := svc.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
func (noopService) Close() error                                  { return nil }

func (p Payload) text(key string) string {
	if p == nil {
		return ""
	}
	switch v := p[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case error:
		return strings.TrimSpace(v.Error())
	case time.Duration:
		return formatDuration(v)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func (p Payload) number(key string) int {
	if p == nil {
		return 0
	}
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d <= 0 {
		return "0s"
	}
	return d.String()
}
