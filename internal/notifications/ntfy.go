package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"karaoke/internal/config"
)

const userAgent = "karaoke/0.1.0"

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint     string
	client       *http.Client
	jobCompleted bool
	jobFailed    bool
	fileFailed   bool
}

func newNtfyService(cfg *config.Config) *ntfyService {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return nil
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint:     topic,
		client:       &http.Client{Timeout: timeout},
		jobCompleted: cfg.Notifications.JobCompleted,
		jobFailed:    cfg.Notifications.JobFailed,
		fileFailed:   cfg.Notifications.FileFailed,
	}
}

func (n *ntfyService) Publish(ctx context.Context, event Event, p Payload) error {
	data, ok := n.format(event, p)
	if !ok {
		return nil
	}
	return n.send(ctx, data)
}

func (n *ntfyService) Close() error { return nil }

func (n *ntfyService) format(event Event, p Payload) (payload, bool) {
	switch event {
	case EventJobCompleted:
		if !n.jobCompleted {
			return payload{}, false
		}
		processed, failed, files := p.number("processed"), p.number("failed"), p.number("files")
		duration := p.text("duration")
		if duration == "" {
			duration = "0s"
		}
		if failed == 0 {
			return payload{
				title:   "Karaoke - Job Complete",
				message: fmt.Sprintf("🎤 Rendered %d of %d files in %s", processed, files, duration),
				tags:    []string{"karaoke", "job", "completed"},
			}, true
		}
		return payload{
			title:   "Karaoke - Job Complete (with errors)",
			message: fmt.Sprintf("🎤 %d succeeded, %d failed in %s", processed, failed, duration),
			tags:    []string{"karaoke", "job", "partial"},
		}, true
	case EventJobFailed:
		if !n.jobFailed {
			return payload{}, false
		}
		reason := p.text("error")
		if reason == "" {
			reason = "unknown"
		}
		return payload{
			title:    "Karaoke - Job Failed",
			message:  fmt.Sprintf("❌ Job %s failed: %s", p.text("job_id"), reason),
			tags:     []string{"karaoke", "job", "failed"},
			priority: "high",
		}, true
	case EventFileFailed:
		if !n.fileFailed {
			return payload{}, false
		}
		message := fmt.Sprintf("⚠️ %s failed", p.text("file"))
		if kind := p.text("kind"); kind != "" {
			message += " (" + kind + ")"
		}
		if reason := p.text("error"); reason != "" {
			message += ": " + reason
		}
		return payload{
			title:   "Karaoke - File Failed",
			message: message,
			tags:    []string{"karaoke", "file", "failed"},
		}, true
	case EventTest:
		return payload{
			title:    "Karaoke - Test",
			message:  "🧪 Notification system test",
			tags:     []string{"karaoke", "test"},
			priority: "low",
		}, true
	default:
		return payload{}, false
	}
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
