package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"karaoke/internal/config"
	"karaoke/internal/logging"
	"karaoke/internal/notifications"
	"karaoke/internal/queue"
)

var (
	// ErrJobProcessing rejects operations that need the job to be idle.
	ErrJobProcessing = errors.New("job is processing")
	// ErrJobFinished rejects cancellation of a terminal job.
	ErrJobFinished = errors.New("job already finished")
	// ErrQueueFull rejects submissions when the pending queue is at capacity.
	ErrQueueFull = errors.New("job queue is full")
)

// Manager schedules jobs onto a bounded worker pool.
type Manager struct {
	cfg       *config.Config
	store     *JobStore
	hub       *EventHub
	processor FileProcessor
	notifier  notifications.Service
	logger    *slog.Logger
	now       func() time.Time

	pending chan string

	mu        sync.Mutex
	running   bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	active    map[string]context.CancelFunc
	requested map[string]struct{}
	lastErr   error
	startedAt time.Time
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithProcessor replaces the production pipeline.
func WithProcessor(p FileProcessor) ManagerOption {
	return func(m *Manager) { m.processor = p }
}

// WithNotifier replaces the notifier built from config.
func WithNotifier(n notifications.Service) ManagerOption {
	return func(m *Manager) { m.notifier = n }
}

// WithEventHub shares an existing event hub.
func WithEventHub(h *EventHub) ManagerOption {
	return func(m *Manager) { m.hub = h }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// NewManager constructs a workflow manager. q may be nil for an in-memory
// manager.
func NewManager(cfg *config.Config, q *queue.Store, logger *slog.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	capacity := cfg.Workflow.QueueCapacity
	if capacity <= 0 {
		capacity = 256
	}
	m := &Manager{
		cfg:       cfg,
		store:     NewJobStore(q),
		logger:    logging.NewComponentLogger(logger, "workflow-manager"),
		now:       func() time.Time { return time.Now().UTC() },
		pending:   make(chan string, capacity),
		active:    make(map[string]context.CancelFunc),
		requested: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.hub == nil {
		m.hub = NewEventHub(cfg.Workflow.EventBuffer)
	}
	if m.processor == nil {
		m.processor = NewPipeline(cfg, m.logger)
	}
	if m.notifier == nil {
		m.notifier = notifications.NewService(cfg)
	}
	m.store.now = m.now
	return m
}

// Events exposes the sequence-numbered event history.
func (m *Manager) Events() *EventHub {
	return m.hub
}

// Subscribe delivers live events for one job, or all jobs when jobID is
// empty. Delivery is best effort; call Get to recover current state.
func (m *Manager) Subscribe(jobID string) (<-chan Event, func()) {
	return m.hub.Subscribe(jobID)
}

func (m *Manager) publish(eventType EventType, job Job, file string) {
	snapshot := job.clone()
	m.hub.Publish(Event{
		Type:  eventType,
		JobID: job.ID,
		Time:  m.now(),
		File:  file,
		Job:   &snapshot,
	})
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}
