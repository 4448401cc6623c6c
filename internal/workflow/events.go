package workflow

import (
	"context"
	"sync"
	"time"
)

// EventType classifies a job transition.
type EventType string

const (
	EventJobCreated    EventType = "job_created"
	EventJobStarted    EventType = "job_started"
	EventFileStarted   EventType = "file_started"
	EventFileProgress  EventType = "file_progress"
	EventFileCompleted EventType = "file_completed"
	EventFileFailed    EventType = "file_failed"
	EventJobCompleted  EventType = "job_completed"
	EventJobFailed     EventType = "job_failed"
	EventJobCancelled  EventType = "job_cancelled"
	EventJobDeleted    EventType = "job_deleted"
)

// Event is a best-effort notification of a job transition. Job holds the
// snapshot taken right after the transition; it is nil for deletions.
type Event struct {
	Sequence uint64    `json:"seq"`
	Type     EventType `json:"type"`
	JobID    string    `json:"job_id"`
	Time     time.Time `json:"time"`
	File     string    `json:"file,omitempty"`
	Percent  float64   `json:"percent,omitempty"`
	Job      *Job      `json:"-"`
}

const subscriberBuffer = 64

// EventHub keeps a bounded, sequence-numbered history of events and fans
// them out to live subscribers. Slow subscribers miss events instead of
// blocking publishers.
type EventHub struct {
	mu       sync.Mutex
	cond     *sync.Cond
	capacity int
	buffer   []Event
	nextSeq  uint64
	subs     map[uint64]subscriber
	nextSub  uint64
}

type subscriber struct {
	jobID string
	ch    chan Event
}

// NewEventHub constructs a hub that retains up to capacity events.
func NewEventHub(capacity int) *EventHub {
	if capacity <= 0 {
		capacity = 1024
	}
	h := &EventHub{capacity: capacity, subs: make(map[uint64]subscriber)}
	h.cond = sync.NewCond(&h.mu)
	return h
}

// Publish stamps evt with the next sequence number and delivers it.
func (h *EventHub) Publish(evt Event) Event {
	if h == nil {
		return evt
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextSeq++
	evt.Sequence = h.nextSeq
	if evt.Time.IsZero() {
		evt.Time = time.Now().UTC()
	}
	if len(h.buffer) == h.capacity {
		copy(h.buffer, h.buffer[1:])
		h.buffer = h.buffer[:h.capacity-1]
	}
	h.buffer = append(h.buffer, evt)
	for _, sub := range h.subs {
		if sub.jobID != "" && sub.jobID != evt.JobID {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
		}
	}
	h.cond.Broadcast()
	return evt
}

// Subscribe registers a live listener. An empty jobID receives every event.
// The returned function unsubscribes and closes the channel.
func (h *EventHub) Subscribe(jobID string) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)
	h.mu.Lock()
	h.nextSub++
	id := h.nextSub
	h.subs[id] = subscriber{jobID: jobID, ch: ch}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Fetch returns events with sequence greater than since, optionally filtered
// to one job. When wait is true, Fetch blocks until a matching event arrives
// or the context ends. The returned cursor is the value to pass as since on
// the next call.
func (h *EventHub) Fetch(ctx context.Context, since uint64, limit int, jobID string, wait bool) ([]Event, uint64, error) {
	if h == nil {
		return nil, since, nil
	}
	if limit <= 0 || limit > h.capacity {
		limit = h.capacity
	}

	stopWake := context.AfterFunc(ctx, func() {
		h.mu.Lock()
		h.cond.Broadcast()
		h.mu.Unlock()
	})
	defer stopWake()

	h.mu.Lock()
	defer h.mu.Unlock()

	for {
		events, next := h.snapshotLocked(since, limit, jobID)
		if len(events) > 0 || !wait {
			return events, next, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, next, err
		}
		since = next
		h.cond.Wait()
	}
}

// LastSequence reports the most recently assigned sequence number.
func (h *EventHub) LastSequence() uint64 {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.nextSeq
}

func (h *EventHub) snapshotLocked(since uint64, limit int, jobID string) ([]Event, uint64) {
	out := make([]Event, 0)
	for _, evt := range h.buffer {
		if evt.Sequence <= since {
			continue
		}
		if jobID != "" && evt.JobID != jobID {
			continue
		}
		out = append(out, evt)
		if len(out) == limit {
			return out, evt.Sequence
		}
	}
	return out, h.nextSeq
}
