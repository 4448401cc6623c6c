package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"karaoke/internal/queue"
	"karaoke/internal/services"
)

// JobStore owns job state. Each job has its own mutex; the map lock only
// guards membership. A nil queue keeps jobs in memory only.
type JobStore struct {
	mu    sync.RWMutex
	jobs  map[string]*jobEntry
	queue *queue.Store
	now   func() time.Time
}

type jobEntry struct {
	mu      sync.Mutex
	job     Job
	removed bool
}

// NewJobStore wraps the persistent queue.
func NewJobStore(q *queue.Store) *JobStore {
	return &JobStore{
		jobs:  make(map[string]*jobEntry),
		queue: q,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Add persists and registers a new job.
func (s *JobStore) Add(ctx context.Context, job Job) error {
	if err := s.persist(ctx, job); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("job %s already exists", job.ID)
	}
	s.jobs[job.ID] = &jobEntry{job: job.clone()}
	return nil
}

// Get returns a snapshot of the job.
func (s *JobStore) Get(id string) (Job, bool) {
	entry := s.entry(id)
	if entry == nil {
		return Job{}, false
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.job.clone(), true
}

// List returns snapshots of every job ordered by creation time.
func (s *JobStore) List() []Job {
	s.mu.RLock()
	entries := make([]*jobEntry, 0, len(s.jobs))
	for _, e := range s.jobs {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	out := make([]Job, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.job.clone())
		e.mu.Unlock()
	}
	slices.SortFunc(out, func(a, b Job) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	return out
}

// Update applies fn under the job's lock, persists the result and returns the
// new snapshot. If fn returns an error nothing is changed.
func (s *JobStore) Update(ctx context.Context, id string, fn func(*Job) error) (Job, error) {
	entry := s.entry(id)
	if entry == nil {
		return Job{}, services.Wrap(services.ErrNotFound, "workflow", "update job", id, nil)
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	// Remove may have won the entry lock after the map lookup.
	if entry.removed {
		return Job{}, services.Wrap(services.ErrNotFound, "workflow", "update job", id, nil)
	}

	next := entry.job.clone()
	if err := fn(&next); err != nil {
		return entry.job.clone(), err
	}
	next.UpdatedAt = s.now()
	if err := s.persist(ctx, next); err != nil {
		return entry.job.clone(), err
	}
	entry.job = next
	return next.clone(), nil
}

// Remove deletes the job if check approves the current state.
func (s *JobStore) Remove(ctx context.Context, id string, check func(Job) error) (Job, error) {
	entry := s.entry(id)
	if entry == nil {
		return Job{}, services.Wrap(services.ErrNotFound, "workflow", "delete job", id, nil)
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.removed {
		return Job{}, services.Wrap(services.ErrNotFound, "workflow", "delete job", id, nil)
	}
	if check != nil {
		if err := check(entry.job); err != nil {
			return Job{}, err
		}
	}
	if s.queue != nil {
		if err := s.queue.Delete(ctx, id); err != nil {
			return Job{}, err
		}
	}
	entry.removed = true
	s.mu.Lock()
	delete(s.jobs, id)
	s.mu.Unlock()
	return entry.job.clone(), nil
}

// Load reads persisted jobs into memory. Jobs already held in memory are
// left untouched and omitted from the result.
func (s *JobStore) Load(ctx context.Context) ([]Job, error) {
	if s.queue == nil {
		return nil, nil
	}
	records, err := s.queue.List(ctx)
	if err != nil {
		return nil, err
	}
	jobs := make([]Job, 0, len(records))
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range records {
		if _, exists := s.jobs[rec.ID]; exists {
			continue
		}
		job, err := fromRecord(rec)
		if err != nil {
			return nil, err
		}
		s.jobs[job.ID] = &jobEntry{job: job}
		jobs = append(jobs, job.clone())
	}
	return jobs, nil
}

func (s *JobStore) entry(id string) *jobEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jobs[id]
}

func (s *JobStore) persist(ctx context.Context, job Job) error {
	if s.queue == nil {
		return nil
	}
	rec, err := toRecord(job)
	if err != nil {
		return err
	}
	if err := s.queue.Save(ctx, rec); err != nil {
		return fmt.Errorf("persist job %s: %w", job.ID, err)
	}
	return nil
}

func toRecord(job Job) (queue.Record, error) {
	options, err := json.Marshal(job.Options)
	if err != nil {
		return queue.Record{}, fmt.Errorf("encode options: %w", err)
	}
	files, err := json.Marshal(job.Files)
	if err != nil {
		return queue.Record{}, fmt.Errorf("encode files: %w", err)
	}
	outputs, err := json.Marshal(job.OutputFiles)
	if err != nil {
		return queue.Record{}, fmt.Errorf("encode outputs: %w", err)
	}
	return queue.Record{
		ID:             job.ID,
		Status:         string(job.Status),
		Progress:       job.Progress,
		CurrentFile:    job.CurrentFile,
		TotalFiles:     job.TotalFiles,
		ProcessedFiles: job.ProcessedFiles,
		FailedFiles:    job.FailedFiles,
		ErrorMessage:   job.Error,
		OptionsJSON:    string(options),
		FilesJSON:      string(files),
		OutputsJSON:    string(outputs),
		OutputDir:      job.OutputDir,
		CreatedAt:      job.CreatedAt,
		UpdatedAt:      job.UpdatedAt,
		StartedAt:      job.StartedAt,
		FinishedAt:     job.FinishedAt,
	}, nil
}

func fromRecord(rec queue.Record) (Job, error) {
	status, ok := ParseStatus(rec.Status)
	if !ok {
		return Job{}, fmt.Errorf("job %s: unknown status %q", rec.ID, rec.Status)
	}
	job := Job{
		ID:             rec.ID,
		Status:         status,
		Progress:       rec.Progress,
		CurrentFile:    rec.CurrentFile,
		TotalFiles:     rec.TotalFiles,
		ProcessedFiles: rec.ProcessedFiles,
		FailedFiles:    rec.FailedFiles,
		Error:          rec.ErrorMessage,
		OutputDir:      rec.OutputDir,
		CreatedAt:      rec.CreatedAt,
		UpdatedAt:      rec.UpdatedAt,
		StartedAt:      rec.StartedAt,
		FinishedAt:     rec.FinishedAt,
	}
	if err := decodeColumn(rec.OptionsJSON, &job.Options); err != nil {
		return Job{}, fmt.Errorf("job %s options: %w", rec.ID, err)
	}
	if err := decodeColumn(rec.FilesJSON, &job.Files); err != nil {
		return Job{}, fmt.Errorf("job %s files: %w", rec.ID, err)
	}
	if err := decodeColumn(rec.OutputsJSON, &job.OutputFiles); err != nil {
		return Job{}, fmt.Errorf("job %s outputs: %w", rec.ID, err)
	}
	return job, nil
}

func decodeColumn(raw string, dest any) error {
	if raw == "" || raw == "null" {
		return nil
	}
	return json.Unmarshal([]byte(raw), dest)
}
