package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"karaoke/internal/logging"
	"karaoke/internal/services"
)

// Submit validates a submission, stores it as a pending job and queues it.
func (m *Manager) Submit(ctx context.Context, sub Submission) (Job, error) {
	if len(sub.Files) == 0 {
		return Job{}, services.Wrap(services.ErrFatalJob, "workflow", "submit", "no files submitted", services.ErrValidation)
	}
	options := sub.Options.Resolve(m.cfg)
	if err := options.Validate(); err != nil {
		return Job{}, services.Wrap(services.ErrFatalJob, "workflow", "submit", "invalid options", err)
	}

	now := m.now()
	id := uuid.NewString()
	job := Job{
		ID:         id,
		Status:     StatusPending,
		TotalFiles: len(sub.Files),
		Files:      make([]FileRecord, 0, len(sub.Files)),
		Options:    options,
		OutputDir:  filepath.Join(m.cfg.Paths.OutputDir, id),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	for i, in := range sub.Files {
		source := strings.TrimSpace(in.Source)
		if source == "" {
			return Job{}, services.Wrap(services.ErrFatalJob, "workflow", "submit", fmt.Sprintf("files[%d].source is empty", i), services.ErrValidation)
		}
		if abs, err := filepath.Abs(source); err == nil {
			source = abs
		}
		transcript := strings.TrimSpace(in.Transcript)
		if transcript != "" {
			if abs, err := filepath.Abs(transcript); err == nil {
				transcript = abs
			}
		}
		job.Files = append(job.Files, FileRecord{Index: i, Source: source, Transcript: transcript, Status: FilePending})
	}

	if err := m.store.Add(ctx, job); err != nil {
		return Job{}, err
	}
	select {
	case m.pending <- id:
	default:
		_, _ = m.store.Remove(context.WithoutCancel(ctx), id, nil)
		return Job{}, ErrQueueFull
	}

	m.logger.Info("job submitted",
		logging.String(logging.FieldJobID, id),
		logging.String(logging.FieldEventType, "job_submitted"),
		logging.Int("files", job.TotalFiles),
		logging.String("style", options.Style),
	)
	m.publish(EventJobCreated, job, "")
	return job.clone(), nil
}

// Get returns a snapshot of the job.
func (m *Manager) Get(id string) (Job, bool) {
	return m.store.Get(id)
}

// List returns snapshots of every job in creation order.
func (m *Manager) List() []Job {
	return m.store.List()
}

// Cancel stops a job. A pending job is cancelled immediately; a processing
// job has its in-flight encoder killed and finishes as cancelled once the
// worker observes it.
func (m *Manager) Cancel(id string) (Job, error) {
	ctx := context.Background()
	job, err := m.store.Update(ctx, id, func(j *Job) error {
		switch j.Status {
		case StatusPending:
			now := m.now()
			j.Status = StatusCancelled
			j.Error = "cancelled before start"
			j.FinishedAt = &now
			for i := range j.Files {
				j.Files[i].Status = FileCancelled
			}
			return nil
		case StatusProcessing:
			return nil
		default:
			return fmt.Errorf("%w: %s is %s", ErrJobFinished, j.ID, j.Status)
		}
	})
	if err != nil {
		return job, err
	}

	switch job.Status {
	case StatusCancelled:
		m.logger.Info("job cancelled",
			logging.String(logging.FieldJobID, id),
			logging.String(logging.FieldEventType, "job_cancelled"),
		)
		m.publish(EventJobCancelled, job, "")
		m.notify(ctx, job)
	case StatusProcessing:
		m.mu.Lock()
		cancel := m.active[id]
		if cancel != nil {
			m.requested[id] = struct{}{}
		}
		m.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		m.logger.Info("job cancellation requested",
			logging.String(logging.FieldJobID, id),
			logging.String(logging.FieldEventType, "job_cancel_requested"),
			logging.String(logging.FieldFile, job.CurrentFile),
		)
	}
	return job, nil
}

// Delete removes a job that is not processing. With removeOutputs the job's
// output directory is deleted as well.
func (m *Manager) Delete(id string, removeOutputs bool) error {
	ctx := context.Background()
	job, err := m.store.Remove(ctx, id, func(j Job) error {
		if j.Status == StatusProcessing {
			return fmt.Errorf("%w: cancel %s before deleting it", ErrJobProcessing, j.ID)
		}
		return nil
	})
	if err != nil {
		return err
	}
	_ = os.RemoveAll(filepath.Join(m.cfg.Paths.WorkDir, id))
	if removeOutputs && job.OutputDir != "" {
		if err := os.RemoveAll(job.OutputDir); err != nil {
			m.logger.Warn("job outputs not removed",
				logging.String(logging.FieldJobID, id),
				logging.Error(err),
				logging.String(logging.FieldEventType, "job_outputs_remove_failed"),
				logging.String(logging.FieldErrorHint, "remove the directory manually"),
			)
		}
	}
	m.logger.Info("job deleted",
		logging.String(logging.FieldJobID, id),
		logging.String(logging.FieldEventType, "job_deleted"),
		logging.Bool("outputs_removed", removeOutputs),
	)
	m.hub.Publish(Event{Type: EventJobDeleted, JobID: id, Time: m.now()})
	return nil
}

// Outputs lists the rendered files of a job.
func (m *Manager) Outputs(id string) ([]OutputFile, error) {
	job, ok := m.store.Get(id)
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "workflow", "outputs", id, nil)
	}
	return job.OutputFiles, nil
}
