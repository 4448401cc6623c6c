package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"karaoke/internal/logging"
	"karaoke/internal/services"
)

// Start recovers persisted jobs and launches the worker pool and the
// retention sweeper.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	m.running = true
	m.mu.Unlock()

	if err := m.recover(ctx); err != nil {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
		return fmt.Errorf("recover jobs: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	workers := max(1, m.cfg.Workflow.Workers)

	m.mu.Lock()
	m.cancel = cancel
	m.startedAt = m.now()
	m.wg.Add(workers + 1)
	m.mu.Unlock()

	for i := range workers {
		go m.runWorker(runCtx, i+1)
	}
	go m.runSweeper(runCtx)

	m.logger.Info("workflow started",
		logging.String(logging.FieldEventType, "workflow_started"),
		logging.Int("workers", workers),
	)
	return nil
}

// Stop cancels in-flight jobs and waits for workers to exit.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
	if err := m.notifier.Close(); err != nil {
		m.logger.Debug("notifier close failed", logging.Error(err))
	}
}

// recover loads persisted jobs. Pending jobs are queued again; jobs that
// were processing when the previous daemon died are marked failed.
func (m *Manager) recover(ctx context.Context) error {
	jobs, err := m.store.Load(ctx)
	if err != nil {
		return err
	}
	for _, job := range jobs {
		switch job.Status {
		case StatusPending:
			select {
			case m.pending <- job.ID:
			default:
				m.logger.Warn("recovered job not queued",
					logging.String(logging.FieldJobID, job.ID),
					logging.String(logging.FieldEventType, "job_recover_skipped"),
					logging.String(logging.FieldErrorHint, "raise workflow.queue_capacity"),
				)
			}
		case StatusProcessing:
			updated, err := m.store.Update(ctx, job.ID, func(j *Job) error {
				now := m.now()
				j.Status = StatusFailed
				j.Error = "interrupted: daemon restarted while processing"
				j.CurrentFile = ""
				j.FinishedAt = &now
				for i := range j.Files {
					if j.Files[i].Status == FilePending || j.Files[i].Status == FileProcessing {
						j.Files[i].Status = FileCancelled
					}
				}
				return nil
			})
			if err != nil {
				return err
			}
			m.logger.Warn("interrupted job marked failed",
				logging.String(logging.FieldJobID, job.ID),
				logging.String(logging.FieldEventType, "job_interrupted"),
				logging.String(logging.FieldImpact, "files that had not finished must be resubmitted"),
			)
			m.publish(EventJobFailed, updated, "")
		}
	}
	if len(jobs) > 0 {
		m.logger.Info("jobs recovered",
			logging.String(logging.FieldEventType, "jobs_recovered"),
			logging.Int("count", len(jobs)),
		)
	}
	return nil
}

func (m *Manager) runWorker(ctx context.Context, n int) {
	defer m.wg.Done()
	logger := m.logger.With(logging.Int("worker", n))
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-m.pending:
			m.runJob(ctx, logger, id)
		}
	}
}

func (m *Manager) runJob(ctx context.Context, baseLogger *slog.Logger, id string) {
	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	jobCtx = services.WithJobID(jobCtx, id)
	jobCtx = services.WithRequestID(jobCtx, uuid.NewString())
	logger := logging.WithContext(jobCtx, baseLogger)
	// Persistence must survive the job's own cancellation.
	persistCtx := context.WithoutCancel(jobCtx)

	m.mu.Lock()
	m.active[id] = cancel
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		delete(m.active, id)
		delete(m.requested, id)
		m.mu.Unlock()
	}()

	job, err := m.store.Update(persistCtx, id, func(j *Job) error {
		if !j.Status.CanTransition(StatusProcessing) {
			return fmt.Errorf("job %s is %s", j.ID, j.Status)
		}
		now := m.now()
		j.Status = StatusProcessing
		j.StartedAt = &now
		j.Error = ""
		return nil
	})
	if err != nil {
		// Cancelled or deleted while queued.
		logger.Debug("queued job skipped", logging.Error(err))
		return
	}
	logger.Info("job started",
		logging.String(logging.FieldEventType, "job_started"),
		logging.Int("files", job.TotalFiles),
	)
	m.publish(EventJobStarted, job, "")
	m.notify(persistCtx, job)

	if err := m.prepareJob(jobCtx, logger, job); err != nil {
		m.finishJob(persistCtx, logger, id, err)
		return
	}

	for i := range job.Files {
		if jobCtx.Err() != nil {
			break
		}
		m.processFile(jobCtx, persistCtx, logger, job, i)
	}
	m.finishJob(persistCtx, logger, id, nil)
}

// prepareJob runs the job-level setup checks. Any error here fails the
// whole job.
func (m *Manager) prepareJob(ctx context.Context, logger *slog.Logger, job Job) error {
	if err := m.runPreflightChecks(ctx, logger); err != nil {
		return services.Wrap(services.ErrFatalJob, "workflow", "preflight", "", err)
	}
	if err := os.MkdirAll(job.OutputDir, 0o755); err != nil {
		return services.Wrap(services.ErrFatalJob, "workflow", "create output dir", job.OutputDir, err)
	}
	valid := 0
	for _, f := range job.Files {
		if info, err := os.Stat(f.Source); err == nil && !info.IsDir() {
			valid++
		}
	}
	if valid == 0 {
		return services.Wrap(services.ErrFatalJob, "workflow", "prepare", "no valid source files", services.ErrNotFound)
	}
	return nil
}

func (m *Manager) processFile(jobCtx, persistCtx context.Context, logger *slog.Logger, job Job, index int) {
	record := job.Files[index]
	name := filepath.Base(record.Source)
	fileCtx := services.WithFile(jobCtx, name)
	fileLogger := logger.With(logging.String(logging.FieldFile, name))

	snapshot, err := m.store.Update(persistCtx, job.ID, func(j *Job) error {
		now := m.now()
		j.CurrentFile = name
		j.Files[index].Status = FileProcessing
		j.Files[index].StartedAt = &now
		return nil
	})
	if err != nil {
		fileLogger.Error("failed to record file start", logging.Error(err))
		m.setLastError(err)
		return
	}
	fileLogger.Info("file started",
		logging.String(logging.FieldEventType, "file_started"),
		logging.Int("index", index+1),
		logging.Int("total", job.TotalFiles),
	)
	m.publish(EventFileStarted, snapshot, name)

	sampler := logging.NewProgressSampler(5)
	start := time.Now()
	output, procErr := m.processor.Process(fileCtx, FileTask{
		JobID:     job.ID,
		Index:     index,
		Total:     job.TotalFiles,
		Input:     FileInput{Source: record.Source, Transcript: record.Transcript},
		Options:   job.Options,
		OutputDir: job.OutputDir,
		Reference: job.CreatedAt,
		Progress: func(percent float64) {
			if sampler.ShouldLog(percent, name) {
				m.hub.Publish(Event{Type: EventFileProgress, JobID: job.ID, Time: m.now(), File: name, Percent: percent})
			}
		},
	})
	if procErr != nil && jobCtx.Err() != nil && !errors.Is(procErr, services.ErrCancelled) {
		procErr = services.Wrap(services.ErrCancelled, "workflow", "process", name, procErr)
	}

	snapshot, err = m.store.Update(persistCtx, job.ID, func(j *Job) error {
		now := m.now()
		f := &j.Files[index]
		f.FinishedAt = &now
		switch {
		case procErr == nil:
			f.Status = FileSucceeded
			f.Output = output.Path
			j.ProcessedFiles++
			j.OutputFiles = append(j.OutputFiles, output)
		case errors.Is(procErr, services.ErrCancelled):
			f.Status = FileCancelled
			f.ErrorKind = services.KindCancelled
			f.Error = procErr.Error()
			return nil
		default:
			f.Status = FileFailed
			f.ErrorKind = services.Kind(procErr)
			f.Error = procErr.Error()
			j.FailedFiles++
		}
		j.Progress = max(j.Progress, progressPercent(j.Done(), j.TotalFiles))
		return nil
	})
	if err != nil {
		fileLogger.Error("failed to record file result", logging.Error(err))
		m.setLastError(err)
		return
	}

	switch {
	case procErr == nil:
		fileLogger.Info("file rendered",
			logging.String(logging.FieldEventType, "file_completed"),
			logging.String("output", output.Path),
			logging.Int64("size_bytes", output.Size),
			logging.Duration("elapsed", time.Since(start)),
			logging.Int(logging.FieldProgressPercent, snapshot.Progress),
		)
		m.publish(EventFileCompleted, snapshot, name)
	case errors.Is(procErr, services.ErrCancelled):
		fileLogger.Info("file cancelled", logging.String(logging.FieldEventType, "file_cancelled"))
	default:
		m.setLastError(procErr)
		logging.ErrorWithContext(fileLogger, "file failed", "file_failed",
			logging.String("error_kind", services.Kind(procErr)),
			logging.Error(procErr),
			logging.String(logging.FieldErrorHint, hintFor(procErr)),
			logging.String(logging.FieldImpact, "the remaining files of the batch continue"),
		)
		m.publish(EventFileFailed, snapshot, name)
		m.notifyFileFailed(persistCtx, snapshot, index)
	}
}

// finishJob moves the job to its terminal state. setupErr is non-nil only
// for job-level failures.
func (m *Manager) finishJob(ctx context.Context, logger *slog.Logger, id string, setupErr error) {
	m.mu.Lock()
	_, requested := m.requested[id]
	m.mu.Unlock()

	job, err := m.store.Update(ctx, id, func(j *Job) error {
		now := m.now()
		j.CurrentFile = ""
		j.FinishedAt = &now
		for i := range j.Files {
			if j.Files[i].Status == FilePending || j.Files[i].Status == FileProcessing {
				j.Files[i].Status = FileCancelled
			}
		}
		skipped := countFiles(j.Files, FileCancelled)
		switch {
		case setupErr != nil:
			j.Status = StatusFailed
			j.Error = setupErr.Error()
		case requested:
			j.Status = StatusCancelled
			j.Error = fmt.Sprintf("cancelled: %d of %d files not rendered", skipped, j.TotalFiles)
		case skipped > 0:
			j.Status = StatusFailed
			j.Error = "interrupted: daemon stopped while processing"
		default:
			j.Status = StatusCompleted
			j.Progress = 100
			if j.FailedFiles > 0 {
				j.Error = services.Wrap(services.ErrPartialBatch, "workflow", "batch",
					fmt.Sprintf("%d of %d files failed", j.FailedFiles, j.TotalFiles), nil).Error()
			}
		}
		return nil
	})
	if err != nil {
		logger.Error("failed to record job result", logging.Error(err))
		m.setLastError(err)
		return
	}

	if path, err := WriteReport(job, m.cfg.Workflow.ReportName); err != nil {
		logger.Warn("batch report not written",
			logging.Error(err),
			logging.String(logging.FieldEventType, "report_write_failed"),
			logging.String(logging.FieldImpact, "job results remain available through the API"),
		)
	} else {
		logger.Debug("batch report written", logging.String("path", path))
	}

	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "job_"+string(job.Status)),
		logging.Int("succeeded", job.ProcessedFiles),
		logging.Int("failed", job.FailedFiles),
		logging.Int("total", job.TotalFiles),
	}
	if job.StartedAt != nil && job.FinishedAt != nil {
		attrs = append(attrs, logging.Duration("elapsed", job.FinishedAt.Sub(*job.StartedAt)))
	}
	switch job.Status {
	case StatusCompleted:
		logger.Info("job completed", logging.Args(attrs...)...)
		m.publish(EventJobCompleted, job, "")
	case StatusCancelled:
		logger.Info("job cancelled", logging.Args(attrs...)...)
		m.publish(EventJobCancelled, job, "")
	default:
		attrs = append(attrs, logging.String("error", job.Error))
		logger.Error("job failed", logging.Args(attrs...)...)
		m.publish(EventJobFailed, job, "")
	}
	m.notify(ctx, job)
}

func countFiles(files []FileRecord, status FileStatus) int {
	n := 0
	for _, f := range files {
		if f.Status == status {
			n++
		}
	}
	return n
}

func hintFor(err error) string {
	switch services.Kind(err) {
	case services.KindEncode:
		return "inspect the ffmpeg stderr in the error message"
	case services.KindTimeout:
		return "raise render.encode_timeout or lower the resolution"
	case services.KindValidation:
		return "check the source video and its word timings"
	case services.KindNotFound:
		return "check that the source and transcript paths exist"
	case services.KindExternalTool:
		return "run karaoke status to verify ffmpeg, ffprobe and uvx"
	default:
		return "see the daemon log for details"
	}
}
