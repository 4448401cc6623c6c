package workflow

import (
	"context"
	"os"
	"time"

	"karaoke/internal/logging"
)

func (m *Manager) runSweeper(ctx context.Context) {
	defer m.wg.Done()
	interval := time.Duration(m.cfg.Workflow.SweepInterval) * time.Second
	if interval <= 0 || m.cfg.Retention() <= 0 {
		<-ctx.Done()
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(ctx)
		}
	}
}

// Sweep evicts terminal jobs whose retention period has elapsed, including
// their output directories. It returns the evicted job IDs.
func (m *Manager) Sweep(ctx context.Context) []string {
	retention := m.cfg.Retention()
	if retention <= 0 {
		return nil
	}
	cutoff := m.now().Add(-retention)
	var evicted []string
	for _, job := range m.store.List() {
		if !job.Status.Terminal() {
			continue
		}
		finished := job.UpdatedAt
		if job.FinishedAt != nil {
			finished = *job.FinishedAt
		}
		if finished.After(cutoff) {
			continue
		}
		removed, err := m.store.Remove(ctx, job.ID, func(j Job) error {
			if !j.Status.Terminal() {
				return ErrJobProcessing
			}
			return nil
		})
		if err != nil {
			m.logger.Debug("retention eviction skipped", logging.String(logging.FieldJobID, job.ID), logging.Error(err))
			continue
		}
		if removed.OutputDir != "" {
			_ = os.RemoveAll(removed.OutputDir)
		}
		evicted = append(evicted, job.ID)
		m.hub.Publish(Event{Type: EventJobDeleted, JobID: job.ID, Time: m.now()})
	}
	if len(evicted) > 0 {
		m.logger.Info("expired jobs evicted",
			logging.String(logging.FieldEventType, "jobs_evicted"),
			logging.Int("count", len(evicted)),
			logging.Duration("retention", retention),
		)
	}
	return evicted
}
