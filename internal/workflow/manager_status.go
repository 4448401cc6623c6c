package workflow

import "time"

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running    bool
	Workers    int
	Active     []string
	Queued     int
	JobCounts  map[Status]int
	LastError  string
	StartedAt  time.Time
	LastSeqNum uint64
}

// Status returns the latest workflow information. It never waits on an
// encode: job counts come from per-job snapshots.
func (m *Manager) Status() StatusSummary {
	m.mu.Lock()
	summary := StatusSummary{
		Running:   m.running,
		Workers:   max(1, m.cfg.Workflow.Workers),
		Queued:    len(m.pending),
		StartedAt: m.startedAt,
	}
	for id := range m.active {
		summary.Active = append(summary.Active, id)
	}
	if m.lastErr != nil {
		summary.LastError = m.lastErr.Error()
	}
	m.mu.Unlock()

	summary.JobCounts = make(map[Status]int)
	for _, job := range m.store.List() {
		summary.JobCounts[job.Status]++
	}
	summary.LastSeqNum = m.hub.LastSequence()
	return summary
}
