package workflow

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"karaoke/internal/testsupport"
)

func TestSweepEvictsExpiredTerminalJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.RetentionHours = 1
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	mgr := NewManager(cfg, nil, nil, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	old := now.Add(-2 * time.Hour)
	recent := now.Add(-10 * time.Minute)
	add := func(id string, status Status, finished *time.Time) string {
		dir := filepath.Join(cfg.Paths.OutputDir, id)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		job := Job{ID: id, Status: status, OutputDir: dir, CreatedAt: old, UpdatedAt: old, FinishedAt: finished}
		if err := mgr.store.Add(ctx, job); err != nil {
			t.Fatalf("Add: %v", err)
		}
		return dir
	}
	expiredDir := add("expired", StatusCompleted, &old)
	add("fresh", StatusFailed, &recent)
	add("running", StatusProcessing, nil)

	events, unsubscribe := mgr.Subscribe("")
	defer unsubscribe()

	evicted := mgr.Sweep(ctx)
	if !slices.Equal(evicted, []string{"expired"}) {
		t.Fatalf("evicted = %v", evicted)
	}
	if _, err := os.Stat(expiredDir); !os.IsNotExist(err) {
		t.Fatalf("expected outputs removed, got %v", err)
	}
	if _, ok := mgr.Get("fresh"); !ok {
		t.Fatal("recent job evicted")
	}
	if _, ok := mgr.Get("running"); !ok {
		t.Fatal("processing job evicted")
	}
	if evt := <-events; evt.Type != EventJobDeleted || evt.JobID != "expired" {
		t.Fatalf("unexpected event %+v", evt)
	}

	cfg.Workflow.RetentionHours = 0
	if got := mgr.Sweep(ctx); got != nil {
		t.Fatalf("expected sweep disabled, got %v", got)
	}
}
