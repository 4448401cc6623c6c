package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"karaoke/internal/services"
	"karaoke/internal/testsupport"
)

func sampleJob(id string, created time.Time) Job {
	started := created.Add(time.Second)
	return Job{
		ID:         id,
		Status:     StatusPending,
		TotalFiles: 2,
		Files: []FileRecord{
			{Index: 0, Source: "/videos/a.mp4", Status: FilePending},
			{Index: 1, Source: "/videos/b.mp4", Transcript: "/videos/b.json", Status: FilePending},
		},
		Options:   Options{Style: "neon", WordsPerLine: 6, CRF: ptr(20)},
		OutputDir: "/out/" + id,
		CreatedAt: created,
		UpdatedAt: created,
		StartedAt: &started,
	}
}

func TestJobStorePersistsAndReloads(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	q := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	store := NewJobStore(q)
	if err := store.Add(ctx, sampleJob("job-1", created)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := store.Update(ctx, "job-1", func(j *Job) error {
		j.Status = StatusProcessing
		j.Files[0].Status = FileSucceeded
		j.ProcessedFiles = 1
		j.Progress = 50
		j.OutputFiles = append(j.OutputFiles, OutputFile{Name: "a_karaoke.mp4", Path: "/out/job-1/a_karaoke.mp4", Size: 42})
		return nil
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	reloaded := NewJobStore(q)
	jobs, err := reloaded.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected one job, got %d", len(jobs))
	}
	job := jobs[0]
	if job.Status != StatusProcessing || job.Progress != 50 || job.ProcessedFiles != 1 {
		t.Fatalf("unexpected reloaded job: %+v", job)
	}
	if job.Files[1].Transcript != "/videos/b.json" || job.Files[0].Status != FileSucceeded {
		t.Fatalf("files not restored: %+v", job.Files)
	}
	if len(job.OutputFiles) != 1 || job.OutputFiles[0].Size != 42 {
		t.Fatalf("outputs not restored: %+v", job.OutputFiles)
	}
	if job.Options.Style != "neon" || job.Options.CRF == nil || *job.Options.CRF != 20 {
		t.Fatalf("options not restored: %+v", job.Options)
	}
	if job.StartedAt == nil || !job.StartedAt.Equal(created.Add(time.Second)) {
		t.Fatalf("started_at not restored: %v", job.StartedAt)
	}

	again, err := reloaded.Load(ctx)
	if err != nil || len(again) != 0 {
		t.Fatalf("second Load should skip known jobs, got %d (%v)", len(again), err)
	}
}

func TestJobStoreUpdateErrorLeavesJobUntouched(t *testing.T) {
	store := NewJobStore(nil)
	ctx := context.Background()
	if err := store.Add(ctx, sampleJob("job-1", time.Now())); err != nil {
		t.Fatalf("Add: %v", err)
	}
	boom := errors.New("boom")
	_, err := store.Update(ctx, "job-1", func(j *Job) error {
		j.Status = StatusFailed
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if job, _ := store.Get("job-1"); job.Status != StatusPending {
		t.Fatalf("status changed despite error: %s", job.Status)
	}
	if _, err := store.Update(ctx, "missing", func(*Job) error { return nil }); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestJobStoreRemoveWinsOverConcurrentUpdate(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	q := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	store := NewJobStore(q)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := range 200 {
		id := fmt.Sprintf("job-%d", i)
		if err := store.Add(ctx, sampleJob(id, created)); err != nil {
			t.Fatalf("Add: %v", err)
		}
		var wg sync.WaitGroup
		var updateErr, removeErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, updateErr = store.Update(ctx, id, func(j *Job) error {
				j.Status = StatusProcessing
				return nil
			})
		}()
		go func() {
			defer wg.Done()
			_, removeErr = store.Remove(ctx, id, nil)
		}()
		wg.Wait()

		if removeErr != nil {
			t.Fatalf("%s: Remove: %v", id, removeErr)
		}
		if updateErr != nil && !errors.Is(updateErr, services.ErrNotFound) {
			t.Fatalf("%s: unexpected update error: %v", id, updateErr)
		}
		if _, ok := store.Get(id); ok {
			t.Fatalf("%s: removed job still tracked", id)
		}
		rec, err := q.Get(ctx, id)
		if err != nil {
			t.Fatalf("%s: queue Get: %v", id, err)
		}
		if rec != nil {
			t.Fatalf("%s: removed job persisted again with status %s", id, rec.Status)
		}
	}

	if _, err := store.Remove(ctx, "job-0", nil); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found on second remove, got %v", err)
	}
}

func TestJobStoreSnapshotsAreIndependent(t *testing.T) {
	store := NewJobStore(nil)
	if err := store.Add(context.Background(), sampleJob("job-1", time.Now())); err != nil {
		t.Fatalf("Add: %v", err)
	}
	snap, _ := store.Get("job-1")
	snap.Files[0].Status = FileFailed
	*snap.Options.CRF = 40

	fresh, _ := store.Get("job-1")
	if fresh.Files[0].Status != FilePending || *fresh.Options.CRF != 20 {
		t.Fatal("mutating a snapshot leaked into the store")
	}
}

func TestJobStoreListOrdersByCreation(t *testing.T) {
	store := NewJobStore(nil)
	ctx := context.Background()
	base := time.Now()
	for _, job := range []Job{sampleJob("c", base.Add(2*time.Second)), sampleJob("a", base), sampleJob("b", base.Add(time.Second))} {
		if err := store.Add(ctx, job); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	list := store.List()
	if len(list) != 3 || list[0].ID != "a" || list[1].ID != "b" || list[2].ID != "c" {
		t.Fatalf("unexpected order: %v %v %v", list[0].ID, list[1].ID, list[2].ID)
	}
	if err := store.Add(ctx, sampleJob("a", base)); err == nil {
		t.Fatal("expected duplicate add to fail")
	}
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusProcessing, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusCompleted, false},
		{StatusProcessing, StatusCompleted, true},
		{StatusProcessing, StatusPending, false},
		{StatusCompleted, StatusProcessing, false},
		{StatusCancelled, StatusProcessing, false},
	}
	for _, tc := range tests {
		if got := tc.from.CanTransition(tc.to); got != tc.want {
			t.Errorf("%s -> %s = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
	if _, ok := ParseStatus("paused"); ok {
		t.Fatal("expected unknown status to be rejected")
	}
	if !StatusFailed.Terminal() || StatusProcessing.Terminal() {
		t.Fatal("terminal classification wrong")
	}
}

func TestProgressPercent(t *testing.T) {
	if got := progressPercent(1, 3); got != 33 {
		t.Fatalf("1/3 = %d", got)
	}
	if got := progressPercent(3, 3); got != 100 {
		t.Fatalf("3/3 = %d", got)
	}
	if got := progressPercent(1, 0); got != 0 {
		t.Fatalf("1/0 = %d", got)
	}
}
