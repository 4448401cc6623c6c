package workflow_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"karaoke/internal/notifications"
	"karaoke/internal/queue"
	"karaoke/internal/services"
	"karaoke/internal/testsupport"
	"karaoke/internal/workflow"
)

func TestBatchWithMiddleEncodeFailureCompletes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	binDir := t.TempDir()
	cfg.Render.FFmpegBinary = testsupport.WriteFFmpegStub(t, binDir, "broken")
	cfg.Render.FFprobeBinary = testsupport.WriteFFprobeStub(t, binDir, testsupport.FFprobeJSON)

	srcDir := t.TempDir()
	files := []workflow.FileInput{
		{Source: writeSource(t, srcDir, "first.mp4")},
		{Source: writeSource(t, srcDir, "broken.mp4")},
		{Source: writeSource(t, srcDir, "third.mp4")},
	}

	notifier := &stubNotifier{}
	mgr := workflow.NewManager(cfg, testsupport.MustOpenStore(t, cfg), nil, workflow.WithNotifier(notifier))
	events, unsubscribe := mgr.Subscribe("")
	defer unsubscribe()

	ctx := context.Background()
	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer mgr.Stop()

	submitted, err := mgr.Submit(ctx, workflow.Submission{Files: files})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if submitted.Status != workflow.StatusPending || submitted.TotalFiles != 3 {
		t.Fatalf("unexpected submitted job: %+v", submitted)
	}

	job := waitForStatus(t, mgr, submitted.ID, workflow.StatusCompleted)
	// Stop waits for the worker to finish reporting and notifying.
	mgr.Stop()
	if job.ProcessedFiles != 2 || job.FailedFiles != 1 || job.Progress != 100 {
		t.Fatalf("counts = processed %d failed %d progress %d", job.ProcessedFiles, job.FailedFiles, job.Progress)
	}
	if job.CurrentFile != "" {
		t.Fatalf("expected current file cleared, got %q", job.CurrentFile)
	}
	if !strings.Contains(job.Error, services.ErrPartialBatch.Error()) {
		t.Fatalf("expected partial batch summary, got %q", job.Error)
	}

	failed := job.Files[1]
	if failed.Status != workflow.FileFailed || failed.ErrorKind != services.KindEncode {
		t.Fatalf("middle file = %+v", failed)
	}
	if !strings.Contains(failed.Error, "failed to render") {
		t.Fatalf("expected encoder stderr in error, got %q", failed.Error)
	}
	for _, i := range []int{0, 2} {
		if job.Files[i].Status != workflow.FileSucceeded {
			t.Fatalf("file %d = %+v", i, job.Files[i])
		}
	}

	var names []string
	for _, out := range job.OutputFiles {
		names = append(names, out.Name)
		if filepath.Dir(out.Path) != filepath.Join(cfg.Paths.OutputDir, job.ID) {
			t.Fatalf("output outside job dir: %s", out.Path)
		}
		if _, err := os.Stat(out.Path); err != nil {
			t.Fatalf("output missing: %v", err)
		}
	}
	if !slices.Equal(names, []string{"first_karaoke.mp4", "third_karaoke.mp4"}) {
		t.Fatalf("outputs = %v", names)
	}

	data, err := os.ReadFile(filepath.Join(job.OutputDir, cfg.Workflow.ReportName))
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var report workflow.BatchReport
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.TotalVideos != 3 || report.SuccessCount != 2 || report.FailCount != 1 || len(report.Results) != 3 {
		t.Fatalf("report = %+v", report)
	}

	last := -1
	drained := false
	for !drained {
		select {
		case evt := <-events:
			if evt.Job == nil || evt.JobID != job.ID {
				continue
			}
			if evt.Job.Progress < last {
				t.Fatalf("progress went backwards: %d after %d", evt.Job.Progress, last)
			}
			last = evt.Job.Progress
		default:
			drained = true
		}
	}
	if last != 100 {
		t.Fatalf("expected final event progress 100, got %d", last)
	}

	seen := notifier.seen()
	for _, want := range []notifications.Event{notifications.EventJobStarted, notifications.EventFileFailed, notifications.EventJobCompleted} {
		if !slices.Contains(seen, want) {
			t.Fatalf("missing notification %s in %v", want, seen)
		}
	}

	if _, err := os.Stat(filepath.Join(cfg.Paths.WorkDir, job.ID, "first.ass")); !os.IsNotExist(err) {
		t.Fatalf("expected subtitle track cleaned up, got %v", err)
	}
}

func TestSubmitRejectsInvalidSubmissions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	mgr := workflow.NewManager(cfg, nil, nil, workflow.WithProcessor(copyProcessor()))

	_, err := mgr.Submit(context.Background(), workflow.Submission{})
	if !errors.Is(err, services.ErrFatalJob) || !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected fatal validation error for empty batch, got %v", err)
	}

	_, err = mgr.Submit(context.Background(), workflow.Submission{
		Files:   []workflow.FileInput{{Source: "/tmp/a.mp4"}},
		Options: workflow.Options{Style: "disco"},
	})
	if !errors.Is(err, services.ErrFatalJob) || !strings.Contains(err.Error(), "disco") {
		t.Fatalf("expected unknown style rejection, got %v", err)
	}

	_, err = mgr.Submit(context.Background(), workflow.Submission{
		Files:   []workflow.FileInput{{Source: "/tmp/a.mp4"}},
		Options: workflow.Options{HighlightColor: "gold"},
	})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected color rejection, got %v", err)
	}
	if len(mgr.List()) != 0 {
		t.Fatal("rejected submissions must not create jobs")
	}
}

func TestSubmitResolvesDefaults(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Subtitles.Style = "neon"
	cfg.Render.CRF = 20
	mgr := workflow.NewManager(cfg, nil, nil, workflow.WithProcessor(copyProcessor()))

	job, err := mgr.Submit(context.Background(), workflow.Submission{
		Files:   []workflow.FileInput{{Source: "clip.mp4"}},
		Options: workflow.Options{WordsPerLine: 99},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	opts := job.Options
	if opts.Style != "neon" || opts.CRF == nil || *opts.CRF != 20 || opts.WordsPerLine != 20 {
		t.Fatalf("options not resolved: %+v", opts)
	}
	if !filepath.IsAbs(job.Files[0].Source) {
		t.Fatalf("expected absolute source, got %s", job.Files[0].Source)
	}
	if job.OutputDir != filepath.Join(cfg.Paths.OutputDir, job.ID) {
		t.Fatalf("output dir = %s", job.OutputDir)
	}
}

func TestNoValidSourcesFailsJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	mgr := workflow.NewManager(cfg, nil, nil, workflow.WithProcessor(copyProcessor()))
	ctx := context.Background()
	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer mgr.Stop()

	job, err := mgr.Submit(ctx, workflow.Submission{Files: []workflow.FileInput{{Source: filepath.Join(t.TempDir(), "missing.mp4")}}})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	job = waitForStatus(t, mgr, job.ID, workflow.StatusFailed)
	if !strings.Contains(job.Error, "no valid source files") {
		t.Fatalf("error = %q", job.Error)
	}
}

func TestCancelPendingJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	mgr := workflow.NewManager(cfg, testsupport.MustOpenStore(t, cfg), nil, workflow.WithProcessor(copyProcessor()))
	ctx := context.Background()

	job, err := mgr.Submit(ctx, workflow.Submission{Files: []workflow.FileInput{{Source: writeSource(t, t.TempDir(), "a.mp4")}}})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	cancelled, err := mgr.Cancel(job.ID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancelled.Status != workflow.StatusCancelled || cancelled.Files[0].Status != workflow.FileCancelled {
		t.Fatalf("cancelled job = %+v", cancelled)
	}
	if _, err := mgr.Cancel(job.ID); !errors.Is(err, workflow.ErrJobFinished) {
		t.Fatalf("expected ErrJobFinished, got %v", err)
	}

	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer mgr.Stop()
	time.Sleep(50 * time.Millisecond)
	if got, _ := mgr.Get(job.ID); got.Status != workflow.StatusCancelled {
		t.Fatalf("cancelled job was started: %s", got.Status)
	}
}

func TestCancelProcessingJobKeepsCompletedOutputs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	started := make(chan string, 4)
	var calls atomic.Int32
	processor := workflow.FileProcessorFunc(func(ctx context.Context, task workflow.FileTask) (workflow.OutputFile, error) {
		if calls.Add(1) == 1 {
			return copyProcessor().Process(ctx, task)
		}
		return blockingProcessor(started).Process(ctx, task)
	})
	mgr := workflow.NewManager(cfg, nil, nil, workflow.WithProcessor(processor))
	ctx := context.Background()
	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer mgr.Stop()

	dir := t.TempDir()
	job, err := mgr.Submit(ctx, workflow.Submission{Files: []workflow.FileInput{
		{Source: writeSource(t, dir, "a.mp4")},
		{Source: writeSource(t, dir, "b.mp4")},
		{Source: writeSource(t, dir, "c.mp4")},
	}})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	select {
	case name := <-started:
		if name != "b.mp4" {
			t.Fatalf("unexpected in-flight file %s", name)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("second file never started")
	}

	if err := mgr.Delete(job.ID, false); !errors.Is(err, workflow.ErrJobProcessing) {
		t.Fatalf("expected ErrJobProcessing, got %v", err)
	}
	inflight, _ := mgr.Get(job.ID)
	if inflight.CurrentFile != "b.mp4" || inflight.Progress != 33 {
		t.Fatalf("in-flight snapshot = file %q progress %d", inflight.CurrentFile, inflight.Progress)
	}

	if _, err := mgr.Cancel(job.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	done := waitForStatus(t, mgr, job.ID, workflow.StatusCancelled)
	mgr.Stop()
	if done.Files[0].Status != workflow.FileSucceeded || done.Files[1].Status != workflow.FileCancelled || done.Files[2].Status != workflow.FileCancelled {
		t.Fatalf("file states = %+v", done.Files)
	}
	if len(done.OutputFiles) != 1 {
		t.Fatalf("expected completed output kept, got %+v", done.OutputFiles)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected no further files after cancel, processor called %d times", calls.Load())
	}

	if err := mgr.Delete(job.ID, true); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(done.OutputDir); !os.IsNotExist(err) {
		t.Fatalf("expected output dir removed, got %v", err)
	}
	if _, ok := mgr.Get(job.ID); ok {
		t.Fatal("expected job removed")
	}
	if _, err := mgr.Outputs(job.ID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRecoveryRequeuesPendingAndFailsInterrupted(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	source := writeSource(t, t.TempDir(), "a.mp4")
	files, _ := json.Marshal([]workflow.FileRecord{{Index: 0, Source: source, Status: workflow.FilePending}})
	created := time.Now().UTC().Add(-time.Minute)
	for _, rec := range []queue.Record{
		{ID: "pending-job", Status: "pending", TotalFiles: 1, FilesJSON: string(files), OptionsJSON: `{"style":"classic"}`, OutputDir: filepath.Join(cfg.Paths.OutputDir, "pending-job"), CreatedAt: created},
		{ID: "stale-job", Status: "processing", TotalFiles: 1, FilesJSON: string(files), OptionsJSON: `{"style":"classic"}`, OutputDir: filepath.Join(cfg.Paths.OutputDir, "stale-job"), CreatedAt: created},
	} {
		if err := store.Save(ctx, rec); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	mgr := workflow.NewManager(cfg, store, nil, workflow.WithProcessor(copyProcessor()))
	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer mgr.Stop()

	stale, ok := mgr.Get("stale-job")
	if !ok || stale.Status != workflow.StatusFailed || !strings.Contains(stale.Error, "interrupted") {
		t.Fatalf("stale job = %+v", stale)
	}
	recovered := waitForStatus(t, mgr, "pending-job", workflow.StatusCompleted)
	if recovered.ProcessedFiles != 1 {
		t.Fatalf("recovered job = %+v", recovered)
	}

	rec, err := store.Get(ctx, "pending-job")
	if err != nil || rec == nil || rec.Status != "completed" {
		t.Fatalf("persisted record = %+v (%v)", rec, err)
	}
}

func TestWorkerPoolBoundsConcurrency(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithWorkers(2))
	var (
		mu      sync.Mutex
		current int
		peak    int
	)
	processor := workflow.FileProcessorFunc(func(ctx context.Context, task workflow.FileTask) (workflow.OutputFile, error) {
		mu.Lock()
		current++
		peak = max(peak, current)
		mu.Unlock()
		time.Sleep(30 * time.Millisecond)
		mu.Lock()
		current--
		mu.Unlock()
		return copyProcessor().Process(ctx, task)
	})
	mgr := workflow.NewManager(cfg, nil, nil, workflow.WithProcessor(processor))
	ctx := context.Background()
	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer mgr.Stop()

	dir := t.TempDir()
	var ids []string
	for _, name := range []string{"a.mp4", "b.mp4", "c.mp4", "d.mp4"} {
		job, err := mgr.Submit(ctx, workflow.Submission{Files: []workflow.FileInput{{Source: writeSource(t, dir, name)}}})
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
		ids = append(ids, job.ID)
	}
	for _, id := range ids {
		waitForStatus(t, mgr, id, workflow.StatusCompleted)
	}
	mu.Lock()
	defer mu.Unlock()
	if peak > 2 {
		t.Fatalf("peak concurrency %d exceeds worker pool", peak)
	}

	status := mgr.Status()
	if !status.Running || status.Workers != 2 || status.JobCounts[workflow.StatusCompleted] != 4 {
		t.Fatalf("status = %+v", status)
	}
}

func TestEventsFetchForLateClients(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	mgr := workflow.NewManager(cfg, nil, nil, workflow.WithProcessor(copyProcessor()))
	ctx := context.Background()
	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer mgr.Stop()

	job, err := mgr.Submit(ctx, workflow.Submission{Files: []workflow.FileInput{{Source: writeSource(t, t.TempDir(), "a.mp4")}}})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	waitForStatus(t, mgr, job.ID, workflow.StatusCompleted)
	mgr.Stop()

	events, _, err := mgr.Events().Fetch(ctx, 0, 0, job.ID, false)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	var types []workflow.EventType
	for _, evt := range events {
		types = append(types, evt.Type)
	}
	want := []workflow.EventType{workflow.EventJobCreated, workflow.EventJobStarted, workflow.EventFileStarted, workflow.EventFileCompleted, workflow.EventJobCompleted}
	if !slices.Equal(types, want) {
		t.Fatalf("event types = %v, want %v", types, want)
	}
}
