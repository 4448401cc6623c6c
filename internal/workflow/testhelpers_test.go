package workflow_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"karaoke/internal/notifications"
	"karaoke/internal/services"
	"karaoke/internal/testsupport"
	"karaoke/internal/workflow"
)

const helloWorld = `[{"text":"Hello","start_ms":0,"end_ms":1500},{"text":"world","start_ms":1500,"end_ms":3000}]`

type stubNotifier struct {
	mu     sync.Mutex
	events []notifications.Event
}

func (s *stubNotifier) Publish(_ context.Context, event notifications.Event, _ notifications.Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *stubNotifier) Close() error { return nil }

func (s *stubNotifier) seen() []notifications.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notifications.Event(nil), s.events...)
}

// writeSource creates a fake video with a sidecar transcript and returns its path.
func writeSource(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	testsupport.WriteFile(t, path, 128)
	sidecar := path[:len(path)-len(filepath.Ext(path))] + ".json"
	if err := os.WriteFile(sidecar, []byte(helloWorld), 0o644); err != nil {
		t.Fatalf("write transcript: %v", err)
	}
	return path
}

func waitForStatus(t *testing.T, mgr *workflow.Manager, id string, want workflow.Status) workflow.Job {
	t.Helper()
	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		job, ok := mgr.Get(id)
		if ok && job.Status == want {
			return job
		}
		if ok && job.Status.Terminal() {
			t.Fatalf("job reached %s (error %q), want %s", job.Status, job.Error, want)
		}
		time.Sleep(10 * time.Millisecond)
	}
	job, _ := mgr.Get(id)
	t.Fatalf("timed out waiting for %s, job is %s", want, job.Status)
	return workflow.Job{}
}

// blockingProcessor signals on started and blocks until its context ends.
func blockingProcessor(started chan<- string) workflow.FileProcessor {
	return workflow.FileProcessorFunc(func(ctx context.Context, task workflow.FileTask) (workflow.OutputFile, error) {
		started <- filepath.Base(task.Input.Source)
		<-ctx.Done()
		return workflow.OutputFile{}, services.Wrap(services.ErrCancelled, "test", "process", "", ctx.Err())
	})
}

// copyProcessor writes a small output file into the job directory.
func copyProcessor() workflow.FileProcessor {
	return workflow.FileProcessorFunc(func(_ context.Context, task workflow.FileTask) (workflow.OutputFile, error) {
		name := filepath.Base(task.Input.Source) + ".out"
		path := filepath.Join(task.OutputDir, name)
		if err := os.WriteFile(path, []byte("ok"), 0o644); err != nil {
			return workflow.OutputFile{}, err
		}
		return workflow.OutputFile{Name: name, Path: path, Size: 2}, nil
	})
}
