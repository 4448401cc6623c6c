package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"karaoke/internal/testsupport"
)

func TestSubmitWaitListShowDelete(t *testing.T) {
	env := setupCLITestEnv(t)
	first := filepath.Join(env.baseDir, "media", "one.mp4")
	second := filepath.Join(env.baseDir, "media", "two.mkv")
	testsupport.WriteFile(t, first, 32)
	testsupport.WriteFile(t, second, 32)

	out, err := env.run(t, "submit", "--dir", filepath.Dir(first), "--style", "neon", "--wait")
	if err != nil {
		t.Fatalf("submit: %v\n%s", err, out)
	}
	requireContains(t, out, "completed: 2 rendered, 0 failed of 2")
	requireContains(t, out, "one_karaoke.mp4")
	requireContains(t, out, "two_karaoke.mp4")

	jobs := env.daemon.Workflow().List()
	if len(jobs) != 1 {
		t.Fatalf("expected one job, got %d", len(jobs))
	}
	id := jobs[0].ID
	if jobs[0].Options.Style != "neon" {
		t.Fatalf("style flag not forwarded: %+v", jobs[0].Options)
	}

	out, err = env.run(t, "jobs")
	if err != nil {
		t.Fatalf("jobs: %v", err)
	}
	requireContains(t, out, id)
	requireContains(t, out, "completed")

	out, err = env.run(t, "show", id)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	requireContains(t, out, "Files:      2 rendered, 0 failed of 2")
	requireContains(t, out, "two.mkv")

	if _, err := env.run(t, "cancel", id); err == nil || !strings.Contains(err.Error(), "already finished") {
		t.Fatalf("expected finished error, got %v", err)
	}

	out, err = env.run(t, "delete", "--outputs", id)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	requireContains(t, out, "deleted with its outputs")
	if _, err := os.Stat(filepath.Join(env.cfg.Paths.OutputDir, id)); !os.IsNotExist(err) {
		t.Fatalf("expected outputs removed, stat err %v", err)
	}

	out, err = env.run(t, "jobs")
	if err != nil {
		t.Fatalf("jobs: %v", err)
	}
	requireContains(t, out, "No jobs")
}

func TestSubmitWithoutDaemon(t *testing.T) {
	env := setupCLITestEnv(t)
	source := filepath.Join(env.baseDir, "a.mp4")
	testsupport.WriteFile(t, source, 8)

	_, err := runCLI(t, []string{"--config", env.configPath, "--api", "127.0.0.1:1", "submit", source})
	if err == nil || !strings.Contains(err.Error(), "start it with `karaoked`") {
		t.Fatalf("expected unavailable hint, got %v", err)
	}
}

func TestSubmitRejectsBadInputs(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, err := env.run(t, "submit"); err == nil || !strings.Contains(err.Error(), "no input files") {
		t.Fatalf("expected no input error, got %v", err)
	}
	if _, err := env.run(t, "submit", "--dir", t.TempDir()); err == nil || !strings.Contains(err.Error(), "no video files") {
		t.Fatalf("expected empty dir error, got %v", err)
	}
	if _, err := env.run(t, "submit", "--transcript", "x.json", "a.mp4", "b.mp4"); err == nil {
		t.Fatal("expected --transcript with two videos to fail")
	}
	if _, err := env.run(t, "submit", "--style", "vaporwave", "a.mp4"); err == nil || !strings.Contains(err.Error(), "400") {
		t.Fatalf("expected validation error from daemon, got %v", err)
	}
}

func TestStylesFallBackWithoutDaemon(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, []string{"--config", env.configPath, "--api", "127.0.0.1:1", "styles"})
	if err != nil {
		t.Fatalf("styles: %v", err)
	}
	for _, id := range []string{"classic *", "modern", "neon", "elegant", "anime"} {
		requireContains(t, out, id)
	}

	out, err = env.run(t, "ratios", "--json")
	if err != nil {
		t.Fatalf("ratios: %v", err)
	}
	requireContains(t, out, `"id": "9:16"`)
}

func TestSubtitlesCommandWritesTrack(t *testing.T) {
	env := setupCLITestEnv(t)
	transcriptPath := filepath.Join(env.baseDir, "words.json")
	words := `[{"text":"Hello","start_ms":0,"end_ms":1500},{"text":"world","start_ms":1500,"end_ms":3000}]`
	if err := os.WriteFile(transcriptPath, []byte(words), 0o644); err != nil {
		t.Fatalf("write transcript: %v", err)
	}

	out, err := env.run(t, "subtitles", transcriptPath)
	if err != nil {
		t.Fatalf("subtitles: %v", err)
	}
	requireContains(t, out, "[Script Info]")
	requireContains(t, out, `{\k150}Hello`)
	requireContains(t, out, `{\k150}world`)

	target := filepath.Join(env.baseDir, "out", "track.ass")
	out, err = env.run(t, "subtitles", "--output", target, "--style", "anime", transcriptPath)
	if err != nil {
		t.Fatalf("subtitles to file: %v", err)
	}
	requireContains(t, out, "Wrote 1 cues")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected track at %s: %v", target, err)
	}
}

func TestStatusReportsRunningDaemon(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "== Daemon ==")
	requireContains(t, out, "[OK] Running")
	requireContains(t, out, "== Directories ==")

	out, err = runCLI(t, []string{"--config", env.configPath, "--api", "127.0.0.1:1", "status"})
	if err != nil {
		t.Fatalf("status without daemon: %v", err)
	}
	requireContains(t, out, "[ERROR] Not running")
}
