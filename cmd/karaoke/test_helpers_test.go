package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"karaoke/internal/config"
	"karaoke/internal/daemon"
	"karaoke/internal/logging"
	"karaoke/internal/testsupport"
	"karaoke/internal/workflow"
)

type cliTestEnv struct {
	cfg        *config.Config
	daemon     *daemon.Daemon
	configPath string
	baseDir    string
}

// setupCLITestEnv starts a daemon whose processor copies a marker file
// instead of running ffmpeg.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv("KARAOKE_API_TOKEN", "")

	configPath := filepath.Join(base, "karaoke.toml")
	writeTestConfig(t, configPath, cfg)

	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	processor := workflow.FileProcessorFunc(func(_ context.Context, task workflow.FileTask) (workflow.OutputFile, error) {
		name := strings.TrimSuffix(filepath.Base(task.Input.Source), filepath.Ext(task.Input.Source)) + "_karaoke.mp4"
		path := filepath.Join(task.OutputDir, name)
		if err := os.WriteFile(path, []byte("video"), 0o644); err != nil {
			return workflow.OutputFile{}, err
		}
		return workflow.OutputFile{Name: name, Path: path, Size: 5}, nil
	})
	mgr := workflow.NewManager(cfg, store, logger, workflow.WithProcessor(processor))
	d, err := daemon.New(cfg, store, logger, mgr, logging.NewStreamHub(64), nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon start: %v", err)
	}
	t.Cleanup(d.Stop)

	return &cliTestEnv{cfg: cfg, daemon: d, configPath: configPath, baseDir: base}
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return runCLI(t, append([]string{"--config", e.configPath, "--api", e.daemon.APIAddress()}, args...))
}

func runCLI(t *testing.T, args []string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\noutput_dir = %q\nwork_dir = %q\nlog_dir = %q\n",
		cfg.Paths.OutputDir,
		cfg.Paths.WorkDir,
		cfg.Paths.LogDir,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
