package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"karaoke/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("KARAOKE_API_TOKEN", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantOutput := filepath.Join(tempHome, ".local", "share", "karaoke", "output")
	if cfg.Paths.OutputDir != wantOutput {
		t.Fatalf("unexpected output dir: got %q want %q", cfg.Paths.OutputDir, wantOutput)
	}
	if cfg.Paths.APIBind != "127.0.0.1:7488" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.Subtitles.Style != "classic" {
		t.Fatalf("expected classic default style, got %q", cfg.Subtitles.Style)
	}
	if cfg.Subtitles.WordsPerLine != 10 {
		t.Fatalf("expected 10 words per line, got %d", cfg.Subtitles.WordsPerLine)
	}
	if cfg.Render.MinResolution != 1080 {
		t.Fatalf("expected min resolution 1080, got %d", cfg.Render.MinResolution)
	}
	if cfg.Render.Uniqueness {
		t.Fatal("expected uniqueness disabled by default")
	}
	if cfg.EncodeTimeout() != time.Hour {
		t.Fatalf("unexpected encode timeout %s", cfg.EncodeTimeout())
	}
	if cfg.QueueDBPath() != filepath.Join(cfg.Paths.LogDir, "jobs.db") {
		t.Fatalf("unexpected queue db path %q", cfg.QueueDBPath())
	}
	if cfg.Logging.Format != "console" {
		t.Fatalf("unexpected log format %q", cfg.Logging.Format)
	}
}

func TestLoadCustomConfig(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(t.TempDir(), "config.toml")
	payload := map[string]any{
		"paths": map[string]any{
			"output_dir": "~/renders",
			"api_token":  " secret ",
		},
		"render": map[string]any{
			"aspect_ratio": "9:16",
			"uniqueness":   true,
			"preset":       "SLOW",
		},
		"subtitles": map[string]any{
			"style":          " Neon ",
			"words_per_line": 40,
		},
		"logging": map[string]any{
			"format": "JSON",
		},
	}
	data, err := toml.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected config at %q, got %q (exists=%v)", configPath, resolved, exists)
	}
	if cfg.Paths.OutputDir != filepath.Join(tempHome, "renders") {
		t.Fatalf("unexpected output dir %q", cfg.Paths.OutputDir)
	}
	if cfg.Paths.APIToken != "secret" {
		t.Fatalf("expected trimmed token, got %q", cfg.Paths.APIToken)
	}
	if cfg.Render.AspectRatio != "9:16" || !cfg.Render.Uniqueness || cfg.Render.Preset != "slow" {
		t.Fatalf("unexpected render section %+v", cfg.Render)
	}
	if cfg.Subtitles.Style != "neon" {
		t.Fatalf("expected normalized style, got %q", cfg.Subtitles.Style)
	}
	if cfg.Subtitles.WordsPerLine != 20 {
		t.Fatalf("expected words per line clamped to 20, got %d", cfg.Subtitles.WordsPerLine)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected json log format, got %q", cfg.Logging.Format)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(configPath, []byte("[render]\nbogus = 1\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected unknown field to be rejected")
	}
}

func TestEnvFallbacks(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("KARAOKE_API_TOKEN", "env-token")
	t.Setenv("HUGGING_FACE_HUB_TOKEN", "")
	t.Setenv("HF_TOKEN", "hf-token")
	t.Setenv("KARAOKE_REDIS_ADDR", "redis:6379")
	os.Unsetenv("HUGGING_FACE_HUB_TOKEN")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.APIToken != "env-token" {
		t.Fatalf("expected api token from env, got %q", cfg.Paths.APIToken)
	}
	if cfg.Transcription.HFToken != "hf-token" {
		t.Fatalf("expected hf token from env, got %q", cfg.Transcription.HFToken)
	}
	if cfg.Notifications.RedisAddr != "redis:6379" {
		t.Fatalf("expected redis addr from env, got %q", cfg.Notifications.RedisAddr)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"crf", func(c *config.Config) { c.Render.CRF = 60 }, "render.crf"},
		{"preset", func(c *config.Config) { c.Render.Preset = "warp" }, "render.preset"},
		{"aspect", func(c *config.Config) { c.Render.AspectRatio = "wide" }, "render.aspect_ratio"},
		{"words", func(c *config.Config) { c.Subtitles.WordsPerLine = 0 }, "subtitles.words_per_line"},
		{"workers", func(c *config.Config) { c.Workflow.Workers = 0 }, "workflow.workers"},
		{"redis db", func(c *config.Config) { c.Notifications.RedisDB = 99 }, "notifications.redis_db"},
		{"pyannote", func(c *config.Config) {
			c.Transcription.Enabled = true
			c.Transcription.VADMethod = "pyannote"
			c.Transcription.HFToken = ""
		}, "transcription.hf_token"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error to mention %q, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if cfg.Workflow.ReportName != "karaoke_batch_report.json" {
		t.Fatalf("unexpected report name %q", cfg.Workflow.ReportName)
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.OutputDir = filepath.Join(base, "out")
	cfg.Paths.WorkDir = filepath.Join(base, "work")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.OutputDir, cfg.Paths.WorkDir, cfg.Paths.LogDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q", dir)
		}
	}
}
