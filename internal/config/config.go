package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	OutputDir string `toml:"output_dir"`
	WorkDir   string `toml:"work_dir"`
	LogDir    string `toml:"log_dir"`
	APIBind   string `toml:"api_bind"`
	APIToken  string `toml:"api_token"`
}

// Render contains encoder settings shared by every job.
type Render struct {
	FFmpegBinary  string `toml:"ffmpeg_binary"`
	FFprobeBinary string `toml:"ffprobe_binary"`
	VideoCodec    string `toml:"video_codec"`
	CRF           int    `toml:"crf"`
	Preset        string `toml:"preset"`
	MinResolution int    `toml:"min_resolution"`
	AspectRatio   string `toml:"aspect_ratio"`
	Uniqueness    bool   `toml:"uniqueness"`
	EncodeTimeout int    `toml:"encode_timeout"`
	ProbeTimeout  int    `toml:"probe_timeout"`
	OutputSuffix  string `toml:"output_suffix"`
	KeepSubtitles bool   `toml:"keep_subtitles"`
}

// Subtitles contains defaults for karaoke subtitle synthesis.
type Subtitles struct {
	Style           string `toml:"style"`
	WordsPerLine    int    `toml:"words_per_line"`
	MaxLineDuration int    `toml:"max_line_duration_ms"`
	AutoWrap        bool   `toml:"auto_wrap"`
	FontName        string `toml:"font_name"`
	FontSize        int    `toml:"font_size"`
	VerticalMargin  int    `toml:"vertical_margin"`
}

// Transcription contains configuration for the external WhisperX transcriber.
type Transcription struct {
	Enabled     bool   `toml:"enabled"`
	Model       string `toml:"model"`
	Language    string `toml:"language"`
	CUDAEnabled bool   `toml:"cuda_enabled"`
	VADMethod   string `toml:"vad_method"`
	HFToken     string `toml:"hf_token"`
	Timeout     int    `toml:"timeout"`
}

// Workflow contains configuration for the job orchestrator.
type Workflow struct {
	Workers        int    `toml:"workers"`
	QueueCapacity  int    `toml:"queue_capacity"`
	EventBuffer    int    `toml:"event_buffer"`
	RetentionHours int    `toml:"retention_hours"`
	SweepInterval  int    `toml:"sweep_interval"`
	ReportName     string `toml:"report_name"`
}

// Notifications contains configuration for job event fan-out.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	RedisAddr      string `toml:"redis_addr"`
	RedisPassword  string `toml:"redis_password"`
	RedisDB        int    `toml:"redis_db"`
	RedisChannel   string `toml:"redis_channel"`
	JobCompleted   bool   `toml:"job_completed"`
	JobFailed      bool   `toml:"job_failed"`
	FileFailed     bool   `toml:"file_failed"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for the karaoke service.
//
// Configuration sections by subsystem:
//   - Paths: output, work and log directories plus the API bind address
//   - Render: ffmpeg binaries, encoder defaults and timeouts
//   - Subtitles: default style and line layout settings
//   - Transcription: optional WhisperX transcription for files without word timings
//   - Workflow: worker pool size, queue capacity and job retention
//   - Notifications: ntfy pushes and Redis pub/sub event fan-out
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Render        Render        `toml:"render"`
	Subtitles     Subtitles     `toml:"subtitles"`
	Transcription Transcription `toml:"transcription"`
	Workflow      Workflow      `toml:"workflow"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("karaoke.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.WorkDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// QueueDBPath returns the SQLite database holding persisted jobs.
func (c *Config) QueueDBPath() string {
	return filepath.Join(c.Paths.LogDir, "jobs.db")
}

// LockPath returns the daemon single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.LogDir, "karaoked.lock")
}

// LogFilePath returns the daemon log file.
func (c *Config) LogFilePath() string {
	return filepath.Join(c.Paths.LogDir, "karaoke.log")
}

// EncodeTimeout bounds a single encoder invocation.
func (c *Config) EncodeTimeout() time.Duration {
	return time.Duration(c.Render.EncodeTimeout) * time.Second
}

// ProbeTimeout bounds a single ffprobe invocation.
func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Render.ProbeTimeout) * time.Second
}

// TranscriptionTimeout bounds a single WhisperX run.
func (c *Config) TranscriptionTimeout() time.Duration {
	return time.Duration(c.Transcription.Timeout) * time.Second
}

// Retention returns how long terminal jobs are kept before eviction.
// Zero disables eviction.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.Workflow.RetentionHours) * time.Hour
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
