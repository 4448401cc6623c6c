package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeRender()
	c.normalizeSubtitles()
	c.normalizeTranscription()
	c.normalizeWorkflow()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("KARAOKE_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeRender() {
	c.Render.FFmpegBinary = strings.TrimSpace(c.Render.FFmpegBinary)
	if c.Render.FFmpegBinary == "" {
		c.Render.FFmpegBinary = defaultFFmpegBinary
	}
	c.Render.FFprobeBinary = strings.TrimSpace(c.Render.FFprobeBinary)
	if c.Render.FFprobeBinary == "" {
		c.Render.FFprobeBinary = defaultFFprobeBinary
	}
	c.Render.VideoCodec = strings.TrimSpace(c.Render.VideoCodec)
	if c.Render.VideoCodec == "" {
		c.Render.VideoCodec = defaultVideoCodec
	}
	c.Render.Preset = strings.ToLower(strings.TrimSpace(c.Render.Preset))
	if c.Render.Preset == "" {
		c.Render.Preset = defaultPreset
	}
	c.Render.AspectRatio = strings.TrimSpace(c.Render.AspectRatio)
	if c.Render.ProbeTimeout <= 0 {
		c.Render.ProbeTimeout = defaultProbeTimeout
	}
	if c.Render.OutputSuffix == "" {
		c.Render.OutputSuffix = defaultOutputSuffix
	}
}

func (c *Config) normalizeSubtitles() {
	c.Subtitles.Style = strings.ToLower(strings.TrimSpace(c.Subtitles.Style))
	if c.Subtitles.Style == "" {
		c.Subtitles.Style = defaultStyle
	}
	c.Subtitles.FontName = strings.TrimSpace(c.Subtitles.FontName)
	if c.Subtitles.WordsPerLine <= 0 {
		c.Subtitles.WordsPerLine = defaultWordsPerLine
	}
	if c.Subtitles.WordsPerLine > maxWordsPerLine {
		c.Subtitles.WordsPerLine = maxWordsPerLine
	}
	if c.Subtitles.MaxLineDuration < 0 {
		c.Subtitles.MaxLineDuration = 0
	}
}

func (c *Config) normalizeTranscription() {
	c.Transcription.Model = strings.TrimSpace(c.Transcription.Model)
	if c.Transcription.Model == "" {
		c.Transcription.Model = defaultTranscriptionModel
	}
	c.Transcription.Language = strings.ToLower(strings.TrimSpace(c.Transcription.Language))
	c.Transcription.VADMethod = strings.ToLower(strings.TrimSpace(c.Transcription.VADMethod))
	if c.Transcription.VADMethod == "" {
		c.Transcription.VADMethod = defaultVADMethod
	}
	c.Transcription.HFToken = strings.TrimSpace(c.Transcription.HFToken)
	if c.Transcription.HFToken == "" {
		if value, ok := os.LookupEnv("HUGGING_FACE_HUB_TOKEN"); ok {
			c.Transcription.HFToken = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("HF_TOKEN"); ok {
			c.Transcription.HFToken = strings.TrimSpace(value)
		}
	}
	if c.Transcription.Timeout <= 0 {
		c.Transcription.Timeout = defaultTranscriptionLimit
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.QueueCapacity <= 0 {
		c.Workflow.QueueCapacity = defaultQueueCapacity
	}
	if c.Workflow.EventBuffer <= 0 {
		c.Workflow.EventBuffer = defaultEventBuffer
	}
	if c.Workflow.RetentionHours < 0 {
		c.Workflow.RetentionHours = 0
	}
	if c.Workflow.SweepInterval <= 0 {
		c.Workflow.SweepInterval = defaultSweepInterval
	}
	c.Workflow.ReportName = strings.TrimSpace(c.Workflow.ReportName)
	if c.Workflow.ReportName == "" {
		c.Workflow.ReportName = defaultReportName
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	c.Notifications.RedisAddr = strings.TrimSpace(c.Notifications.RedisAddr)
	if c.Notifications.RedisAddr == "" {
		if value, ok := os.LookupEnv("KARAOKE_REDIS_ADDR"); ok {
			c.Notifications.RedisAddr = strings.TrimSpace(value)
		}
	}
	c.Notifications.RedisChannel = strings.TrimSpace(c.Notifications.RedisChannel)
	if c.Notifications.RedisChannel == "" {
		c.Notifications.RedisChannel = defaultRedisChannel
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
