package config

import (
	"errors"
	"fmt"
	"regexp"
)

var aspectRatioPattern = regexp.MustCompile(`^[1-9][0-9]*:[1-9][0-9]*$`)

var validPresets = map[string]struct{}{
	"ultrafast": {},
	"superfast": {},
	"veryfast":  {},
	"faster":    {},
	"fast":      {},
	"medium":    {},
	"slow":      {},
	"slower":    {},
	"veryslow":  {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateRender(); err != nil {
		return err
	}
	if err := c.validateSubtitles(); err != nil {
		return err
	}
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.OutputDir == "" {
		return errors.New("paths.output_dir must be set")
	}
	if c.Paths.WorkDir == "" {
		return errors.New("paths.work_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateRender() error {
	if err := ensurePositiveMap(map[string]int{
		"render.min_resolution": c.Render.MinResolution,
		"render.encode_timeout": c.Render.EncodeTimeout,
		"render.probe_timeout":  c.Render.ProbeTimeout,
	}); err != nil {
		return err
	}
	if c.Render.CRF < 0 || c.Render.CRF > maxCRF {
		return fmt.Errorf("render.crf must be between 0 and %d", maxCRF)
	}
	if _, ok := validPresets[c.Render.Preset]; !ok {
		return fmt.Errorf("render.preset %q is not a known x264 preset", c.Render.Preset)
	}
	if c.Render.AspectRatio != "" && !aspectRatioPattern.MatchString(c.Render.AspectRatio) {
		return fmt.Errorf("render.aspect_ratio %q must look like W:H (for example 9:16)", c.Render.AspectRatio)
	}
	return nil
}

func (c *Config) validateSubtitles() error {
	if c.Subtitles.WordsPerLine < 1 || c.Subtitles.WordsPerLine > maxWordsPerLine {
		return fmt.Errorf("subtitles.words_per_line must be between 1 and %d", maxWordsPerLine)
	}
	if c.Subtitles.FontSize < 0 {
		return errors.New("subtitles.font_size must be >= 0")
	}
	if c.Subtitles.VerticalMargin < 0 {
		return errors.New("subtitles.vertical_margin must be >= 0")
	}
	return nil
}

func (c *Config) validateTranscription() error {
	if !c.Transcription.Enabled {
		return nil
	}
	switch c.Transcription.VADMethod {
	case "silero", "pyannote":
	default:
		return fmt.Errorf("transcription.vad_method %q must be silero or pyannote", c.Transcription.VADMethod)
	}
	if c.Transcription.VADMethod == "pyannote" && c.Transcription.HFToken == "" {
		return errors.New("transcription.hf_token must be set when transcription.vad_method is pyannote (or set HF_TOKEN)")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	return ensurePositiveMap(map[string]int{
		"workflow.workers":        c.Workflow.Workers,
		"workflow.queue_capacity": c.Workflow.QueueCapacity,
		"workflow.event_buffer":   c.Workflow.EventBuffer,
		"workflow.sweep_interval": c.Workflow.SweepInterval,
	})
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	if c.Notifications.RedisDB < 0 || c.Notifications.RedisDB > maxRedisDB {
		return fmt.Errorf("notifications.redis_db must be between 0 and %d", maxRedisDB)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
