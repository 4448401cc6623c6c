package workflow

import (
	"fmt"
	"strings"

	"karaoke/internal/config"
	"karaoke/internal/layout"
	"karaoke/internal/render"
	"karaoke/internal/services"
	"karaoke/internal/subtitles"
)

// Options are the per-job render choices. Unset fields fall back to the
// daemon configuration when the job is submitted; the stored job always
// carries the resolved values.
type Options struct {
	Style             string `json:"style,omitempty"`
	WordsPerLine      int    `json:"words_per_line,omitempty"`
	MaxLineDurationMS int64  `json:"max_line_duration_ms,omitempty"`
	AutoWrap          *bool  `json:"auto_wrap,omitempty"`
	FontName          string `json:"font_name,omitempty"`
	FontSize          int    `json:"font_size,omitempty"`
	VerticalMargin    *int   `json:"vertical_margin,omitempty"`
	BaseColor         string `json:"base_color,omitempty"`
	HighlightColor    string `json:"highlight_color,omitempty"`
	AspectRatio       string `json:"aspect_ratio,omitempty"`
	MinResolution     int    `json:"min_resolution,omitempty"`
	CRF               *int   `json:"crf,omitempty"`
	Preset            string `json:"preset,omitempty"`
	Uniqueness        *bool  `json:"uniqueness,omitempty"`
	Transcribe        *bool  `json:"transcribe,omitempty"`
}

// Resolve fills unset fields from cfg.
func (o Options) Resolve(cfg *config.Config) Options {
	out := o.clone()
	if strings.TrimSpace(out.Style) == "" {
		out.Style = cfg.Subtitles.Style
	}
	out.Style = strings.ToLower(strings.TrimSpace(out.Style))
	if out.WordsPerLine <= 0 {
		out.WordsPerLine = cfg.Subtitles.WordsPerLine
	}
	out.WordsPerLine = layout.ClampWordsPerLine(out.WordsPerLine)
	if out.MaxLineDurationMS <= 0 {
		out.MaxLineDurationMS = int64(cfg.Subtitles.MaxLineDuration)
	}
	if out.AutoWrap == nil {
		out.AutoWrap = ptr(cfg.Subtitles.AutoWrap)
	}
	if strings.TrimSpace(out.FontName) == "" {
		out.FontName = cfg.Subtitles.FontName
	}
	if out.FontSize <= 0 {
		out.FontSize = cfg.Subtitles.FontSize
	}
	if out.VerticalMargin == nil && cfg.Subtitles.VerticalMargin > 0 {
		out.VerticalMargin = ptr(cfg.Subtitles.VerticalMargin)
	}
	if strings.TrimSpace(out.AspectRatio) == "" {
		out.AspectRatio = cfg.Render.AspectRatio
	}
	if out.MinResolution <= 0 {
		out.MinResolution = cfg.Render.MinResolution
	}
	if out.CRF == nil {
		out.CRF = ptr(cfg.Render.CRF)
	}
	if strings.TrimSpace(out.Preset) == "" {
		out.Preset = cfg.Render.Preset
	}
	if out.Uniqueness == nil {
		out.Uniqueness = ptr(cfg.Render.Uniqueness)
	}
	if out.Transcribe == nil {
		out.Transcribe = ptr(cfg.Transcription.Enabled)
	}
	return out
}

// Validate checks resolved options. Errors are tagged with ErrValidation.
func (o Options) Validate() error {
	if _, err := o.style(); err != nil {
		return err
	}
	if o.AspectRatio != "" {
		if _, _, err := render.ParseAspect(o.AspectRatio); err != nil {
			return err
		}
	}
	if o.CRF != nil && (*o.CRF < 0 || *o.CRF > 51) {
		return services.Wrap(services.ErrValidation, "workflow", "options", fmt.Sprintf("crf %d outside 0..51", *o.CRF), nil)
	}
	if o.VerticalMargin != nil && *o.VerticalMargin < 0 {
		return services.Wrap(services.ErrValidation, "workflow", "options", "vertical_margin must be >= 0", nil)
	}
	return nil
}

func (o Options) style() (subtitles.Style, error) {
	overrides := subtitles.Overrides{
		FontName:       o.FontName,
		FontSize:       o.FontSize,
		VerticalMargin: o.VerticalMargin,
	}
	if o.BaseColor != "" {
		c, err := subtitles.ParseHex(o.BaseColor)
		if err != nil {
			return subtitles.Style{}, err
		}
		overrides.BaseColor = &c
	}
	if o.HighlightColor != "" {
		c, err := subtitles.ParseHex(o.HighlightColor)
		if err != nil {
			return subtitles.Style{}, err
		}
		overrides.HighlightColor = &c
	}
	return subtitles.ResolveStyle(o.Style, overrides)
}

func (o Options) generateOptions(style subtitles.Style, frame render.Dimensions) subtitles.GenerateOptions {
	return subtitles.GenerateOptions{
		Style:             style,
		WordsPerLine:      o.WordsPerLine,
		MaxLineDurationMS: o.MaxLineDurationMS,
		Wrap:              deref(o.AutoWrap),
		PlayResX:          frame.Width,
		PlayResY:          frame.Height,
	}
}

// SubtitleOptions resolves the style and returns the generation options for
// a frame of the given size.
func (o Options) SubtitleOptions(frame render.Dimensions) (subtitles.GenerateOptions, error) {
	style, err := o.style()
	if err != nil {
		return subtitles.GenerateOptions{}, err
	}
	return o.generateOptions(style, frame), nil
}

func (o Options) renderConfig(cfg *config.Config, source, output string, index int) render.Config {
	crf := cfg.Render.CRF
	if o.CRF != nil {
		crf = *o.CRF
	}
	return render.Config{
		SourcePath:      source,
		OutputPath:      output,
		AspectRatio:     o.AspectRatio,
		MinResolution:   o.MinResolution,
		CRF:             crf,
		Preset:          o.Preset,
		VideoCodec:      cfg.Render.VideoCodec,
		Uniqueness:      deref(o.Uniqueness),
		UniquenessIndex: index,
	}
}

func (o Options) clone() Options {
	out := o
	if o.AutoWrap != nil {
		out.AutoWrap = ptr(*o.AutoWrap)
	}
	if o.VerticalMargin != nil {
		out.VerticalMargin = ptr(*o.VerticalMargin)
	}
	if o.CRF != nil {
		out.CRF = ptr(*o.CRF)
	}
	if o.Uniqueness != nil {
		out.Uniqueness = ptr(*o.Uniqueness)
	}
	if o.Transcribe != nil {
		out.Transcribe = ptr(*o.Transcribe)
	}
	return out
}

func ptr[T any](v T) *T { return &v }

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
