package main

import (
	"github.com/spf13/cobra"

	"karaoke/internal/workflow"
)

// optionFlags binds per-job render options. Only flags the user set are
// copied into workflow.Options so config defaults still apply.
type optionFlags struct {
	style          string
	wordsPerLine   int
	maxLineMS      int64
	noWrap         bool
	fontName       string
	fontSize       int
	verticalMargin int
	baseColor      string
	highlightColor string
	aspectRatio    string
	minResolution  int
	crf            int
	preset         string
	uniqueness     bool
	transcribe     bool
}

func (f *optionFlags) bind(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&f.style, "style", "s", "", "Subtitle style template (see `karaoke styles`)")
	flags.IntVar(&f.wordsPerLine, "words-per-line", 0, "Words per subtitle line (1-20)")
	flags.Int64Var(&f.maxLineMS, "max-line-ms", 0, "Maximum line duration in milliseconds")
	flags.BoolVar(&f.noWrap, "no-wrap", false, "Disable width-based line wrapping")
	flags.StringVar(&f.fontName, "font", "", "Override the template font")
	flags.IntVar(&f.fontSize, "font-size", 0, "Override the template font size")
	flags.IntVar(&f.verticalMargin, "margin", 0, "Override the vertical margin in pixels")
	flags.StringVar(&f.baseColor, "base-color", "", "Base text color (#RRGGBB)")
	flags.StringVar(&f.highlightColor, "highlight-color", "", "Highlight color (#RRGGBB)")
	flags.StringVarP(&f.aspectRatio, "ratio", "r", "", "Output aspect ratio (see `karaoke ratios`)")
	flags.IntVar(&f.minResolution, "min-resolution", 0, "Minimum short-side resolution")
	flags.IntVar(&f.crf, "crf", 0, "Encoder CRF (0-51)")
	flags.StringVar(&f.preset, "preset", "", "Encoder preset")
	flags.BoolVar(&f.uniqueness, "uniqueness", false, "Apply per-file uniqueness adjustments")
	flags.BoolVar(&f.transcribe, "transcribe", false, "Transcribe files without word timings using WhisperX")
}

func (f *optionFlags) options(cmd *cobra.Command) workflow.Options {
	flags := cmd.Flags()
	opts := workflow.Options{
		Style:             f.style,
		WordsPerLine:      f.wordsPerLine,
		MaxLineDurationMS: f.maxLineMS,
		FontName:          f.fontName,
		FontSize:          f.fontSize,
		BaseColor:         f.baseColor,
		HighlightColor:    f.highlightColor,
		AspectRatio:       f.aspectRatio,
		MinResolution:     f.minResolution,
		Preset:            f.preset,
	}
	if flags.Changed("no-wrap") {
		wrap := !f.noWrap
		opts.AutoWrap = &wrap
	}
	if flags.Changed("margin") {
		margin := f.verticalMargin
		opts.VerticalMargin = &margin
	}
	if flags.Changed("crf") {
		crf := f.crf
		opts.CRF = &crf
	}
	if flags.Changed("uniqueness") {
		uniqueness := f.uniqueness
		opts.Uniqueness = &uniqueness
	}
	if flags.Changed("transcribe") {
		transcribe := f.transcribe
		opts.Transcribe = &transcribe
	}
	return opts
}
