package subtitles

import (
	"math"
	"os"
	"path/filepath"

	"karaoke/internal/fileutil"
	"karaoke/internal/layout"
)

// GenerateOptions bundles the layout and style choices for one track.
type GenerateOptions struct {
	Style             Style
	WordsPerLine      int
	MaxLineDurationMS int64
	// Wrap enables width-based row breaks and explicit alignment tags.
	Wrap bool
	// PlayResX and PlayResY describe the final frame. Zero selects 1920x1080.
	PlayResX int
	PlayResY int
}

// Generate validates words, lays them out and synthesizes the track.
func Generate(words []layout.Word, opts GenerateOptions) (*Track, error) {
	if err := layout.Validate(words); err != nil {
		return nil, err
	}
	resX, resY := opts.PlayResX, opts.PlayResY
	if resX <= 0 || resY <= 0 {
		resX, resY = DefaultPlayResX, DefaultPlayResY
	}
	maxWidth := math.Inf(1)
	if opts.Wrap {
		maxWidth = float64(resX)
	}
	wordsPerLine := opts.WordsPerLine
	if wordsPerLine <= 0 {
		wordsPerLine = layout.DefaultWordsPerLine
	}
	lines := layout.Layout(words, layout.Options{
		MaxWordsPerLine:   layout.ClampWordsPerLine(wordsPerLine),
		MaxWidth:          maxWidth,
		FontSize:          float64(opts.Style.FontSize),
		MaxLineDurationMS: opts.MaxLineDurationMS,
	})
	track, err := Synthesize(lines, opts.Style, opts.Wrap)
	if err != nil {
		return nil, err
	}
	track.PlayResX, track.PlayResY = resX, resY
	return track, nil
}

// WriteFile writes the track to path atomically.
func (t *Track) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return fileutil.WriteFileAtomic(path, []byte(t.Render()), 0o644)
}
