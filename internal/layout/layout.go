package layout

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"golang.org/x/text/width"

	"karaoke/internal/services"
)

const (
	// MarginFraction is the share of the nominal width reserved as side margin.
	MarginFraction = 0.2

	DefaultWordsPerLine = 10
	MaxWordsPerLine     = 20

	wideGlyphFactor   = 1.0
	narrowGlyphFactor = 0.6
	spaceGlyphFactor  = 0.3
)

// Word is one spoken word with its timing in milliseconds.
type Word struct {
	Text    string `json:"text"`
	StartMS int64  `json:"start_ms"`
	EndMS   int64  `json:"end_ms"`
}

// Line is one rendered row of words. Rows sharing a Block value belong to the
// same subtitle cue.
type Line struct {
	Words          []Word
	EstimatedWidth float64
	Block          int
}

// StartMS returns the start of the first word.
func (l Line) StartMS() int64 {
	if len(l.Words) == 0 {
		return 0
	}
	return l.Words[0].StartMS
}

// EndMS returns the end of the last word.
func (l Line) EndMS() int64 {
	if len(l.Words) == 0 {
		return 0
	}
	return l.Words[len(l.Words)-1].EndMS
}

// Text joins the line's words with single spaces.
func (l Line) Text() string {
	parts := make([]string, len(l.Words))
	for i, w := range l.Words {
		parts[i] = w.Text
	}
	return strings.Join(parts, " ")
}

// Options controls line construction.
type Options struct {
	// MaxWordsPerLine bounds the words in one cue. Values <= 0 mean unbounded.
	MaxWordsPerLine int
	// MaxWidth is the nominal frame width in pixels. math.Inf(1) or 0 disables wrapping.
	MaxWidth float64
	// FontSize is the nominal glyph height in pixels used by the width heuristic.
	FontSize float64
	// MaxLineDurationMS ends a cue once its span would exceed this value. 0 disables.
	MaxLineDurationMS int64
}

// ClampWordsPerLine bounds user input to the supported 1..20 range.
func ClampWordsPerLine(n int) int {
	return max(1, min(MaxWordsPerLine, n))
}

// EstimateWidth approximates the rendered width of text in pixels.
func EstimateWidth(text string, fontSize float64) float64 {
	total := 0.0
	for _, r := range text {
		total += glyphFactor(r) * fontSize
	}
	return total
}

func glyphFactor(r rune) float64 {
	if unicode.IsSpace(r) {
		return spaceGlyphFactor
	}
	switch width.LookupRune(r).Kind() {
	case width.EastAsianWide, width.EastAsianFullwidth:
		return wideGlyphFactor
	default:
		return narrowGlyphFactor
	}
}

// Layout splits words into lines preserving their order. Empty input yields no lines.
func Layout(words []Word, opts Options) []Line {
	if len(words) == 0 {
		return nil
	}
	budget := math.Inf(1)
	if opts.MaxWidth > 0 && !math.IsInf(opts.MaxWidth, 1) {
		budget = opts.MaxWidth * (1 - MarginFraction)
	}
	spaceWidth := EstimateWidth(" ", opts.FontSize)

	var (
		lines      []Line
		current    Line
		block      int
		blockCount int
		blockStart int64
	)
	flush := func() {
		if len(current.Words) > 0 {
			lines = append(lines, current)
		}
		current = Line{Block: block}
	}

	for i, word := range words {
		wordWidth := EstimateWidth(word.Text, opts.FontSize)
		if i > 0 {
			overCount := opts.MaxWordsPerLine > 0 && blockCount >= opts.MaxWordsPerLine
			overSpan := opts.MaxLineDurationMS > 0 && word.EndMS-blockStart > opts.MaxLineDurationMS
			switch {
			case overCount || overSpan:
				block++
				flush()
				blockCount = 0
			case current.EstimatedWidth+spaceWidth+wordWidth > budget:
				flush()
			}
		}
		if blockCount == 0 {
			blockStart = word.StartMS
		}
		if len(current.Words) > 0 {
			current.EstimatedWidth += spaceWidth
		}
		current.Words = append(current.Words, word)
		current.EstimatedWidth += wordWidth
		blockCount++
	}
	flush()
	return lines
}

// Validate rejects word sequences the synthesizer cannot render faithfully.
func Validate(words []Word) error {
	for i, w := range words {
		if strings.TrimSpace(w.Text) == "" {
			return services.Wrap(services.ErrValidation, "layout", "validate", fmt.Sprintf("word %d has empty text", i), nil)
		}
		if w.EndMS <= w.StartMS {
			return services.Wrap(services.ErrValidation, "layout", "validate", fmt.Sprintf("word %d (%q) ends at %dms, not after its start %dms", i, w.Text, w.EndMS, w.StartMS), nil)
		}
		if i == 0 {
			continue
		}
		prev := words[i-1]
		if w.StartMS < prev.StartMS {
			return services.Wrap(services.ErrValidation, "layout", "validate", fmt.Sprintf("word %d (%q) starts at %dms before word %d at %dms", i, w.Text, w.StartMS, i-1, prev.StartMS), nil)
		}
		if w.StartMS < prev.EndMS {
			return services.Wrap(services.ErrValidation, "layout", "validate", fmt.Sprintf("word %d (%q) overlaps word %d ending at %dms", i, w.Text, i-1, prev.EndMS), nil)
		}
	}
	return nil
}
