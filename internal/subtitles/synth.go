package subtitles

import (
	"fmt"
	"io"
	"strings"

	"karaoke/internal/layout"
)

const (
	DefaultPlayResX = 1920
	DefaultPlayResY = 1080

	scriptTitle = "Karaoke Subtitle"
	lineBreak   = `\N`

	styleFormat  = "Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding"
	eventsFormat = "Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text"
)

// Event is one Dialogue cue.
type Event struct {
	StartMS int64
	EndMS   int64
	MarginV int
	Text    string
}

// Track is a complete ASS document.
type Track struct {
	Style    Style
	PlayResX int
	PlayResY int
	Events   []Event
}

// Synthesize converts laid-out lines into a karaoke track. Lines sharing a
// block become one cue with rows separated by \N. With wrap set, every cue is
// prefixed with the horizontally centered alignment of the style's row.
func Synthesize(lines []layout.Line, style Style, wrap bool) (*Track, error) {
	var words []layout.Word
	for _, line := range lines {
		words = append(words, line.Words...)
	}
	if err := layout.Validate(words); err != nil {
		return nil, err
	}

	track := &Track{Style: style, PlayResX: DefaultPlayResX, PlayResY: DefaultPlayResY}
	for i := 0; i < len(lines); {
		j := i + 1
		for j < len(lines) && lines[j].Block == lines[i].Block {
			j++
		}
		track.Events = append(track.Events, buildEvent(lines[i:j], style, wrap))
		i = j
	}
	return track, nil
}

func buildEvent(rows []layout.Line, style Style, wrap bool) Event {
	var b strings.Builder
	if wrap {
		b.WriteString(alignmentTag(style.Row()))
	}
	var start, end int64
	first := true
	for r, row := range rows {
		if len(row.Words) == 0 {
			continue
		}
		if first {
			start = row.StartMS()
			first = false
		}
		end = row.EndMS()
		if r > 0 {
			b.WriteString(lineBreak)
		}
		cs := wordCentiseconds(row)
		for i, w := range row.Words {
			if i > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, `{\k%d}%s`, cs, SanitizeText(w.Text))
		}
	}
	return Event{StartMS: start, EndMS: end, MarginV: style.MarginV, Text: b.String()}
}

// wordCentiseconds splits a row's span evenly across its words regardless of
// word length.
func wordCentiseconds(row layout.Line) int64 {
	n := int64(len(row.Words))
	if n == 0 {
		return 1
	}
	return max(1, (row.EndMS()-row.StartMS())/n/10)
}

func alignmentTag(row Row) string {
	switch row {
	case RowTop:
		return `{\an8}`
	case RowMiddle:
		return `{\an5}`
	default:
		return `{\an2}`
	}
}

var textReplacer = strings.NewReplacer("{", "(", "}", ")", `\`, "/")

// SanitizeText neutralizes override-block syntax and collapses whitespace.
func SanitizeText(text string) string {
	return strings.Join(strings.Fields(textReplacer.Replace(text)), " ")
}

// FormatTimestamp renders milliseconds as H:MM:SS.cc.
func FormatTimestamp(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	cs := ms / 10
	return fmt.Sprintf("%d:%02d:%02d.%02d", cs/360000, cs/6000%60, cs/100%60, cs%100)
}

// Render returns the whole document as a string.
func (t *Track) Render() string {
	var b strings.Builder
	_, _ = t.WriteTo(&b)
	return b.String()
}

// WriteTo writes the document to w.
func (t *Track) WriteTo(w io.Writer) (int64, error) {
	resX, resY := t.PlayResX, t.PlayResY
	if resX <= 0 || resY <= 0 {
		resX, resY = DefaultPlayResX, DefaultPlayResY
	}
	var b strings.Builder
	b.WriteString("[Script Info]\n")
	fmt.Fprintf(&b, "Title: %s\n", scriptTitle)
	b.WriteString("ScriptType: v4.00+\n")
	b.WriteString("WrapStyle: 0\n")
	fmt.Fprintf(&b, "PlayResX: %d\n", resX)
	fmt.Fprintf(&b, "PlayResY: %d\n", resY)
	b.WriteString("ScaledBorderAndShadow: yes\n\n")

	b.WriteString("[V4+ Styles]\n")
	b.WriteString(styleFormat + "\n")
	b.WriteString(t.Style.Line() + "\n\n")

	b.WriteString("[Events]\n")
	b.WriteString(eventsFormat + "\n")
	for _, ev := range t.Events {
		fmt.Fprintf(&b, "Dialogue: 0,%s,%s,%s,,0,0,%d,,%s\n",
			FormatTimestamp(ev.StartMS), FormatTimestamp(ev.EndMS), t.Style.Name, ev.MarginV, ev.Text)
	}

	n, err := io.WriteString(w, b.String())
	if err != nil {
		return int64(n), fmt.Errorf("write ass track: %w", err)
	}
	return int64(n), nil
}
