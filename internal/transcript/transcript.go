package transcript

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"

	"karaoke/internal/layout"
	"karaoke/internal/services"
	"karaoke/internal/services/whisperx"
)

// entry accepts both the text/start_ms/end_ms and word/start/end spellings.
type entry struct {
	Text    string   `json:"text"`
	Word    string   `json:"word"`
	StartMS *float64 `json:"start_ms"`
	EndMS   *float64 `json:"end_ms"`
	Start   *float64 `json:"start"`
	End     *float64 `json:"end"`
}

// Load reads a transcript file.
func Load(path string) ([]layout.Word, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "transcript", "read", path, err)
	}
	words, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return words, nil
}

// Decode parses either a word array or a WhisperX document.
func Decode(data []byte) ([]layout.Word, error) {
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0:
		return nil, services.Wrap(services.ErrValidation, "transcript", "decode", "empty transcript", nil)
	case trimmed[0] == '[':
		return decodeEntries(trimmed)
	case trimmed[0] == '{':
		segments, err := whisperx.DecodeSegments(trimmed)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "transcript", "decode", "", err)
		}
		return FromSegments(segments), nil
	default:
		return nil, services.Wrap(services.ErrValidation, "transcript", "decode", "expected a JSON array or WhisperX object", nil)
	}
}

func decodeEntries(data []byte) ([]layout.Word, error) {
	var entries []entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, services.Wrap(services.ErrValidation, "transcript", "decode", "", err)
	}
	words := make([]layout.Word, 0, len(entries))
	for i, e := range entries {
		text := strings.TrimSpace(e.Text)
		if text == "" {
			text = strings.TrimSpace(e.Word)
		}
		start, end := e.StartMS, e.EndMS
		if start == nil {
			start = e.Start
		}
		if end == nil {
			end = e.End
		}
		if start == nil || end == nil {
			return nil, services.Wrap(services.ErrValidation, "transcript", "decode", fmt.Sprintf("entry %d is missing start or end", i), nil)
		}
		if text == "" {
			continue
		}
		words = append(words, SplitSegment(text, int64(math.Round(*start)), int64(math.Round(*end)))...)
	}
	return words, nil
}

// FromSegments converts WhisperX segments into words. A segment whose words
// all carry timings keeps them; any other segment is split evenly.
func FromSegments(segments []whisperx.Segment) []layout.Word {
	var words []layout.Word
	for _, seg := range segments {
		if timed, ok := timedWords(seg); ok {
			words = append(words, timed...)
			continue
		}
		words = append(words, SplitSegment(seg.Text, secondsToMS(seg.Start), secondsToMS(seg.End))...)
	}
	return tidy(words)
}

func timedWords(seg whisperx.Segment) ([]layout.Word, bool) {
	if len(seg.Words) == 0 {
		return nil, false
	}
	out := make([]layout.Word, 0, len(seg.Words))
	for _, w := range seg.Words {
		text := strings.TrimSpace(w.Word)
		if text == "" {
			continue
		}
		if w.Start == nil || w.End == nil {
			return nil, false
		}
		out = append(out, layout.Word{Text: text, StartMS: secondsToMS(*w.Start), EndMS: secondsToMS(*w.End)})
	}
	return out, len(out) > 0
}

// SplitSegment splits text on whitespace and spreads the span evenly across
// the resulting words.
func SplitSegment(text string, startMS, endMS int64) []layout.Word {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil
	}
	if len(fields) == 1 {
		return []layout.Word{{Text: fields[0], StartMS: startMS, EndMS: endMS}}
	}
	step := float64(endMS-startMS) / float64(len(fields))
	words := make([]layout.Word, len(fields))
	for i, f := range fields {
		words[i] = layout.Word{
			Text:    f,
			StartMS: startMS + int64(float64(i)*step),
			EndMS:   startMS + int64(float64(i+1)*step),
		}
	}
	return words
}

// tidy removes the small overlaps and zero-length words that aligner output
// routinely contains.
func tidy(words []layout.Word) []layout.Word {
	for i := range words {
		if i > 0 && words[i].StartMS < words[i-1].EndMS {
			words[i].StartMS = words[i-1].EndMS
		}
		if words[i].EndMS <= words[i].StartMS {
			words[i].EndMS = words[i].StartMS + minWordMS
		}
	}
	return words
}

const minWordMS = 10

func secondsToMS(sec float64) int64 {
	return int64(math.Round(sec * 1000))
}

// Write stores words as a text/start_ms/end_ms JSON array.
func Write(path string, words []layout.Word) error {
	if words == nil {
		words = []layout.Word{}
	}
	data, err := json.MarshalIndent(words, "", "  ")
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
