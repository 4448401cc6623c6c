// Package transcript loads word timings for karaoke synthesis.
//
// Three inputs are accepted: a JSON array of timed words in milliseconds,
// WhisperX JSON output with per-word timings in seconds, and segment-level
// entries whose text is split evenly into words across the segment span.
package transcript
