// Package whisperx wraps the external WhisperX transcriber for files that
// arrive without word timings.
//
// This package handles:
//   - Audio extraction to mono 16kHz WAV via ffmpeg
//   - WhisperX invocation through uvx with JSON output
//   - Decoding of the segments/words transcript structure
//
// The transcription model itself is a black box; only its command line and
// JSON output shape are relied upon.
package whisperx
