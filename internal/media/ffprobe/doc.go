// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Stream: individual stream properties including rotation tags and side data
//   - Format: container-level metadata (duration, size)
//
// Inspect runs the ffprobe binary; Decode parses captured output so callers
// and tests can work from fixtures.
package ffprobe
