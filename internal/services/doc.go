// Package services defines shared utilities consumed by the render pipeline,
// the job orchestrator, and external tool integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, file names, stage names, and
//     correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper so failures can be
//     classified (validation, encode, timeout, cancelled) without string
//     matching.
//   - EncodeError, which carries the encoder's exit status and stderr.
//
// Use these helpers when wiring new pipeline logic so operational behaviour
// stays uniform across the service.
package services
