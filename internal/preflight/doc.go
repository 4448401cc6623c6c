// Package preflight provides readiness checks for the filesystem paths,
// external binaries and notification sinks that karaoke depends on.
//
// These checks run in two contexts:
//   - The workflow manager calls RunAll before starting each job. If a
//     directory check fails the job fails fast instead of encoding into a
//     location it cannot write.
//   - The CLI "karaoke status" command and the daemon status endpoint use
//     CheckSystemDeps and the *FromConfig helpers to display service health.
//
// Each sink check is gated by its config value; unconfigured sinks are skipped.
package preflight
