// Package daemon coordinates the long-running karaoke process.
//
// It wires configuration, the job store, the workflow manager and the HTTP
// API into a single lifecycle, with flock-based locking to prevent two
// daemons from sharing one queue database. The daemon reports dependency and
// notification sink health and serves the recent log stream.
//
// Keep orchestration logic here: rendering lives in the workflow, render and
// subtitles packages while the daemon focuses on startup, shutdown and the
// transport surface.
package daemon
