// Package logging assembles structured slog loggers and formatting helpers used
// across the karaoke services.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so pipeline code can tag log
// lines with job IDs, file names, stages, and correlation IDs. A StreamHub
// keeps recent events in memory so the daemon can serve them to clients.
//
// Prefer these constructors over hand-rolled slog setup so new components emit
// data with the same shape as the rest of the system.
package logging
