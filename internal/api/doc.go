// Package api defines the wire-format types exchanged between the karaoke
// daemon and its clients, plus the HTTP client used by the CLI.
//
// # Key Types
//
// Job: transport representation of a render batch with progress counters,
// per-file results and rendered outputs.
//
// Event/EventsResponse: sequence-numbered job transitions for long-polling
// clients that missed live delivery.
//
// DaemonStatus: worker pool state, dependency availability and sink health.
//
// LogEvent/LogStreamResponse: structured log payloads for live tailing.
//
// # Converters
//
// FromJob: workflow.Job -> Job. FromEvent: workflow.Event -> Event.
// FromStatusSummary: workflow.StatusSummary -> WorkflowStatus.
//
// # Design Notes
//
// Job fields use snake_case JSON keys (job_id, current_file, output_files)
// so existing dashboards keep working. Timestamps use RFC3339 with
// milliseconds. Error responses are {"error": "..."} with an HTTP status that
// Client maps back onto the services error markers.
package api
