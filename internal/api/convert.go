package api

import (
	"slices"
	"time"

	"karaoke/internal/deps"
	"karaoke/internal/logging"
	"karaoke/internal/preflight"
	"karaoke/internal/render"
	"karaoke/internal/subtitles"
	"karaoke/internal/workflow"
)

// FromJob converts a workflow job to its API representation.
func FromJob(job workflow.Job) Job {
	dto := Job{
		JobID:          job.ID,
		Status:         string(job.Status),
		Progress:       job.Progress,
		CurrentFile:    job.CurrentFile,
		TotalFiles:     job.TotalFiles,
		ProcessedFiles: job.ProcessedFiles,
		FailedFiles:    job.FailedFiles,
		OutputFiles:    FromOutputFiles(job.OutputFiles),
		Error:          job.Error,
		CreatedAt:      formatTime(job.CreatedAt),
		UpdatedAt:      formatTime(job.UpdatedAt),
		OutputDir:      job.OutputDir,
		Options:        job.Options,
	}
	if job.StartedAt != nil {
		dto.StartedAt = formatTime(*job.StartedAt)
	}
	if job.FinishedAt != nil {
		dto.FinishedAt = formatTime(*job.FinishedAt)
	}
	if len(job.Files) > 0 {
		dto.Files = make([]FileResult, 0, len(job.Files))
		for _, f := range job.Files {
			dto.Files = append(dto.Files, FileResult{
				Index:      f.Index,
				Source:     f.Source,
				Transcript: f.Transcript,
				Status:     string(f.Status),
				Output:     f.Output,
				ErrorKind:  f.ErrorKind,
				Error:      f.Error,
			})
		}
	}
	return dto
}

// FromJobs converts a slice of jobs, preserving order.
func FromJobs(jobs []workflow.Job) []Job {
	out := make([]Job, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, FromJob(job))
	}
	return out
}

// FromOutputFiles never returns nil so output_files encodes as [].
func FromOutputFiles(files []workflow.OutputFile) []OutputFile {
	out := make([]OutputFile, 0, len(files))
	for _, f := range files {
		out = append(out, OutputFile{Name: f.Name, Path: f.Path, Size: f.Size})
	}
	return out
}

// FromEvent converts a workflow event. The job snapshot is included when
// the event carries one.
func FromEvent(evt workflow.Event) Event {
	dto := Event{
		Sequence: evt.Sequence,
		Type:     string(evt.Type),
		JobID:    evt.JobID,
		Time:     formatTime(evt.Time),
		File:     evt.File,
		Percent:  evt.Percent,
	}
	if evt.Job != nil {
		job := FromJob(*evt.Job)
		dto.Job = &job
	}
	return dto
}

// FromEvents converts a page of events.
func FromEvents(events []workflow.Event) []Event {
	out := make([]Event, 0, len(events))
	for _, evt := range events {
		out = append(out, FromEvent(evt))
	}
	return out
}

// FromStatusSummary converts workflow diagnostics.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	counts := make(map[string]int, len(summary.JobCounts))
	for status, n := range summary.JobCounts {
		counts[string(status)] = n
	}
	active := slices.Clone(summary.Active)
	slices.Sort(active)
	if active == nil {
		active = []string{}
	}
	return WorkflowStatus{
		Running:   summary.Running,
		Workers:   summary.Workers,
		Active:    active,
		Queued:    summary.Queued,
		JobCounts: counts,
		LastError: summary.LastError,
		StartedAt: formatTime(summary.StartedAt),
		LastSeq:   summary.LastSeqNum,
	}
}

// FromDependencies converts dependency checks.
func FromDependencies(statuses []deps.Status) []DependencyStatus {
	out := make([]DependencyStatus, 0, len(statuses))
	for _, dep := range statuses {
		out = append(out, DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		})
	}
	return out
}

// FromCheckResults converts preflight results.
func FromCheckResults(results []preflight.Result) []CheckResult {
	out := make([]CheckResult, 0, len(results))
	for _, r := range results {
		out = append(out, CheckResult{Name: r.Name, Passed: r.Passed, Detail: r.Detail})
	}
	return out
}

// Styles lists the subtitle templates.
func Styles() []Style {
	templates := subtitles.Templates()
	out := make([]Style, 0, len(templates))
	for _, t := range templates {
		out = append(out, Style{ID: t.ID, Name: t.Title, Description: t.Description, Recommended: t.Recommended})
	}
	return out
}

// Ratios lists the aspect ratio presets.
func Ratios() []Ratio {
	presets := render.Ratios()
	out := make([]Ratio, 0, len(presets))
	for _, r := range presets {
		out = append(out, Ratio{ID: r.ID, Name: r.Name, Resolution: r.Resolution, Description: r.Description})
	}
	return out
}

// FromLogEvents converts log stream events.
func FromLogEvents(events []logging.LogEvent) []LogEvent {
	out := make([]LogEvent, 0, len(events))
	for _, evt := range events {
		out = append(out, LogEvent{
			Sequence:      evt.Sequence,
			Timestamp:     formatTime(evt.Timestamp),
			Level:         evt.Level,
			Message:       evt.Message,
			Component:     evt.Component,
			JobID:         evt.JobID,
			File:          evt.File,
			Stage:         evt.Stage,
			CorrelationID: evt.CorrelationID,
			Fields:        evt.Fields,
		})
	}
	return out
}

// ParseTime parses an API timestamp. Empty or malformed values yield the
// zero time.
func ParseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(dateTimeFormat, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
