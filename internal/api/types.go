package api

import "karaoke/internal/workflow"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// OutputFile describes a rendered video.
type OutputFile struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// FileResult is the state of one file of a batch.
type FileResult struct {
	Index      int    `json:"index"`
	Source     string `json:"source"`
	Transcript string `json:"transcript,omitempty"`
	Status     string `json:"status"`
	Output     string `json:"output,omitempty"`
	ErrorKind  string `json:"error_kind,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Job describes a render batch in a transport-friendly format.
type Job struct {
	JobID          string           `json:"job_id"`
	Status         string           `json:"status"`
	Progress       int              `json:"progress"`
	CurrentFile    string           `json:"current_file"`
	TotalFiles     int              `json:"total_files"`
	ProcessedFiles int              `json:"processed_files"`
	FailedFiles    int              `json:"failed_files"`
	OutputFiles    []OutputFile     `json:"output_files"`
	Error          string           `json:"error,omitempty"`
	CreatedAt      string           `json:"created_at,omitempty"`
	UpdatedAt      string           `json:"updated_at,omitempty"`
	StartedAt      string           `json:"started_at,omitempty"`
	FinishedAt     string           `json:"finished_at,omitempty"`
	OutputDir      string           `json:"output_dir,omitempty"`
	Options        workflow.Options `json:"options"`
	Files          []FileResult     `json:"files,omitempty"`
}

// SubmitRequest is the body of POST /api/jobs.
type SubmitRequest struct {
	Files   []workflow.FileInput `json:"files"`
	Options workflow.Options     `json:"options"`
}

// JobResponse wraps a single job.
type JobResponse struct {
	Job Job `json:"job"`
}

// JobListResponse wraps a collection of jobs.
type JobListResponse struct {
	Jobs []Job `json:"jobs"`
}

// OutputsResponse lists a job's rendered files.
type OutputsResponse struct {
	JobID   string       `json:"job_id"`
	Outputs []OutputFile `json:"outputs"`
}

// Event is a job transition.
type Event struct {
	Sequence uint64  `json:"seq"`
	Type     string  `json:"type"`
	JobID    string  `json:"job_id"`
	Time     string  `json:"time"`
	File     string  `json:"file,omitempty"`
	Percent  float64 `json:"percent,omitempty"`
	Job      *Job    `json:"job,omitempty"`
}

// EventsResponse is a page of events; Next is the cursor for the next call.
type EventsResponse struct {
	Events []Event `json:"events"`
	Next   uint64  `json:"next"`
}

// WorkflowStatus summarizes the worker pool.
type WorkflowStatus struct {
	Running   bool           `json:"running"`
	Workers   int            `json:"workers"`
	Active    []string       `json:"active"`
	Queued    int            `json:"queued"`
	JobCounts map[string]int `json:"job_counts"`
	LastError string         `json:"last_error,omitempty"`
	StartedAt string         `json:"started_at,omitempty"`
	LastSeq   uint64         `json:"last_seq"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// CheckResult is the outcome of a health check against a notification sink.
type CheckResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	QueueDBPath  string             `json:"queue_db_path"`
	LockFilePath string             `json:"lock_file_path"`
	LogPath      string             `json:"log_path"`
	OutputDir    string             `json:"output_dir"`
	Workflow     WorkflowStatus     `json:"workflow"`
	StoredJobs   map[string]int     `json:"stored_jobs,omitempty"`
	Dependencies []DependencyStatus `json:"dependencies"`
	Sinks        []CheckResult      `json:"sinks,omitempty"`
}

// HealthResponse is returned by GET /api/health.
type HealthResponse struct {
	Status string `json:"status"`
}

// Style describes a subtitle template.
type Style struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Recommended bool   `json:"recommended"`
}

// StylesResponse lists subtitle templates.
type StylesResponse struct {
	Styles []Style `json:"styles"`
}

// Ratio describes a preset output aspect ratio.
type Ratio struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Resolution  string `json:"resolution"`
	Description string `json:"description"`
}

// RatiosResponse lists aspect ratio presets.
type RatiosResponse struct {
	Ratios []Ratio `json:"ratios"`
}

// LogEvent is a structured log line.
type LogEvent struct {
	Sequence      uint64            `json:"seq"`
	Timestamp     string            `json:"ts"`
	Level         string            `json:"level"`
	Message       string            `json:"msg"`
	Component     string            `json:"component,omitempty"`
	JobID         string            `json:"job_id,omitempty"`
	File          string            `json:"file,omitempty"`
	Stage         string            `json:"stage,omitempty"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	Fields        map[string]string `json:"fields,omitempty"`
}

// LogStreamResponse is a page of log events.
type LogStreamResponse struct {
	Events []LogEvent `json:"events"`
	Next   uint64     `json:"next"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}
