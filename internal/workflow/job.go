package workflow

import (
	"slices"
	"time"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusFailed, StatusCancelled},
	StatusProcessing: {StatusCompleted, StatusFailed, StatusCancelled},
}

// CanTransition reports whether moving from s to next is a legal transition.
func (s Status) CanTransition(next Status) bool {
	return slices.Contains(transitions[s], next)
}

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// ParseStatus normalizes a status string.
func ParseStatus(value string) (Status, bool) {
	switch s := Status(value); s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed, StatusCancelled:
		return s, true
	}
	return "", false
}

// FileStatus is the state of one file within a job.
type FileStatus string

const (
	FilePending    FileStatus = "pending"
	FileProcessing FileStatus = "processing"
	FileSucceeded  FileStatus = "succeeded"
	FileFailed     FileStatus = "failed"
	FileCancelled  FileStatus = "cancelled"
)

// FileInput names one source video and, optionally, its word-timing file.
type FileInput struct {
	Source     string `json:"source"`
	Transcript string `json:"transcript,omitempty"`
}

// FileRecord tracks one file of a batch.
type FileRecord struct {
	Index      int        `json:"index"`
	Source     string     `json:"source"`
	Transcript string     `json:"transcript,omitempty"`
	Status     FileStatus `json:"status"`
	Output     string     `json:"output,omitempty"`
	ErrorKind  string     `json:"error_kind,omitempty"`
	Error      string     `json:"error,omitempty"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// OutputFile describes a rendered video.
type OutputFile struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// Job is a snapshot of one batch. Values returned by the Manager are copies.
type Job struct {
	ID          string
	Status      Status
	Progress    int
	CurrentFile string
	TotalFiles  int
	// ProcessedFiles counts files rendered successfully.
	ProcessedFiles int
	FailedFiles    int
	Files          []FileRecord
	OutputFiles    []OutputFile
	Error          string
	Options        Options
	OutputDir      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	StartedAt      *time.Time
	FinishedAt     *time.Time
}

// Done returns the number of files that reached a final per-file state.
func (j Job) Done() int {
	return j.ProcessedFiles + j.FailedFiles
}

func (j Job) clone() Job {
	out := j
	out.Files = slices.Clone(j.Files)
	out.OutputFiles = slices.Clone(j.OutputFiles)
	out.Options = j.Options.clone()
	if j.StartedAt != nil {
		t := *j.StartedAt
		out.StartedAt = &t
	}
	if j.FinishedAt != nil {
		t := *j.FinishedAt
		out.FinishedAt = &t
	}
	return out
}

// progressPercent returns done/total as a whole percentage.
func progressPercent(done, total int) int {
	if total <= 0 {
		return 0
	}
	return min(done*100/total, 100)
}

// Submission is a request to render a batch.
type Submission struct {
	Files   []FileInput `json:"files"`
	Options Options     `json:"options"`
}
