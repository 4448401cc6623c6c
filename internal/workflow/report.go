package workflow

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"karaoke/internal/fileutil"
)

// BatchReport summarizes a finished job. It is written next to the job's
// outputs.
type BatchReport struct {
	JobID           string         `json:"job_id"`
	Timestamp       time.Time      `json:"timestamp"`
	Status          Status         `json:"status"`
	TotalVideos     int            `json:"total_videos"`
	SuccessCount    int            `json:"success_count"`
	FailCount       int            `json:"fail_count"`
	StyleName       string         `json:"style_name"`
	DurationSeconds float64        `json:"duration_seconds"`
	Error           string         `json:"error,omitempty"`
	Results         []ReportResult `json:"results"`
}

// ReportResult is one file's outcome.
type ReportResult struct {
	Success    bool   `json:"success"`
	VideoFile  string `json:"video_file"`
	OutputFile string `json:"output_file,omitempty"`
	Status     string `json:"status"`
	ErrorKind  string `json:"error_kind,omitempty"`
	Error      string `json:"error,omitempty"`
}

// NewBatchReport builds the report for a terminal job.
func NewBatchReport(job Job) BatchReport {
	report := BatchReport{
		JobID:        job.ID,
		Timestamp:    job.UpdatedAt,
		Status:       job.Status,
		TotalVideos:  job.TotalFiles,
		SuccessCount: job.ProcessedFiles,
		FailCount:    job.FailedFiles,
		StyleName:    job.Options.Style,
		Error:        job.Error,
		Results:      make([]ReportResult, 0, len(job.Files)),
	}
	if job.FinishedAt != nil {
		report.Timestamp = *job.FinishedAt
		if job.StartedAt != nil {
			report.DurationSeconds = job.FinishedAt.Sub(*job.StartedAt).Seconds()
		}
	}
	for _, f := range job.Files {
		report.Results = append(report.Results, ReportResult{
			Success:    f.Status == FileSucceeded,
			VideoFile:  f.Source,
			OutputFile: f.Output,
			Status:     string(f.Status),
			ErrorKind:  f.ErrorKind,
			Error:      f.Error,
		})
	}
	return report
}

// WriteReport writes the job's batch report into its output directory and
// returns the path.
func WriteReport(job Job, name string) (string, error) {
	if name == "" {
		name = "karaoke_batch_report.json"
	}
	data, err := json.MarshalIndent(NewBatchReport(job), "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}
	path := filepath.Join(job.OutputDir, name)
	if err := fileutil.WriteFileAtomic(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}
