package queue

import "time"

// Record is one persisted job row. List fields are stored as JSON documents
// owned by the workflow package.
type Record struct {
	ID             string
	Status         string
	Progress       int
	CurrentFile    string
	TotalFiles     int
	ProcessedFiles int
	FailedFiles    int
	ErrorMessage   string
	OptionsJSON    string
	FilesJSON      string
	OutputsJSON    string
	OutputDir      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	StartedAt      *time.Time
	FinishedAt     *time.Time
}
