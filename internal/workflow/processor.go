package workflow

import (
	"context"
	"time"
)

// FileTask is one unit of work handed to a FileProcessor.
type FileTask struct {
	JobID     string
	Index     int
	Total     int
	Input     FileInput
	Options   Options
	OutputDir string
	// Reference anchors derived timestamps, normally the job creation time.
	Reference time.Time
	// Progress receives encoder progress in percent. May be nil.
	Progress func(percent float64)
}

// FileProcessor renders one file. Implementations must honour ctx
// cancellation by stopping the in-flight encoder.
type FileProcessor interface {
	Process(ctx context.Context, task FileTask) (OutputFile, error)
}

// FileProcessorFunc adapts a function to FileProcessor.
type FileProcessorFunc func(ctx context.Context, task FileTask) (OutputFile, error)

// Process calls f.
func (f FileProcessorFunc) Process(ctx context.Context, task FileTask) (OutputFile, error) {
	return f(ctx, task)
}
