package runs

import "time"

// Status represents the lifecycle of a pipeline run.
type Status string

const (
	StatusTranscribing Status = "transcribing"
	StatusFiltering    Status = "filtering"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
)

// Run captures one pipeline invocation.
type Run struct {
	ID               string
	Model            string
	Manifest         string
	FilteredManifest string
	AudioDir         string
	Status           Status
	ErrorMessage     string
	ExitCode         int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// SetFailed marks the run failed with the given message and exit code.
func (r *Run) SetFailed(message string, exitCode int) {
	r.Status = StatusFailed
	r.ErrorMessage = message
	r.ExitCode = exitCode
}
