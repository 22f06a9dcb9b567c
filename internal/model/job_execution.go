package model

import "time"

// JobExecution statuses. A run moves linearly through the stage statuses and
// terminates in COMPLETED or FAILED; any stage may transition directly to
// FAILED.
const (
	ExecutionPending      = "PENDING"
	ExecutionStarted      = "STARTED"
	ExecutionExtracting   = "EXTRACTING"
	ExecutionValidating   = "VALIDATING"
	ExecutionTransforming = "TRANSFORMING"
	ExecutionFormatting   = "FORMATTING"
	ExecutionUploading    = "UPLOADING"
	ExecutionCompleted    = "COMPLETED"
	ExecutionFailed       = "FAILED"
)

// JobExecution records one run attempt of a Schedule. It is created at run
// start, mutated only by the owning run, and immutable once terminal.
type JobExecution struct {
	ID          string     `json:"id"`
	ScheduleID  string     `json:"schedule_id"`
	Status      string     `json:"status"`
	Message     *string    `json:"message,omitempty"`
	ErrorDetail *string    `json:"error_detail,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Terminal reports whether the execution has reached a final state.
func (e *JobExecution) Terminal() bool {
	return e.Status == ExecutionCompleted || e.Status == ExecutionFailed
}
