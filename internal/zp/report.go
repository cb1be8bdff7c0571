package zp

import "time"

// RunStatus is the outcome of a single run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSuccess   RunStatus = "success"
	RunSkipped   RunStatus = "skipped"
	RunFailed    RunStatus = "error"
	RunCancelled RunStatus = "cancelled"
	RunAbandoned RunStatus = "abandoned"
)

// RunReport summarizes one pass through the workflow.
type RunReport struct {
	ID          string
	Archive     string
	Destination string
	Collapsed   bool
	Placed      int
	Status      RunStatus
	Err         error
	StartedAt   time.Time
	FinishedAt  time.Time

	// Warnings holds problems that did not fail the run, such as entries
	// left behind in the staging directory after a successful move.
	Warnings []string

	// Quit is set when the user chose to close the tool after the run.
	Quit bool
}
