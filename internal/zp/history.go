package zp

import "zipatch/internal/model"

// RunStore persists the history of runs.
type RunStore interface {
	// CreateRun records a run that has started extracting.
	CreateRun(run *model.Run) error

	// FinishRun stores the final status of a run.
	FinishRun(run *model.Run) error

	// ListRuns returns the most recent runs, newest first.
	ListRuns(limit int) ([]*model.Run, error)

	Close() error
}
