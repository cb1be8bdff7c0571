package app

import (
	"database/sql"
	"strings"
	"sync"

	"zipatch/internal/model"
	"zipatch/internal/zp"
)

// runRecorder writes each run to the history store as the workflow moves
// through its states. A run is persisted when it starts extracting, so runs
// cancelled at the archive prompt never reach the store.
type runRecorder struct {
	store  zp.RunStore
	report func() *zp.RunReport
	logger zp.Logger

	mu      sync.Mutex
	current *model.Run
}

func newRunRecorder(store zp.RunStore, report func() *zp.RunReport, logger zp.Logger) *runRecorder {
	return &runRecorder{store: store, report: report, logger: logger}
}

// StateChanged is subscribed to the workflow.
func (r *runRecorder) StateChanged(ev zp.StateChange) {
	switch ev.To {
	case zp.Extracting:
		run := newRunRecord(ev)
		if err := r.store.CreateRun(run); err != nil {
			r.logger.Warn("recording run", "run", run.ID, "error", err)
			return
		}
		r.mu.Lock()
		r.current = run
		r.mu.Unlock()
	case zp.Done, zp.Idle:
		r.mu.Lock()
		run := r.current
		r.current = nil
		r.mu.Unlock()
		if run == nil {
			return
		}
		applyReport(run, r.report())
		if err := r.store.FinishRun(run); err != nil {
			r.logger.Warn("finishing run record", "run", run.ID, "error", err)
		}
	}
}

// newRunRecord creates the record of a run that has just started extracting.
func newRunRecord(ev zp.StateChange) *model.Run {
	return &model.Run{
		ID:          ev.RunID,
		ArchivePath: ev.Archive,
		Status:      string(zp.RunRunning),
		StartedAt:   ev.At,
	}
}

// applyReport copies the outcome of a run onto its record.
func applyReport(run *model.Run, rep *zp.RunReport) {
	if rep == nil {
		return
	}
	run.Destination = rep.Destination
	run.Collapsed = rep.Collapsed
	run.PlacedEntries = int64(rep.Placed)
	run.Status = string(rep.Status)
	switch {
	case rep.Err != nil:
		run.Error = rep.Err.Error()
	case len(rep.Warnings) > 0:
		run.Error = strings.Join(rep.Warnings, "; ")
	default:
		run.Error = ""
	}
	if !rep.FinishedAt.IsZero() {
		run.FinishedAt = sql.NullTime{Time: rep.FinishedAt, Valid: true}
	}
}
