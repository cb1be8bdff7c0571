package app

import (
	"errors"
	"testing"
	"time"

	"zipatch/internal/testutil"
	"zipatch/internal/zp"
)

func TestNewRunRecord(t *testing.T) {
	at := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	run := newRunRecord(zp.StateChange{From: zp.AwaitingArchiveChoice, To: zp.Extracting, RunID: "id-1", Archive: "/dl/mod.zip", At: at})

	if run.ID != "id-1" {
		t.Errorf("ID = %q, want %q", run.ID, "id-1")
	}
	if run.ArchivePath != "/dl/mod.zip" {
		t.Errorf("ArchivePath = %q, want %q", run.ArchivePath, "/dl/mod.zip")
	}
	if run.Status != "running" {
		t.Errorf("Status = %q, want %q", run.Status, "running")
	}
	if !run.StartedAt.Equal(at) {
		t.Errorf("StartedAt = %v, want %v", run.StartedAt, at)
	}
	if run.FinishedAt.Valid {
		t.Error("FinishedAt should not be set")
	}
}

func TestApplyReport(t *testing.T) {
	finished := time.Date(2024, 1, 15, 10, 31, 0, 0, time.UTC)

	tests := []struct {
		name      string
		report    *zp.RunReport
		wantState string
		wantErr   string
		wantEnd   bool
	}{
		{
			name:      "success",
			report:    &zp.RunReport{Destination: "/games", Collapsed: true, Placed: 3, Status: zp.RunSuccess, FinishedAt: finished},
			wantState: "success",
			wantEnd:   true,
		},
		{
			name:      "failure keeps error text",
			report:    &zp.RunReport{Status: zp.RunFailed, Err: errors.New("boom"), FinishedAt: finished},
			wantState: "error",
			wantErr:   "boom",
			wantEnd:   true,
		},
		{
			name:      "success keeps warnings",
			report:    &zp.RunReport{Status: zp.RunSuccess, Warnings: []string{"left a.txt", "left b.txt"}, FinishedAt: finished},
			wantState: "success",
			wantErr:   "left a.txt; left b.txt",
			wantEnd:   true,
		},
		{
			name:      "nil report leaves record untouched",
			report:    nil,
			wantState: "running",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run := newRunRecord(zp.StateChange{RunID: "id-1"})
			applyReport(run, tt.report)

			if run.Status != tt.wantState {
				t.Errorf("Status = %q, want %q", run.Status, tt.wantState)
			}
			if run.Error != tt.wantErr {
				t.Errorf("Error = %q, want %q", run.Error, tt.wantErr)
			}
			if run.FinishedAt.Valid != tt.wantEnd {
				t.Errorf("FinishedAt.Valid = %v, want %v", run.FinishedAt.Valid, tt.wantEnd)
			}
			if tt.report != nil && run.PlacedEntries != int64(tt.report.Placed) {
				t.Errorf("PlacedEntries = %d, want %d", run.PlacedEntries, tt.report.Placed)
			}
		})
	}
}

func TestRunRecorder_StateChanged(t *testing.T) {
	store := testutil.NewTestDatabase(t)
	report := &zp.RunReport{ID: "id-1", Status: zp.RunCancelled}
	rec := newRunRecorder(store, func() *zp.RunReport { return report }, zp.NewNopLogger())

	countRuns := func() int {
		t.Helper()
		runs, err := store.ListRuns(10)
		if err != nil {
			t.Fatalf("ListRuns() error = %v", err)
		}
		return len(runs)
	}

	rec.StateChanged(zp.StateChange{From: zp.Idle, To: zp.Cleaning, RunID: "id-1"})
	rec.StateChanged(zp.StateChange{From: zp.Cleaning, To: zp.AwaitingArchiveChoice, RunID: "id-1"})
	if n := countRuns(); n != 0 {
		t.Fatalf("%d runs stored before extraction, want 0", n)
	}

	rec.StateChanged(zp.StateChange{From: zp.AwaitingArchiveChoice, To: zp.Extracting, RunID: "id-1", Archive: "/dl/a.zip", At: testutil.FixedClock().Now()})
	if n := countRuns(); n != 1 {
		t.Fatalf("%d runs stored after extraction started, want 1", n)
	}

	report.Status = zp.RunSuccess
	report.FinishedAt = testutil.FixedClock().Now()
	rec.StateChanged(zp.StateChange{From: zp.Moving, To: zp.Done, RunID: "id-1"})

	// The Done -> Idle transition must not write the run twice.
	report.Status = zp.RunFailed
	rec.StateChanged(zp.StateChange{From: zp.Done, To: zp.Idle, RunID: "id-1"})

	runs, err := store.ListRuns(10)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("ListRuns() returned %d runs, want 1", len(runs))
	}
	if runs[0].Status != "success" {
		t.Errorf("Status = %q, want %q", runs[0].Status, "success")
	}
	if runs[0].ArchivePath != "/dl/a.zip" {
		t.Errorf("ArchivePath = %q, want %q", runs[0].ArchivePath, "/dl/a.zip")
	}
}
