package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"zipatch/internal/config"
	"zipatch/internal/testutil"
	"zipatch/internal/zp"
)

// newTestConfig returns a config rooted in a temp dir with an in-memory
// history store and no delays.
func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	downloads := filepath.Join(root, "Downloads")
	dest := filepath.Join(root, "games")
	for _, dir := range []string{downloads, dest} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatal(err)
		}
	}
	cfg := config.NewConfig(filepath.Join(root, "zipatch"), downloads, dest)
	cfg.Database.Type = "memory"
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config, prompter zp.Prompter, opts ...func(*Options)) (*ZPApp, *testutil.RecordingPresenter) {
	t.Helper()
	presenter := testutil.NewRecordingPresenter()
	o := Options{
		Prompter:  prompter,
		Presenter: presenter,
		Clock:     testutil.FixedClock(),
		IDs:       testutil.NewStubIDGenerator(),
	}
	for _, fn := range opts {
		fn(&o)
	}
	a, err := NewZPApp(cfg, o)
	if err != nil {
		t.Fatalf("NewZPApp() error = %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a, presenter
}

func TestZPApp_Run_RecordsSuccessfulRun(t *testing.T) {
	cfg := newTestConfig(t)
	archive := filepath.Join(cfg.DownloadsDir, "mod.zip")
	testutil.WriteZip(t, archive, map[string]string{
		"mod/a.txt":     "a",
		"mod/sub/b.txt": "b",
	})

	prompter := testutil.NewScriptedPrompter().
		Archives(testutil.Pick(archive)).
		Directories(testutil.Pick(cfg.DestinationDir)).
		Answers(true, true)
	a, _ := newTestApp(t, cfg, prompter)

	rep, err := a.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if rep.Status != zp.RunSuccess {
		t.Fatalf("Status = %q, want %q", rep.Status, zp.RunSuccess)
	}
	if !rep.Quit {
		t.Error("Quit = false, want true")
	}

	testutil.AssertTree(t, cfg.DestinationDir, map[string]string{
		"a.txt":     "a",
		"sub/":      "",
		"sub/b.txt": "b",
	})

	runs, err := a.History(10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("History() returned %d runs, want 1", len(runs))
	}
	run := runs[0]
	if run.ID != "id-1" {
		t.Errorf("ID = %q, want %q", run.ID, "id-1")
	}
	if run.Status != "success" {
		t.Errorf("Status = %q, want %q", run.Status, "success")
	}
	if !run.Collapsed {
		t.Error("Collapsed = false, want true")
	}
	if run.PlacedEntries != 2 {
		t.Errorf("PlacedEntries = %d, want 2", run.PlacedEntries)
	}
	if run.Destination != cfg.DestinationDir {
		t.Errorf("Destination = %q, want %q", run.Destination, cfg.DestinationDir)
	}
	if !run.FinishedAt.Valid {
		t.Error("FinishedAt not set")
	}
}

func TestZPApp_Run_CollapseOverride(t *testing.T) {
	cfg := newTestConfig(t)
	archive := filepath.Join(cfg.DownloadsDir, "mod.zip")
	testutil.WriteZip(t, archive, map[string]string{"mod/a.txt": "a"})

	prompter := testutil.NewScriptedPrompter().
		Archives(testutil.Pick(archive)).
		Directories(testutil.Pick(cfg.DestinationDir)).
		Answers(true)
	a, _ := newTestApp(t, cfg, prompter, func(o *Options) { o.Collapse = zp.CollapseNever })

	if _, err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// Only the close question is asked; the collapse question is answered by policy.
	if got := prompter.Questions(); len(got) != 1 {
		t.Errorf("Questions() = %q, want only the close question", got)
	}
	testutil.AssertTree(t, cfg.DestinationDir, map[string]string{
		"mod/":      "",
		"mod/a.txt": "a",
	})
}

func TestZPApp_Loop(t *testing.T) {
	t.Run("failed run asks to continue", func(t *testing.T) {
		cfg := newTestConfig(t)
		exe := filepath.Join(cfg.DownloadsDir, "setup.exe")
		if err := os.WriteFile(exe, []byte("MZ"), 0644); err != nil {
			t.Fatal(err)
		}

		// Second archive prompt is cancelled, then the user declines another run.
		prompter := testutil.NewScriptedPrompter().
			Archives(testutil.Pick(exe)).
			Answers(true)
		a, presenter := newTestApp(t, cfg, prompter)

		if err := a.Loop(context.Background()); err != nil {
			t.Fatalf("Loop() error = %v", err)
		}

		want := []string{anotherQuestion, anotherQuestion}
		if got := prompter.Questions(); len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
			t.Errorf("Questions() = %q, want %q", got, want)
		}
		if len(presenter.Errors()) == 0 {
			t.Error("expected the unsupported archive to be reported")
		}

		runs, err := a.History(10)
		if err != nil {
			t.Fatalf("History() error = %v", err)
		}
		if len(runs) != 1 {
			t.Fatalf("History() returned %d runs, want 1 (cancelled runs are not recorded)", len(runs))
		}
		if runs[0].Status != "error" {
			t.Errorf("Status = %q, want %q", runs[0].Status, "error")
		}
		if runs[0].Error == "" {
			t.Error("Error is empty, want the unsupported format message")
		}
	})

	t.Run("successful run stays open when user declines to close", func(t *testing.T) {
		cfg := newTestConfig(t)
		archive := filepath.Join(cfg.DownloadsDir, "mod.zip")
		testutil.WriteZip(t, archive, map[string]string{"a.txt": "a", "b.txt": "b"})

		prompter := testutil.NewScriptedPrompter().
			Archives(testutil.Pick(archive)).
			Directories(testutil.Pick(cfg.DestinationDir)).
			Answers(false)
		a, _ := newTestApp(t, cfg, prompter)

		if err := a.Loop(context.Background()); err != nil {
			t.Fatalf("Loop() error = %v", err)
		}

		got := prompter.Questions()
		if len(got) != 2 || got[1] != anotherQuestion {
			t.Errorf("Questions() = %q, want close question then %q", got, anotherQuestion)
		}
		if n := len(prompter.InitialDirs()); n != 3 {
			t.Errorf("prompts = %d, want 3 (archive, destination, archive)", n)
		}
	})

	t.Run("cancelled context stops before running", func(t *testing.T) {
		cfg := newTestConfig(t)
		prompter := testutil.NewScriptedPrompter()
		a, _ := newTestApp(t, cfg, prompter)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := a.Loop(ctx); err != context.Canceled {
			t.Errorf("Loop() error = %v, want %v", err, context.Canceled)
		}
		if n := len(prompter.InitialDirs()); n != 0 {
			t.Errorf("prompts = %d, want 0", n)
		}
	})
}

func TestNewZPApp(t *testing.T) {
	t.Run("requires surfaces", func(t *testing.T) {
		if _, err := NewZPApp(newTestConfig(t), Options{}); err == nil {
			t.Fatal("NewZPApp() expected error without prompter and presenter")
		}
	})

	t.Run("rejects unknown collapse policy", func(t *testing.T) {
		cfg := newTestConfig(t)
		cfg.Workflow.Collapse = "sometimes"
		_, err := NewZPApp(cfg, Options{
			Prompter:  testutil.NewScriptedPrompter(),
			Presenter: testutil.NewRecordingPresenter(),
		})
		if err == nil {
			t.Fatal("NewZPApp() expected error for unknown collapse policy")
		}
	})

	t.Run("writes the log file", func(t *testing.T) {
		cfg := newTestConfig(t)
		a, err := NewZPApp(cfg, Options{
			Prompter:  testutil.NewScriptedPrompter(),
			Presenter: testutil.NewRecordingPresenter(),
		})
		if err != nil {
			t.Fatalf("NewZPApp() error = %v", err)
		}
		if err := a.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
		if _, err := os.Stat(filepath.Join(cfg.LogDir, LogFile)); err != nil {
			t.Errorf("log file missing: %v", err)
		}
	})
}

func TestParseCollapsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    zp.CollapsePolicy
		wantErr bool
	}{
		{in: "", want: zp.CollapseAsk},
		{in: "ask", want: zp.CollapseAsk},
		{in: "always", want: zp.CollapseAlways},
		{in: "never", want: zp.CollapseNever},
		{in: "Always", wantErr: true},
		{in: "yes", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCollapsePolicy(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCollapsePolicy(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseCollapsePolicy(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
