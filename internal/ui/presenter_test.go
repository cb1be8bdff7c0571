package ui

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"zipatch/internal/zp"
)

func TestTerminalPresenter_Output(t *testing.T) {
	var out bytes.Buffer
	p := NewTerminalPresenter(&out, false, false)

	p.SetTitle(zp.DefaultTitle) // unchanged title prints nothing
	p.SetSelectedFile("Selected archive: mod.zip")
	p.SetStatus("")
	p.SetStatus("Extracting, please wait...")
	p.SetSummary("📁 Structure:\n📄 a.txt")
	p.SetTitle("Confirm")
	p.ShowWarning("Password-protected archive, skipped")
	p.ShowError("Extraction failed")

	want := strings.Join([]string{
		"Selected archive: mod.zip",
		"Extracting, please wait...",
		"📁 Structure:\n📄 a.txt",
		"== Confirm ==",
		"Warning: Password-protected archive, skipped",
		"Error: Extraction failed",
	}, "\n") + "\n"
	if got := out.String(); got != want {
		t.Errorf("output =\n%q\nwant:\n%q", got, want)
	}
}

func TestTerminalPresenter_Verbose(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		want    string
	}{
		{name: "quiet", verbose: false, want: ""},
		{name: "verbose", verbose: true, want: "[Idle -> Cleaning]\n  root/file.txt\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			p := NewTerminalPresenter(&out, false, tt.verbose)

			p.StateChanged(zp.StateChange{From: zp.Idle, To: zp.Cleaning})
			p.ExtractionStarted("mod.zip")
			p.EntryExtracted("root/file.txt")
			p.ExtractionFinished()

			if got := out.String(); got != tt.want {
				t.Errorf("output = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTerminalPresenter_Spinner(t *testing.T) {
	var out bytes.Buffer
	p := NewTerminalPresenter(&out, true, false)

	p.ExtractionStarted("mod.zip")
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.EntryExtracted("x")
		}()
	}
	wg.Wait()
	p.ExtractionFinished()

	if p.bar != nil {
		t.Error("spinner not released after ExtractionFinished")
	}
	// A second finish is a no-op.
	p.ExtractionFinished()
}
