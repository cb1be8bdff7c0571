package ui

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"zipatch/internal/zp"
)

// TerminalPresenter prints workflow output to a terminal. While an archive
// is extracting, an interactive terminal shows a spinner with the number of
// entries written. Safe for concurrent use.
type TerminalPresenter struct {
	mu          sync.Mutex
	out         io.Writer
	verbose     bool
	interactive bool
	title       string
	bar         *progressbar.ProgressBar

	bold   func(a ...interface{}) string
	red    func(a ...interface{}) string
	yellow func(a ...interface{}) string
	green  func(a ...interface{}) string
	cyan   func(a ...interface{}) string
}

var _ zp.Presenter = (*TerminalPresenter)(nil)

// NewTerminalPresenter creates a presenter writing to out. interactive
// enables colors and the extraction spinner; verbose prints every state
// change and, without a spinner, every extracted entry.
func NewTerminalPresenter(out io.Writer, interactive, verbose bool) *TerminalPresenter {
	colorize := func(attrs ...color.Attribute) func(a ...interface{}) string {
		c := color.New(attrs...)
		if interactive {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c.SprintFunc()
	}
	return &TerminalPresenter{
		out:         out,
		verbose:     verbose,
		interactive: interactive,
		title:       zp.DefaultTitle,
		bold:        colorize(color.Bold),
		red:         colorize(color.FgRed),
		yellow:      colorize(color.FgYellow),
		green:       colorize(color.FgGreen),
		cyan:        colorize(color.FgCyan),
	}
}

func (p *TerminalPresenter) SetTitle(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if text == p.title {
		return
	}
	p.title = text
	fmt.Fprintf(p.out, "== %s ==\n", p.bold(text))
}

func (p *TerminalPresenter) SetSelectedFile(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, p.cyan(text))
}

func (p *TerminalPresenter) SetStatus(text string) {
	if text == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, p.green(text))
}

func (p *TerminalPresenter) SetSummary(text string) {
	if text == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, text)
}

func (p *TerminalPresenter) ShowWarning(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, p.yellow("Warning: ")+text)
}

func (p *TerminalPresenter) ShowError(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, p.red("Error: ")+text)
}

func (p *TerminalPresenter) StateChanged(ev zp.StateChange) {
	if !p.verbose {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "[%s -> %s]\n", ev.From, ev.To)
}

func (p *TerminalPresenter) ExtractionStarted(archiveName string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.interactive {
		return
	}
	p.bar = progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(p.out),
		progressbar.OptionSetDescription("Extracting "+archiveName),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

func (p *TerminalPresenter) EntryExtracted(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil {
		_ = p.bar.Add(1)
		return
	}
	if p.verbose {
		fmt.Fprintln(p.out, "  "+name)
	}
}

func (p *TerminalPresenter) ExtractionFinished() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar == nil {
		return
	}
	_ = p.bar.Finish()
	p.bar = nil
}
