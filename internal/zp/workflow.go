package zp

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// CollapsePolicy decides how the single-root-folder question is answered.
type CollapsePolicy string

const (
	CollapseAsk    CollapsePolicy = "ask"
	CollapseAlways CollapsePolicy = "always"
	CollapseNever  CollapsePolicy = "never"
)

const (
	DefaultTitle    = "zipatch"
	confirmTitle    = "Confirm"
	noArchiveText   = "No archive selected"
	closeQuestion   = "Close zipatch?"
	retryDestPrompt = "No destination chosen. Choose again?"
)

// WorkflowConfig holds the prompt starting points and timing of a Workflow.
type WorkflowConfig struct {
	DownloadsDir   string
	DestinationDir string
	CollapseDelay  time.Duration
	FinishDelay    time.Duration
	CollapsePolicy CollapsePolicy

	// KeepStagingOnFailure leaves a half-extracted tree in the staging
	// directory after a failed extraction instead of clearing it.
	KeepStagingOnFailure bool
}

// Workflow is the staging state machine: clear staging, extract, summarize,
// optionally collapse a single root folder, then merge into a destination.
//
// Only one run is in flight at a time. Start refuses to begin while the
// workflow is not Idle, and every other operation checks the current state,
// so the staging directory is never used by two operations at once.
type Workflow struct {
	cfg        WorkflowConfig
	staging    StagingArea
	extractor  Extractor
	summarizer Summarizer
	merger     Merger
	prompter   Prompter
	presenter  Presenter
	logger     Logger
	clock      Clock
	idgen      IDGenerator

	mu          sync.Mutex
	state       State
	subscribers []func(StateChange)
	report      *RunReport
	question    string
	done        chan struct{}
	extractErr  error
}

// NewWorkflow creates an Idle workflow. The presenter is subscribed to state changes.
func NewWorkflow(cfg WorkflowConfig, staging StagingArea, extractor Extractor, summarizer Summarizer, merger Merger, prompter Prompter, presenter Presenter, logger Logger, clock Clock, idgen IDGenerator) *Workflow {
	if cfg.CollapsePolicy == "" {
		cfg.CollapsePolicy = CollapseAsk
	}
	w := &Workflow{
		cfg:        cfg,
		staging:    staging,
		extractor:  extractor,
		summarizer: summarizer,
		merger:     merger,
		prompter:   prompter,
		presenter:  presenter,
		logger:     logger,
		clock:      clock,
		idgen:      idgen,
		state:      Idle,
	}
	w.Subscribe(presenter.StateChanged)
	return w
}

// Subscribe registers fn to be called after every state transition.
func (w *Workflow) Subscribe(fn func(StateChange)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.subscribers = append(w.subscribers, fn)
}

// State returns the current state.
func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Report returns a copy of the current (or last) run's report, or nil
// if no run has started.
func (w *Workflow) Report() *RunReport {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.report == nil {
		return nil
	}
	r := *w.report
	r.Warnings = append([]string(nil), w.report.Warnings...)
	return &r
}

// CollapseQuestion returns the question shown while awaiting the collapse decision.
func (w *Workflow) CollapseQuestion() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.question
}

// setStateLocked performs from -> to. w.mu must be held.
func (w *Workflow) setStateLocked(from, to State) (StateChange, error) {
	if w.state != from || !CanTransition(from, to) {
		return StateChange{}, fmt.Errorf("%w: %s -> %s (current state %s)", ErrInvalidTransition, from, to, w.state)
	}
	w.state = to
	ev := StateChange{From: from, To: to, At: w.clock.Now()}
	if w.report != nil {
		ev.RunID = w.report.ID
		ev.Archive = w.report.Archive
	}
	return ev, nil
}

// publish delivers ev to subscribers outside the lock.
func (w *Workflow) publish(ev StateChange) {
	w.mu.Lock()
	subs := append([]func(StateChange){}, w.subscribers...)
	w.mu.Unlock()

	w.logger.Debug("state changed", "from", ev.From.String(), "to", ev.To.String())
	for _, fn := range subs {
		fn(ev)
	}
}

func (w *Workflow) transition(from, to State) error {
	w.mu.Lock()
	ev, err := w.setStateLocked(from, to)
	w.mu.Unlock()
	if err != nil {
		return err
	}
	w.publish(ev)
	return nil
}

// finish records the run's outcome and returns the workflow to Idle.
func (w *Workflow) finish(status RunStatus, err error) {
	w.mu.Lock()
	if w.report != nil {
		w.report.Status = status
		w.report.Err = err
		w.report.FinishedAt = w.clock.Now()
	}
	from := w.state
	ev, terr := w.setStateLocked(from, Idle)
	w.mu.Unlock()
	if terr == nil {
		w.publish(ev)
	}
}

// Start begins a run: the staging area is cleared, the user picks an
// archive, and extraction starts on a background goroutine. It returns
// false if the user cancelled the archive prompt. Use Wait to block until
// extraction has finished.
func (w *Workflow) Start(ctx context.Context) (bool, error) {
	w.mu.Lock()
	if w.state != Idle {
		w.mu.Unlock()
		return false, ErrBusy
	}
	w.report = &RunReport{ID: w.idgen.New(), Status: RunRunning, StartedAt: w.clock.Now()}
	w.question = ""
	w.done = nil
	w.extractErr = nil
	ev, err := w.setStateLocked(Idle, Cleaning)
	runID := w.report.ID
	w.mu.Unlock()
	if err != nil {
		return false, err
	}
	w.publish(ev)
	w.logger.Info("run started", "run", runID)

	if err := w.staging.Clear(); err != nil {
		err = fmt.Errorf("clearing staging area: %w", err)
		w.presenter.ShowError(err.Error())
		w.finish(RunFailed, err)
		return false, err
	}

	if err := w.transition(Cleaning, AwaitingArchiveChoice); err != nil {
		return false, err
	}
	archive, ok, err := w.prompter.OpenArchive(w.cfg.DownloadsDir)
	if err != nil {
		err = fmt.Errorf("choosing archive: %w", err)
		w.finish(RunFailed, err)
		return false, err
	}
	if !ok {
		w.logger.Info("archive choice cancelled", "run", runID)
		w.finish(RunCancelled, nil)
		return false, nil
	}

	done := make(chan struct{})
	w.mu.Lock()
	w.report.Archive = archive
	w.done = done
	w.mu.Unlock()

	w.presenter.SetSelectedFile("Selected archive: " + filepath.Base(archive))
	w.presenter.SetStatus("Extracting, please wait...")
	if err := w.transition(AwaitingArchiveChoice, Extracting); err != nil {
		close(done)
		return false, err
	}

	go w.extract(ctx, archive, done)
	return true, nil
}

// Wait blocks until the extraction started by Start has finished and
// returns its error, if any.
func (w *Workflow) Wait() error {
	w.mu.Lock()
	done := w.done
	w.mu.Unlock()
	if done == nil {
		return nil
	}
	<-done

	w.mu.Lock()
	defer w.mu.Unlock()
	return w.extractErr
}

func (w *Workflow) extract(ctx context.Context, archive string, done chan struct{}) {
	defer close(done)
	if err := w.runExtraction(ctx, archive); err != nil {
		w.mu.Lock()
		w.extractErr = err
		w.mu.Unlock()
	}
}

func (w *Workflow) runExtraction(ctx context.Context, archive string) error {
	dir := w.staging.Dir()

	w.presenter.ExtractionStarted(filepath.Base(archive))
	err := w.extractor.Extract(ctx, archive, dir, w.presenter.EntryExtracted)
	w.presenter.ExtractionFinished()
	if err != nil {
		w.failExtraction(err)
		return err
	}
	w.logger.Info("archive extracted", "archive", archive, "staging", dir)

	if n, err := w.staging.Prune(); err != nil {
		err = fmt.Errorf("pruning ignored entries: %w", err)
		w.failExtraction(err)
		return err
	} else if n > 0 {
		w.logger.Info("ignored entries removed", "count", n)
	}

	summary, err := w.summarizer.Summarize(dir)
	if err != nil {
		err = fmt.Errorf("summarizing staging area: %w", err)
		w.failExtraction(err)
		return err
	}
	w.presenter.SetStatus("Extraction complete!")
	w.presenter.SetSummary(summary)
	if err := w.transition(Extracting, Summarized); err != nil {
		return err
	}

	root, single, err := w.staging.SingleRoot()
	if err != nil {
		err = fmt.Errorf("inspecting staging area: %w", err)
		w.presenter.ShowError(err.Error())
		w.finish(RunFailed, err)
		return err
	}
	if !single {
		return w.transition(Summarized, AwaitingDestinationChoice)
	}

	q := fmt.Sprintf("Extraction complete! Only one folder %q: remove it and move its contents up?", root)
	w.mu.Lock()
	w.question = q
	w.mu.Unlock()
	w.presenter.SetTitle(confirmTitle)
	w.presenter.SetStatus(q)
	return w.transition(Summarized, AwaitingCollapseDecision)
}

func (w *Workflow) failExtraction(err error) {
	status := RunFailed
	if KindOf(err) == PasswordProtected {
		status = RunSkipped
		w.logger.Warn("archive skipped", "error", err)
		w.presenter.ShowWarning("Password-protected archive, skipped: " + err.Error())
	} else {
		w.logger.Error("extraction failed", "error", err)
		w.presenter.ShowError("Extraction failed: " + err.Error())
	}
	w.presenter.SetStatus("Extraction failed!")

	if !w.cfg.KeepStagingOnFailure {
		if cerr := w.staging.Clear(); cerr != nil {
			w.logger.Warn("clearing staging area after failure", "error", cerr)
		}
	}
	w.finish(status, err)
}

// Collapse answers the single-root-folder question. With yes, the folder's
// children move up into the staging directory and the folder is removed.
func (w *Workflow) Collapse(yes bool) error {
	if st := w.State(); st != AwaitingCollapseDecision {
		return fmt.Errorf("%w: collapse in state %s", ErrInvalidTransition, st)
	}
	w.presenter.SetTitle(DefaultTitle)

	if yes {
		name, err := w.staging.Collapse()
		if err != nil {
			err = fmt.Errorf("collapsing staging area: %w", err)
			w.logger.Error("collapse failed", "error", err)
			w.presenter.SetStatus("Error: " + err.Error())
			w.presenter.ShowError(err.Error())
			w.finish(RunFailed, err)
			return err
		}
		w.mu.Lock()
		w.report.Collapsed = true
		w.mu.Unlock()
		w.logger.Info("single root folder collapsed", "folder", name)

		if summary, err := w.summarizer.Summarize(w.staging.Dir()); err != nil {
			w.logger.Warn("refreshing summary", "error", err)
		} else {
			w.presenter.SetSummary(summary)
		}
		w.presenter.SetStatus(fmt.Sprintf("%s removed, its contents moved up", name))
		w.clock.Sleep(w.cfg.CollapseDelay)
	}

	return w.transition(AwaitingCollapseDecision, AwaitingDestinationChoice)
}

// ChooseDestination prompts for the destination directory. A cancelled
// prompt leaves the workflow awaiting a destination and returns false.
func (w *Workflow) ChooseDestination() (string, bool, error) {
	if st := w.State(); st != AwaitingDestinationChoice {
		return "", false, fmt.Errorf("%w: choose destination in state %s", ErrInvalidTransition, st)
	}
	w.presenter.SetStatus("Choose a destination directory")
	dest, ok, err := w.prompter.ChooseDirectory(w.cfg.DestinationDir)
	if err != nil {
		return "", false, fmt.Errorf("choosing destination: %w", err)
	}
	if !ok {
		w.presenter.SetStatus("No destination chosen")
		return "", false, nil
	}
	return dest, true, nil
}

// Move places every staged entry into dest. The first failure stops the
// loop; entries already placed stay placed.
func (w *Workflow) Move(dest string) error {
	if err := w.transition(AwaitingDestinationChoice, Moving); err != nil {
		return err
	}
	w.mu.Lock()
	w.report.Destination = dest
	w.mu.Unlock()

	entries, err := w.staging.Entries()
	if err != nil {
		err = fmt.Errorf("listing staging area: %w", err)
		w.presenter.ShowError(err.Error())
		w.finish(RunFailed, err)
		return err
	}

	dir := w.staging.Dir()
	if err := checkDestination(dest, dir, entries); err != nil {
		w.logger.Error("destination rejected", "destination", dest, "staging", dir, "error", err)
		w.presenter.SetStatus(fmt.Sprintf("Error: %v", err))
		w.presenter.ShowError(err.Error())
		w.finish(RunFailed, err)
		return err
	}
	for i, name := range entries {
		if err := w.merger.PlaceEntry(filepath.Join(dir, name), dest); err != nil {
			w.logger.Error("placing entry failed", "entry", name, "placed", i, "error", err)
			w.presenter.SetStatus(fmt.Sprintf("Error: %v", err))
			w.presenter.ShowError(fmt.Sprintf("Move stopped after %d of %d entries: %v", i, len(entries), err))
			w.finish(RunFailed, err)
			return err
		}
		w.mu.Lock()
		w.report.Placed = i + 1
		w.mu.Unlock()
		w.logger.Debug("entry placed", "entry", name, "destination", dest)
	}

	if err := w.staging.Drain(); err != nil {
		msg := fmt.Sprintf("Staging area not fully cleared: %v", err)
		w.logger.Warn("draining staging area", "error", err)
		w.presenter.ShowWarning(msg)
		w.mu.Lock()
		w.report.Warnings = append(w.report.Warnings, msg)
		w.mu.Unlock()
	}

	w.presenter.SetStatus("Move complete, files moved to: " + dest)
	w.logger.Info("run complete", "destination", dest, "entries", len(entries))

	w.mu.Lock()
	w.report.Status = RunSuccess
	w.report.FinishedAt = w.clock.Now()
	w.mu.Unlock()
	return w.transition(Moving, Done)
}

// checkDestination rejects a destination that would place staged entries
// back into the staging directory: the staging directory itself, anything
// below it, or a parent whose path down to staging starts with the name of
// a staged entry.
func checkDestination(dest, stagingDir string, entries []string) error {
	d, err := canonicalPath(dest)
	if err != nil {
		return fmt.Errorf("resolving destination: %w", err)
	}
	s, err := canonicalPath(stagingDir)
	if err != nil {
		return fmt.Errorf("resolving staging directory: %w", err)
	}
	overlap := &MergeError{Op: "place into", Path: dest, Err: ErrDestinationOverlap}

	if rel, err := filepath.Rel(s, d); err == nil && !escapes(rel) {
		return overlap
	}
	rel, err := filepath.Rel(d, s)
	if err != nil || escapes(rel) {
		return nil
	}
	first, _, _ := strings.Cut(rel, string(filepath.Separator))
	for _, name := range entries {
		if name == first {
			return overlap
		}
	}
	return nil
}

func escapes(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// canonicalPath returns the cleaned absolute form of p with symlinks
// resolved in its longest existing prefix.
func canonicalPath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	var rest []string
	for cur := abs; ; {
		if resolved, err := filepath.EvalSymlinks(cur); err == nil {
			return filepath.Join(append([]string{resolved}, rest...)...), nil
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return abs, nil
		}
		rest = append([]string{filepath.Base(cur)}, rest...)
		cur = parent
	}
}

// Abandon ends a run that is waiting for a decision. Staged files are left
// in place until the next run clears them.
func (w *Workflow) Abandon() error {
	return w.abandon(nil)
}

func (w *Workflow) abandon(cause error) error {
	if st := w.State(); st != AwaitingDestinationChoice && st != AwaitingCollapseDecision {
		return fmt.Errorf("%w: abandon in state %s", ErrInvalidTransition, st)
	}
	w.presenter.SetTitle(DefaultTitle)
	w.presenter.SetStatus("Run abandoned")
	w.logger.Info("run abandoned")
	w.finish(RunAbandoned, cause)
	return nil
}

// Finish waits briefly after a completed run, then asks whether to close.
// When the user stays, the presentation is reset for another run.
func (w *Workflow) Finish() (bool, error) {
	if st := w.State(); st != Done {
		return false, fmt.Errorf("%w: finish in state %s", ErrInvalidTransition, st)
	}
	w.clock.Sleep(w.cfg.FinishDelay)

	quit, err := w.prompter.YesNo(closeQuestion)
	if err != nil {
		if rerr := w.Reset(); rerr != nil {
			w.logger.Warn("resetting after prompt error", "error", rerr)
		}
		return false, fmt.Errorf("asking to close: %w", err)
	}
	if quit {
		w.mu.Lock()
		w.report.Quit = true
		w.mu.Unlock()
		return true, w.transition(Done, Idle)
	}
	return false, w.Reset()
}

// Reset clears the presentation back to its initial state and returns a
// finished workflow to Idle.
func (w *Workflow) Reset() error {
	st := w.State()
	if st != Done && st != Idle {
		return fmt.Errorf("%w: reset in state %s", ErrInvalidTransition, st)
	}
	w.presenter.SetTitle(DefaultTitle)
	w.presenter.SetSelectedFile(noArchiveText)
	w.presenter.SetStatus("")
	w.presenter.SetSummary("")
	if st == Done {
		return w.transition(Done, Idle)
	}
	return nil
}

// Run drives a single run end to end using the prompter for every decision.
// The returned report is nil only when another run is already in progress.
func (w *Workflow) Run(ctx context.Context) (*RunReport, error) {
	started, err := w.Start(ctx)
	if errors.Is(err, ErrBusy) {
		return nil, err
	}
	if err != nil || !started {
		return w.Report(), err
	}

	if err := w.Wait(); err != nil {
		return w.Report(), err
	}

	if w.State() == AwaitingCollapseDecision {
		yes, err := w.decideCollapse()
		if err != nil {
			_ = w.abandon(err)
			return w.Report(), err
		}
		if err := w.Collapse(yes); err != nil {
			return w.Report(), err
		}
	}

	var dest string
	for {
		d, ok, err := w.ChooseDestination()
		if err != nil {
			_ = w.abandon(err)
			return w.Report(), err
		}
		if ok {
			dest = d
			break
		}
		retry, err := w.prompter.YesNo(retryDestPrompt)
		if err != nil || !retry {
			_ = w.abandon(err)
			return w.Report(), err
		}
	}

	if err := w.Move(dest); err != nil {
		return w.Report(), err
	}
	if _, err := w.Finish(); err != nil {
		return w.Report(), err
	}
	return w.Report(), nil
}

func (w *Workflow) decideCollapse() (bool, error) {
	switch w.cfg.CollapsePolicy {
	case CollapseAlways:
		return true, nil
	case CollapseNever:
		return false, nil
	default:
		return w.prompter.YesNo(w.CollapseQuestion())
	}
}
