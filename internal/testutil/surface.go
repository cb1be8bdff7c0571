package testutil

import (
	"sync"

	"zipatch/internal/zp"
)

// Answer is one scripted response to a path prompt.
type Answer struct {
	Path string
	OK   bool
	Err  error
}

// Pick answers a prompt with path.
func Pick(path string) Answer { return Answer{Path: path, OK: true} }

// Cancel answers a prompt as if the user dismissed it.
func Cancel() Answer { return Answer{} }

// ScriptedPrompter answers prompts from queues. An exhausted queue
// answers as a cancelled prompt (or "no").
type ScriptedPrompter struct {
	mu        sync.Mutex
	archives  []Answer
	dirs      []Answer
	yesNo     []bool
	yesNoErr  error
	questions []string
	initial   []string
}

var _ zp.Prompter = (*ScriptedPrompter)(nil)

func NewScriptedPrompter() *ScriptedPrompter {
	return &ScriptedPrompter{}
}

// Archives queues answers for OpenArchive.
func (p *ScriptedPrompter) Archives(a ...Answer) *ScriptedPrompter {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.archives = append(p.archives, a...)
	return p
}

// Directories queues answers for ChooseDirectory.
func (p *ScriptedPrompter) Directories(a ...Answer) *ScriptedPrompter {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dirs = append(p.dirs, a...)
	return p
}

// FailAnswers makes YesNo return err once its queue is exhausted.
func (p *ScriptedPrompter) FailAnswers(err error) *ScriptedPrompter {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.yesNoErr = err
	return p
}

// Answers queues answers for YesNo.
func (p *ScriptedPrompter) Answers(yes ...bool) *ScriptedPrompter {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.yesNo = append(p.yesNo, yes...)
	return p
}

func (p *ScriptedPrompter) OpenArchive(initialDir string) (string, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.initial = append(p.initial, initialDir)
	if len(p.archives) == 0 {
		return "", false, nil
	}
	a := p.archives[0]
	p.archives = p.archives[1:]
	return a.Path, a.OK, a.Err
}

func (p *ScriptedPrompter) ChooseDirectory(initialDir string) (string, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.initial = append(p.initial, initialDir)
	if len(p.dirs) == 0 {
		return "", false, nil
	}
	a := p.dirs[0]
	p.dirs = p.dirs[1:]
	return a.Path, a.OK, a.Err
}

func (p *ScriptedPrompter) YesNo(question string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.questions = append(p.questions, question)
	if len(p.yesNo) == 0 {
		return false, p.yesNoErr
	}
	v := p.yesNo[0]
	p.yesNo = p.yesNo[1:]
	return v, nil
}

// Questions returns every question asked through YesNo.
func (p *ScriptedPrompter) Questions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.questions...)
}

// InitialDirs returns the starting directories passed to path prompts.
func (p *ScriptedPrompter) InitialDirs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.initial...)
}

// RecordingPresenter records everything shown to the user.
type RecordingPresenter struct {
	mu        sync.Mutex
	title     string
	selected  string
	statuses  []string
	summaries []string
	warnings  []string
	errors    []string
	changes   []zp.StateChange
	entries   []string
	started   int
	finished  int
}

var _ zp.Presenter = (*RecordingPresenter)(nil)

func NewRecordingPresenter() *RecordingPresenter {
	return &RecordingPresenter{}
}

func (p *RecordingPresenter) SetTitle(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.title = text
}

func (p *RecordingPresenter) SetSelectedFile(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.selected = text
}

func (p *RecordingPresenter) SetStatus(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statuses = append(p.statuses, text)
}

func (p *RecordingPresenter) SetSummary(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.summaries = append(p.summaries, text)
}

func (p *RecordingPresenter) ShowWarning(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.warnings = append(p.warnings, text)
}

func (p *RecordingPresenter) ShowError(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errors = append(p.errors, text)
}

func (p *RecordingPresenter) StateChanged(ev zp.StateChange) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, ev)
}

func (p *RecordingPresenter) ExtractionStarted(string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.started++
}

func (p *RecordingPresenter) EntryExtracted(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = append(p.entries, name)
}

func (p *RecordingPresenter) ExtractionFinished() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.finished++
}

func (p *RecordingPresenter) Title() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.title
}

func (p *RecordingPresenter) SelectedFile() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.selected
}

// LastStatus returns the most recent status line, or "".
func (p *RecordingPresenter) LastStatus() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.statuses) == 0 {
		return ""
	}
	return p.statuses[len(p.statuses)-1]
}

// LastSummary returns the most recent summary, or "".
func (p *RecordingPresenter) LastSummary() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.summaries) == 0 {
		return ""
	}
	return p.summaries[len(p.summaries)-1]
}

func (p *RecordingPresenter) Warnings() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.warnings...)
}

func (p *RecordingPresenter) Errors() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.errors...)
}

// States returns the target state of every recorded transition.
func (p *RecordingPresenter) States() []zp.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	states := make([]zp.State, len(p.changes))
	for i, ev := range p.changes {
		states[i] = ev.To
	}
	return states
}

func (p *RecordingPresenter) Entries() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.entries...)
}

// ExtractionCounts returns how often extraction started and finished.
func (p *RecordingPresenter) ExtractionCounts() (started, finished int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started, p.finished
}
