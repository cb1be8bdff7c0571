package zp

// Prompter asks the user for input. A false ok means the prompt was cancelled.
type Prompter interface {
	OpenArchive(initialDir string) (path string, ok bool, err error)
	ChooseDirectory(initialDir string) (path string, ok bool, err error)
	YesNo(question string) (bool, error)
}

// Presenter receives everything the workflow wants shown to the user.
// Methods may be called from the extraction worker goroutine.
type Presenter interface {
	SetTitle(text string)
	SetSelectedFile(text string)
	SetStatus(text string)
	SetSummary(text string)
	ShowWarning(text string)
	ShowError(text string)

	StateChanged(ev StateChange)

	ExtractionStarted(archiveName string)
	EntryExtracted(name string)
	ExtractionFinished()
}
