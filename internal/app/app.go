package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"zipatch/internal/config"
	"zipatch/internal/database"
	"zipatch/internal/extract"
	"zipatch/internal/fs"
	"zipatch/internal/merge"
	"zipatch/internal/model"
	"zipatch/internal/staging"
	"zipatch/internal/tree"
	"zipatch/internal/zp"
)

const anotherQuestion = "Process another archive?"

// Options carries the user-facing surfaces and overrides for a ZPApp.
type Options struct {
	Prompter  zp.Prompter
	Presenter zp.Presenter

	// LogStderr, when non-nil, receives a copy of every log record.
	LogStderr io.Writer

	// Collapse overrides the configured collapse policy when non-empty.
	Collapse zp.CollapsePolicy

	// Clock and IDs default to the real clock and random UUIDs.
	Clock zp.Clock
	IDs   zp.IDGenerator
}

// ZPApp is the application layer between the CLI and the staging workflow.
// It constructs all dependencies from config, records every run in the
// history store, and releases resources on Close.
type ZPApp struct {
	cfg      *config.Config
	store    zp.RunStore
	staging  zp.StagingArea
	workflow *zp.Workflow
	recorder *runRecorder
	prompter zp.Prompter
	logger   zp.Logger
	logFile  *os.File
}

// NewZPApp creates a fully wired ZPApp from the given config.
// The caller must call Close when done.
func NewZPApp(cfg *config.Config, opts Options) (*ZPApp, error) {
	if opts.Prompter == nil || opts.Presenter == nil {
		return nil, fmt.Errorf("prompter and presenter are required")
	}
	if opts.Clock == nil {
		opts.Clock = zp.RealClock{}
	}
	if opts.IDs == nil {
		opts.IDs = zp.UUIDGenerator{}
	}

	policy := opts.Collapse
	if policy == "" {
		p, err := ParseCollapsePolicy(cfg.Workflow.Collapse)
		if err != nil {
			return nil, err
		}
		policy = p
	}

	sessionID := opts.Clock.Now().UTC().Format("20060102T150405Z")
	slogger, logFile, err := newLogger(cfg.LogDir, sessionID, opts.LogStderr)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	fsmgr := fs.NewOSFilesystemManager()

	sa, err := staging.NewStagingAreaFromConfig(cfg.Staging, fsmgr, logger)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating staging area: %w", err)
	}

	store, err := database.NewDatabaseFromConfig(cfg.Database)
	if err != nil {
		sa.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating database: %w", err)
	}

	if checker, ok := store.(interface{ CheckMigrations() error }); ok {
		if err := checker.CheckMigrations(); err != nil {
			store.Close()
			sa.Close()
			logFile.Close()
			return nil, fmt.Errorf("database schema out of date: %w", err)
		}
	}

	wcfg := zp.WorkflowConfig{
		DownloadsDir:         cfg.DownloadsDir,
		DestinationDir:       cfg.DestinationDir,
		CollapseDelay:        cfg.Workflow.CollapseDelay.Duration,
		FinishDelay:          cfg.Workflow.FinishDelay.Duration,
		CollapsePolicy:       policy,
		KeepStagingOnFailure: cfg.Workflow.KeepStagingOnFailure,
	}
	wf := zp.NewWorkflow(wcfg, sa,
		extract.NewExtractorFromConfig(cfg.Decoders, logger),
		tree.NewSummarizer(),
		merge.NewMerger(fsmgr, logger),
		opts.Prompter, opts.Presenter, logger, opts.Clock, opts.IDs)

	rec := newRunRecorder(store, wf.Report, logger)
	wf.Subscribe(rec.StateChanged)

	logger.Info("session started", "staging", sa.Dir(), "collapse", string(policy))

	return &ZPApp{
		cfg:      cfg,
		store:    store,
		staging:  sa,
		workflow: wf,
		recorder: rec,
		prompter: opts.Prompter,
		logger:   logger,
		logFile:  logFile,
	}, nil
}

// ParseCollapsePolicy converts a config or flag value into a policy.
// The empty string means ask.
func ParseCollapsePolicy(s string) (zp.CollapsePolicy, error) {
	switch zp.CollapsePolicy(s) {
	case "", zp.CollapseAsk:
		return zp.CollapseAsk, nil
	case zp.CollapseAlways, zp.CollapseNever:
		return zp.CollapsePolicy(s), nil
	default:
		return "", fmt.Errorf("unknown collapse policy %q (want ask, always or never)", s)
	}
}

// Workflow returns the underlying state machine.
func (a *ZPApp) Workflow() *zp.Workflow {
	return a.workflow
}

// Run performs a single run end to end.
func (a *ZPApp) Run(ctx context.Context) (*zp.RunReport, error) {
	return a.workflow.Run(ctx)
}

// Loop performs runs until the user chooses to close, the input ends, or
// ctx is cancelled. After a run that did not succeed the user is asked
// whether to process another archive.
func (a *ZPApp) Loop(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		rep, err := a.workflow.Run(ctx)
		if rep == nil {
			return err
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			a.logger.Warn("run ended with error", "run", rep.ID, "status", string(rep.Status), "error", err)
		}
		if rep.Quit {
			return nil
		}
		if rep.Status == zp.RunSuccess {
			continue
		}

		again, err := a.prompter.YesNo(anotherQuestion)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("asking to continue: %w", err)
		}
		if !again {
			return nil
		}
	}
}

// History returns the most recent runs, newest first.
func (a *ZPApp) History(limit int) ([]*model.Run, error) {
	return a.store.ListRuns(limit)
}

// Close closes the history store, the staging area and the log file.
func (a *ZPApp) Close() error {
	var firstErr error

	if err := a.staging.Close(); err != nil {
		firstErr = fmt.Errorf("closing staging area: %w", err)
	}

	if err := a.store.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}

	a.logger.Info("session closed")
	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}

// OpenHistory opens the configured history store without building a workflow.
func OpenHistory(cfg *config.Config) (zp.RunStore, error) {
	store, err := database.NewDatabaseFromConfig(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}
	return store, nil
}
