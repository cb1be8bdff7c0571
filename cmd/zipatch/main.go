package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"zipatch/internal/app"
	"zipatch/internal/config"
	zfs "zipatch/internal/fs"
	"zipatch/internal/tree"
	"zipatch/internal/ui"
	"zipatch/internal/zp"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file. A missing file yields the defaults.
func loadConfig() (*config.Config, map[string]string, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if errors.Is(err, fs.ErrNotExist) {
		return defaultConfig(defaults), defaults, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, defaults, nil
}

func defaultConfig(defaults map[string]string) *config.Config {
	return config.NewConfig(defaults["base_dir"], defaults["downloads_dir"], defaults["destination_dir"])
}

var rootCmd = &cobra.Command{
	Use:   "zipatch",
	Short: "Stage archives and merge them into a game directory",
}

// run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Extract an archive and merge it into a destination",
	RunE: func(cmd *cobra.Command, args []string) error {
		archive, _ := cmd.Flags().GetString("archive")
		dest, _ := cmd.Flags().GetString("dest")
		collapse, _ := cmd.Flags().GetString("collapse")
		once, _ := cmd.Flags().GetBool("once")
		verbose, _ := cmd.Flags().GetBool("verbose")

		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}

		var policy zp.CollapsePolicy
		if collapse != "" {
			if policy, err = app.ParseCollapsePolicy(collapse); err != nil {
				return err
			}
		}

		for _, p := range []*string{&archive, &dest} {
			if *p == "" {
				continue
			}
			abs, err := filepath.Abs(*p)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}
			*p = abs
		}

		interactive := ui.IsTerminal(os.Stdin) && ui.IsTerminal(os.Stdout)
		var prompter zp.Prompter = ui.NewTerminalPrompter(os.Stdin, os.Stdout, zfs.NewOSFilesystemManager())
		if archive != "" || dest != "" {
			prompter = ui.NewPresetPrompter(prompter, archive, dest)
		}

		opts := app.Options{
			Prompter:  prompter,
			Presenter: ui.NewTerminalPresenter(os.Stdout, interactive, verbose),
			Collapse:  policy,
		}
		if verbose {
			opts.LogStderr = os.Stderr
		}

		a, err := app.NewZPApp(cfg, opts)
		if err != nil {
			return fmt.Errorf("initializing app: %w", err)
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if !once {
			return a.Loop(ctx)
		}

		rep, err := a.Run(ctx)
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if err != nil {
			return err
		}
		if rep != nil && rep.Status != zp.RunSuccess {
			return fmt.Errorf("run %s", rep.Status)
		}
		return nil
	},
}

// tree command
var treeCmd = &cobra.Command{
	Use:   "tree DIR",
	Short: "Print the structure of a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		summary, err := tree.NewSummarizer().Summarize(args[0])
		if err != nil {
			return err
		}
		fmt.Println(summary)
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View past runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}

		store, err := app.OpenHistory(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.ListRuns(limit)
		if err != nil {
			return err
		}

		if len(runs) == 0 {
			fmt.Println("No runs recorded.")
			return nil
		}

		for _, r := range runs {
			duration := ""
			if r.FinishedAt.Valid {
				d := r.FinishedAt.Time.Sub(r.StartedAt)
				duration = d.Truncate(time.Millisecond).String()
			}
			fmt.Printf("%s  %-9s  %-10s  %s",
				r.StartedAt.Format("2006-01-02 15:04:05"),
				r.Status,
				duration,
				filepath.Base(r.ArchivePath),
			)
			if r.Destination != "" {
				fmt.Printf(" -> %s (%d entries)", r.Destination, r.PlacedEntries)
			}
			if r.Error != "" {
				fmt.Printf("  [%s]", r.Error)
			}
			fmt.Println()
		}
		return nil
	},
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := defaultConfig(defaults)
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir:    %s\n", cfg.BaseDir)
		fmt.Printf("Downloads:   %s\n", cfg.DownloadsDir)
		fmt.Printf("Destination: %s\n", cfg.DestinationDir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, defaults, err := loadConfig()
		if err != nil {
			return err
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Base Dir:     %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:      %s\n", cfg.LogDir)
		fmt.Printf("Downloads:    %s\n", cfg.DownloadsDir)
		fmt.Printf("Destination:  %s\n", cfg.DestinationDir)
		fmt.Printf("Staging:      %s (%s)\n", cfg.Staging.StagingDir, cfg.Staging.Type)
		fmt.Printf("Collapse:     %s\n", cfg.Workflow.Collapse)
		fmt.Printf("RAR decoder:  %s %v\n", cfg.Decoders.Rar.Command, cfg.Decoders.Rar.Args)
		fmt.Printf("7z decoder:   %s %v\n", cfg.Decoders.SevenZip.Command, cfg.Decoders.SevenZip.Args)
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// root commands
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringP("archive", "a", "", "Archive to extract instead of prompting")
	runCmd.Flags().StringP("dest", "d", "", "Destination directory instead of prompting")
	runCmd.Flags().String("collapse", "", "Single root folder handling: ask, always or never")
	runCmd.Flags().Bool("once", false, "Exit after a single run")
	runCmd.Flags().BoolP("verbose", "v", false, "Show state changes and mirror the log to stderr")
	rootCmd.AddCommand(treeCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of runs to show")
	rootCmd.AddCommand(configCmd)
}
