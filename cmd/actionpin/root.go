package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/kingrea/actionpin/internal/backup"
	"github.com/kingrea/actionpin/internal/config"
	"github.com/kingrea/actionpin/internal/discovery"
	"github.com/kingrea/actionpin/internal/logging"
	"github.com/kingrea/actionpin/internal/lookup"
	"github.com/kingrea/actionpin/internal/orchestrator"
	"github.com/kingrea/actionpin/internal/report"
	"github.com/kingrea/actionpin/internal/resolver"
	"github.com/kingrea/actionpin/internal/tui"
)

// runFlags holds the command-line values. Only flags the user actually set
// override the loaded configuration.
type runFlags struct {
	configPath    string
	concurrency   int
	backupDir     string
	backend       string
	key           string
	workflowsDir  string
	lookupTimeout time.Duration
	dryRun        bool
	progress      bool
	logFile       string
}

func newRootCommand() *cobra.Command {
	flags := &runFlags{}
	cmd := &cobra.Command{
		Use:   "actionpin [root]",
		Short: "Pin GitHub Actions references to commit SHAs",
		Long: `actionpin scans the repositories under root (default: the current
directory) and rewrites every "uses: owner/repo@ref" in their workflow files
to the commit at the tip of the action's default branch. Original files are
copied to a timestamped backup directory first.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := rootDir(args)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(root, flags, cmd.Flags())
			if err != nil {
				return err
			}
			return run(cmd.Context(), cmd.OutOrStdout(), cfg, flags)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.configPath, "config", "", "config file (default <root>/"+config.FileName+")")
	f.IntVar(&flags.concurrency, "concurrency", config.DefaultConcurrency, "maximum GitHub lookups in flight per repository")
	f.StringVar(&flags.backupDir, "backup-dir", config.DefaultBackupDir, "root directory for workflow backups")
	f.StringVar(&flags.backend, "backend", config.DefaultBackend, "GitHub lookup backend: api or gh")
	f.StringVar(&flags.key, "key", config.DefaultKey, "mapping key holding action references")
	f.StringVar(&flags.workflowsDir, "workflows-dir", config.DefaultWorkflowsDir, "workflow directory relative to each repository")
	f.DurationVar(&flags.lookupTimeout, "lookup-timeout", 0, "bound for a single GitHub lookup (0 means none)")
	f.BoolVar(&flags.dryRun, "dry-run", false, "resolve and report without backing up or writing files")
	f.BoolVar(&flags.progress, "progress", false, "show an interactive progress view")
	f.StringVar(&flags.logFile, "log-file", "", "log file (default <backup run dir>/"+logging.FileName+")")

	cmd.AddCommand(newInitCommand())
	return cmd
}

func newInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init [root]",
		Short: "Write a default " + config.FileName,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := rootDir(args)
			if err != nil {
				return err
			}
			path := filepath.Join(root, config.FileName)
			if err := config.WriteDefault(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
}

func rootDir(args []string) (string, error) {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve root %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("root: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("root %s is not a directory", abs)
	}
	return abs, nil
}

// loadConfig layers defaults, the config file, the environment and finally
// explicitly set flags.
func loadConfig(root string, flags *runFlags, set *pflag.FlagSet) (*config.Config, error) {
	cfg, err := config.Load(root, flags.configPath)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.Getenv)

	if set.Changed("concurrency") {
		cfg.Concurrency = flags.concurrency
	}
	if set.Changed("backup-dir") {
		cfg.BackupDir = flags.backupDir
	}
	if set.Changed("backend") {
		cfg.GitHub.Backend = flags.backend
	}
	if set.Changed("key") {
		cfg.Key = flags.key
	}
	if set.Changed("workflows-dir") {
		cfg.WorkflowsDir = flags.workflowsDir
	}
	if set.Changed("lookup-timeout") {
		cfg.LookupTimeout = flags.lookupTimeout
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(ctx context.Context, out io.Writer, cfg *config.Config, flags *runFlags) error {
	l, err := lookup.New(lookup.Settings{
		Backend:  cfg.GitHub.Backend,
		Token:    cfg.Token,
		BaseURL:  cfg.GitHub.BaseURL,
		GHBinary: cfg.GitHub.GHBinary,
	})
	if err != nil {
		return err
	}
	return pinAll(ctx, out, cfg, flags, l)
}

// pinAll runs the pinning pass over every repository under cfg.RootDir using
// l for GitHub lookups.
func pinAll(ctx context.Context, out io.Writer, cfg *config.Config, flags *runFlags, l lookup.Lookup) error {
	var store *backup.Store
	if !flags.dryRun {
		backupRoot, err := cfg.ResolvedBackupDir()
		if err != nil {
			return err
		}
		store, err = backup.New(backupRoot, time.Now())
		if err != nil {
			return err
		}
	}

	logger, err := openLogger(store, flags.logFile)
	if err != nil {
		return err
	}
	defer logger.Close()

	res, err := resolver.New(l, resolver.WithTimeout(cfg.LookupTimeout))
	if err != nil {
		return err
	}

	repos, err := discovery.Repositories(cfg.RootDir)
	if err != nil {
		return err
	}
	logger.Printf("run started: root=%s repositories=%d concurrency=%d backend=%s dry-run=%t",
		cfg.RootDir, len(repos), cfg.Concurrency, cfg.GitHub.Backend, flags.dryRun)

	opts := orchestrator.Options{
		Key:          cfg.Key,
		Concurrency:  cfg.Concurrency,
		WorkflowsDir: cfg.WorkflowsDir,
		DryRun:       flags.dryRun,
	}
	// relay lets the progress view install its observer after the
	// orchestrator is built.
	var relay orchestrator.Observer = report.NewConsole(out)
	o, err := orchestrator.New(res, opts,
		orchestrator.WithBackups(store),
		orchestrator.WithLogger(logger),
		orchestrator.WithObserver(orchestrator.ObserverFunc(func(e orchestrator.Event) {
			relay.Observe(e)
		})),
	)
	if err != nil {
		return err
	}

	var summary orchestrator.Summary
	if flags.progress {
		summary, err = tui.Run(ctx, out, len(repos), func(ctx context.Context, obs orchestrator.Observer) orchestrator.Summary {
			relay = obs
			return o.Run(ctx, repos)
		})
		if err != nil {
			logger.Warnf("progress view: %v", err)
		}
	} else {
		summary = o.Run(ctx, repos)
	}

	report.Render(out, summary)
	logger.Printf("run finished: repositories=%d files=%d updated=%d unresolved=%d errors=%d",
		summary.RepositoriesProcessed(), summary.FilesProcessed(), summary.ReferencesUpdated(),
		summary.ReferenceFailures(), len(summary.Errors()))
	if path := logger.Path(); path != "" {
		fmt.Fprintf(out, "\nLog written to %s\n", path)
	}
	return ctx.Err()
}

// openLogger picks the explicit log file, or the backup run directory. A dry
// run without --log-file does not log.
func openLogger(store *backup.Store, explicit string) (*logging.Logger, error) {
	switch {
	case explicit != "":
		return logging.New(explicit)
	case store != nil:
		return logging.New(filepath.Join(store.Dir(), logging.FileName))
	default:
		return nil, nil
	}
}
