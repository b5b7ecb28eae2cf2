package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmandel/confluence-checklist-syncer/internal/confluence"
	"github.com/jmandel/confluence-checklist-syncer/internal/localstore"
	"github.com/jmandel/confluence-checklist-syncer/internal/syncer"
)

// SyncOptions holds flags for the sync command.
type SyncOptions struct {
	*RootOptions
	ConfigPath string
	LocalDB    string
	DryRun     bool
}

// syncReport is the JSON payload emitted after a batch run.
type syncReport struct {
	Synced  int          `json:"synced"`
	Failed  int          `json:"failed"`
	Results []syncResult `json:"results"`
}

type syncResult struct {
	Name    string `json:"name"`
	PageID  string `json:"page_id,omitempty"`
	Created bool   `json:"created"`
	Updated bool   `json:"updated"`
	Error   string `json:"error,omitempty"`
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SyncOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sync <checklists-dir>",
		Short: "Sync checklists to their target pages",
		Long: `Sync projects every checklist in the directory onto its target page.

Checkbox state and in-page edits on existing items survive the sync;
items removed from the checklist are dropped or moved to a removed-items
appendix depending on the checklist's keepRemoved setting.

Each target gets its own outcome: one failing page does not stop the
rest of the batch.

Example:
  checklist-sync sync ./checklists --config confluence.yaml
  checklist-sync sync ./checklists --local ./pages.db --dry-run`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "confluence.yaml", "path to connection config")
	cmd.Flags().StringVar(&opts.LocalDB, "local", "", "sync against a local SQLite store instead of Confluence")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "report what would change without writing")

	return cmd
}

func runSync(opts *SyncOptions, checklistsDir string, cmd *cobra.Command) error {
	logger := newLogger(opts.Verbose)
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	plans, err := loadPlans(checklistsDir)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load checklists", err)
	}
	logger.Info("checklists loaded", "count", len(plans), "dir", checklistsDir)

	store, cleanup, err := openStore(opts.LocalDB, opts.ConfigPath, logger)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open document store", err)
	}
	defer cleanup()

	var syncOpts []syncer.Option
	if opts.DryRun {
		syncOpts = append(syncOpts, syncer.WithDryRun(true))
	}
	s := syncer.New(store, logger, syncOpts...)

	ctx, cancel := signalContext(cmd)
	defer cancel()

	outcomes := s.SyncAll(ctx, plans)

	report := syncReport{}
	for _, o := range outcomes {
		r := syncResult{
			Name:    o.Name,
			PageID:  o.PageID,
			Created: o.Created,
			Updated: o.Updated,
		}
		if o.Err != nil {
			r.Error = o.Err.Error()
			report.Failed++
		} else {
			report.Synced++
		}
		report.Results = append(report.Results, r)
	}

	if formatter.Format == "json" {
		if err := formatter.Success(report); err != nil {
			return WrapExitError(ExitCommandError, "failed to encode output", err)
		}
	} else {
		printSyncText(formatter, report, opts.DryRun)
	}

	if report.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d checklists failed", report.Failed, len(outcomes)))
	}
	return nil
}

func printSyncText(f *OutputFormatter, report syncReport, dryRun bool) {
	for _, r := range report.Results {
		switch {
		case r.Error != "":
			fmt.Fprintf(f.Writer, "FAIL  %s: %s\n", r.Name, r.Error)
		case r.Created:
			fmt.Fprintf(f.Writer, "ok    %s (created page %s)\n", r.Name, r.PageID)
		case r.Updated:
			fmt.Fprintf(f.Writer, "ok    %s (updated page %s)\n", r.Name, r.PageID)
		default:
			fmt.Fprintf(f.Writer, "ok    %s (no changes)\n", r.Name)
		}
	}
	suffix := ""
	if dryRun {
		suffix = " (dry run)"
	}
	fmt.Fprintf(f.Writer, "%d synced, %d failed%s\n", report.Synced, report.Failed, suffix)
}

// loadPlans loads and compiles all CUE checklists from a directory,
// failing on the first error.
func loadPlans(dir string) ([]syncer.Plan, error) {
	result, loadErrors := LoadChecklists(dir, LoadModeFailFast)
	if len(loadErrors) > 0 {
		return nil, loadErrors[0]
	}
	return result.Plans, nil
}

// openStore picks the document store for a run: a local SQLite mirror,
// or the Confluence REST client.
func openStore(localDB, configPath string, logger *slog.Logger) (confluence.Store, func(), error) {
	if localDB != "" {
		logger.Info("using local store", "path", localDB)
		st, err := localstore.Open(localDB)
		if err != nil {
			return nil, nil, err
		}
		cleanup := func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing local store", "error", closeErr)
			}
		}
		return st, cleanup, nil
	}

	cfg, token, err := LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	client := confluence.NewClient(cfg.BaseURL, cfg.Email, token, confluence.WithLogger(logger))
	return client, func() {}, nil
}

// signalContext derives a context cancelled on SIGINT/SIGTERM so a batch
// stops between targets instead of mid-write.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}
