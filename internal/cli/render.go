package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmandel/confluence-checklist-syncer/internal/syncer"
)

// RenderOptions holds flags for the render command.
type RenderOptions struct {
	*RootOptions
	ConfigPath string
	LocalDB    string
	Checklist  string
}

// renderPayload is the JSON payload for a rendered checklist.
type renderPayload struct {
	Name   string `json:"name"`
	Markup string `json:"markup"`
}

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RenderOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "render <checklists-dir>",
		Short: "Render a checklist's merged markup without writing",
		Long: `Render fetches the target page, merges the named checklist against it,
and prints the resulting storage-format markup to stdout. Nothing is
written back; the page is read-only input.

Useful for inspecting exactly what a sync would produce.

Example:
  checklist-sync render ./checklists --checklist onboarding
  checklist-sync render ./checklists --checklist onboarding --local ./pages.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "confluence.yaml", "path to connection config")
	cmd.Flags().StringVar(&opts.LocalDB, "local", "", "read from a local SQLite store instead of Confluence")
	cmd.Flags().StringVar(&opts.Checklist, "checklist", "", "name of the checklist to render (required)")
	_ = cmd.MarkFlagRequired("checklist")

	return cmd
}

func runRender(opts *RenderOptions, checklistsDir string, cmd *cobra.Command) error {
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

	plan, err := findPlan(plans, opts.Checklist)
	if err != nil {
		return WrapExitError(ExitCommandError, "unknown checklist", err)
	}

	store, cleanup, err := openStore(opts.LocalDB, opts.ConfigPath, logger)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open document store", err)
	}
	defer cleanup()

	s := syncer.New(store, logger)
	markup, err := s.Preview(cmd.Context(), *plan)
	if err != nil {
		return WrapExitError(ExitFailure, "render failed", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(renderPayload{Name: plan.Name, Markup: markup})
	}
	fmt.Fprintln(formatter.Writer, markup)
	return nil
}

func findPlan(plans []syncer.Plan, name string) (*syncer.Plan, error) {
	for i := range plans {
		if plans[i].Name == name {
			return &plans[i], nil
		}
	}
	return nil, fmt.Errorf("no checklist named %q", name)
}
