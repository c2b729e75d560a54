package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/lherron/clara/internal/cli/appctx"
	"github.com/lherron/clara/internal/id"
	"github.com/lherron/clara/internal/render"
	"github.com/lherron/clara/internal/snapshot"
)

func newSnapshotCmd() *cobra.Command {
	var (
		all       bool
		asYAML    bool
		outPath   string
		revOnly   bool
		canonical bool
	)
	cmd := &cobra.Command{
		Use:   "snapshot [WORKSPACE]",
		Short: "Render a workspace, or every workspace, as one nested document",
		Long: `Render the live projects, task trees and attachments of a workspace as a
nested JSON document. Without WORKSPACE (or with --all) every live workspace is
rendered as a list.

The revision printed by --rev is the sha256 of the canonical JSON encoding and
changes exactly when the document does.

Examples:
  clara snapshot W-00001
  clara snapshot --all --out backup/snap.json
  clara snapshot W-00001 --yaml
  clara snapshot W-00001 --rev`,
		Args: cobra.MaximumNArgs(1),
		RunE: appctx.WithApp(appctx.DefaultOptions(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			opts, err := exportOptions(all, args)
			if err != nil {
				return err
			}
			opts.Canonical = canonical
			if !asYAML {
				opts.OutputPath = outPath
			}

			res, err := snapshot.Export(cmd.Context(), app.Engine, opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if revOnly {
				fmt.Fprintln(out, res.Rev)
				return nil
			}

			if asYAML {
				if outPath == "" {
					return render.NewRenderer(out, render.Options{}).RenderYAML(json.RawMessage(res.Data))
				}
				if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
					return fmt.Errorf("failed to create output directory: %w", err)
				}
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", outPath, err)
				}
				defer f.Close()
				if err := render.NewRenderer(f, render.Options{}).RenderYAML(json.RawMessage(res.Data)); err != nil {
					return err
				}
			}

			if outPath == "" {
				_, err := fmt.Fprintf(out, "%s\n", res.Data)
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s: %d workspace(s), %d project(s), %d task(s), rev %s\n",
				outPath, res.WorkspaceCount, res.ProjectCount, res.TaskCount, res.Rev)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&all, "all", false, "Render every live workspace")
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "Render as YAML instead of JSON")
	cmd.Flags().StringVar(&outPath, "out", "", "Write to FILE instead of stdout")
	cmd.Flags().BoolVar(&revOnly, "rev", false, "Print only the snapshot revision")
	cmd.Flags().BoolVar(&canonical, "canonical", false, "Compact canonical JSON (sorted keys, no whitespace)")
	cmd.MarkFlagsMutuallyExclusive("yaml", "canonical")

	cmd.AddCommand(newSnapshotDiffCmd())
	return cmd
}

func newSnapshotDiffCmd() *cobra.Command {
	var all, exitCode bool
	cmd := &cobra.Command{
		Use:   "diff FILE [WORKSPACE]",
		Short: "Compare a saved snapshot with the current state",
		Long: `Print a unified diff between a snapshot file written by 'clara snapshot'
and a fresh snapshot of the same workspace (or of every workspace). Key order
and whitespace are ignored.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: appctx.WithApp(appctx.DefaultOptions(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			saved, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			opts, err := exportOptions(all, args[1:])
			if err != nil {
				return err
			}
			res, err := snapshot.Export(cmd.Context(), app.Engine, opts)
			if err != nil {
				return err
			}

			d, err := snapshot.Diff(args[0], "current", saved, res.Data)
			if err != nil {
				return err
			}
			if d == "" {
				fmt.Fprintln(cmd.ErrOrStderr(), "No differences")
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), d)
			if exitCode {
				return errSnapshotDiffers
			}
			return nil
		}),
	}
	cmd.Flags().BoolVar(&all, "all", false, "Compare against every live workspace")
	cmd.Flags().BoolVar(&exitCode, "exit-code", false, "Fail when the snapshots differ")
	return cmd
}

var errSnapshotDiffers = errors.New("snapshot differs from current state")

func exportOptions(all bool, args []string) (snapshot.ExportOptions, error) {
	var opts snapshot.ExportOptions
	if len(args) == 0 {
		return opts, nil
	}
	if all {
		return opts, fmt.Errorf("--all and a WORKSPACE argument are mutually exclusive")
	}
	wsID, err := parseRef("workspace", args[0], id.TypeWorkspace)
	if err != nil {
		return opts, err
	}
	opts.WorkspaceID = wsID
	return opts, nil
}
