package cli

import (
	"github.com/spf13/cobra"

	"github.com/lherron/clara/internal/cli/appctx"
	"github.com/lherron/clara/internal/domain"
	"github.com/lherron/clara/internal/id"
	"github.com/lherron/clara/internal/store"
)

func newWorkspaceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "workspace",
		Aliases: []string{"ws"},
		Short:   "Manage workspaces",
	}

	var description string
	addCmd := &cobra.Command{
		Use:   "add TITLE",
		Short: "Create a workspace",
		Args:  cobra.ExactArgs(1),
		RunE: appctx.WithApp(appctx.DefaultOptions(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			params := store.CreateWorkspaceParams{Title: args[0]}
			if cmd.Flags().Changed("description") {
				params.Description = &description
			}
			w, err := app.Store().Workspaces.Create(cmd.Context(), params)
			if err != nil {
				return err
			}
			return renderOne(app, cmd, w, workspaceTable(w))
		}),
	}
	addCmd.Flags().StringVarP(&description, "description", "d", "", "Workspace description")

	lsCmd := &cobra.Command{
		Use:   "ls",
		Short: "List live workspaces",
		Args:  cobra.NoArgs,
		RunE: appctx.WithApp(appctx.DefaultOptions(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			items, err := app.Store().Workspaces.List(cmd.Context())
			if err != nil {
				return err
			}
			return renderOne(app, cmd, nonNil(items), workspaceTable(items...))
		}),
	}

	showCmd := &cobra.Command{
		Use:   "show WORKSPACE",
		Short: "Show a workspace, archived or not",
		Args:  cobra.ExactArgs(1),
		RunE: appctx.WithApp(appctx.DefaultOptions(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			wsID, err := parseRef("workspace", args[0], id.TypeWorkspace)
			if err != nil {
				return err
			}
			w, err := app.Store().Workspaces.Get(cmd.Context(), wsID)
			if err != nil {
				return err
			}
			return renderOne(app, cmd, w, workspaceTable(w))
		}),
	}

	setCmd := &cobra.Command{
		Use:   "set WORKSPACE",
		Short: "Update workspace fields",
		Args:  cobra.ExactArgs(1),
		RunE: appctx.WithApp(appctx.DefaultOptions(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			wsID, err := parseRef("workspace", args[0], id.TypeWorkspace)
			if err != nil {
				return err
			}
			patch := domain.WorkspacePatch{Title: changedString(cmd, "title")}
			if patch.Description, err = optionalText(cmd, "description"); err != nil {
				return err
			}
			w, err := app.Store().Workspaces.Update(cmd.Context(), wsID, patch)
			if err != nil {
				return err
			}
			return renderOne(app, cmd, w, workspaceTable(w))
		}),
	}
	describedFlags(setCmd)

	archiveCmd := &cobra.Command{
		Use:   "archive WORKSPACE",
		Short: "Archive a workspace",
		Args:  cobra.ExactArgs(1),
		RunE: appctx.WithApp(appctx.DefaultOptions(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			wsID, err := parseRef("workspace", args[0], id.TypeWorkspace)
			if err != nil {
				return err
			}
			w, err := app.Store().Workspaces.Archive(cmd.Context(), wsID)
			if err != nil {
				return err
			}
			return renderOne(app, cmd, w, workspaceTable(w))
		}),
	}

	cmd.AddCommand(addCmd, lsCmd, showCmd, setCmd, archiveCmd)
	return cmd
}

// describedFlags registers --title, --description and --no-description
func describedFlags(cmd *cobra.Command) {
	cmd.Flags().String("title", "", "New title")
	cmd.Flags().StringP("description", "d", "", "New description")
	cmd.Flags().Bool("no-description", false, "Clear the description")
}

func renderOne(app *appctx.App, cmd *cobra.Command, data any, table func() ([]string, [][]string)) error {
	r, err := newRenderer(app, cmd)
	if err != nil {
		return err
	}
	return r.Render(data, table)
}

// nonNil keeps empty listings encoding as [] rather than null
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
