package cli

import (
	"github.com/spf13/cobra"

	"github.com/lherron/clara/internal/cli/appctx"
	"github.com/lherron/clara/internal/domain"
	"github.com/lherron/clara/internal/id"
	"github.com/lherron/clara/internal/store"
)

func newProjectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "project",
		Aliases: []string{"proj"},
		Short:   "Manage projects inside a workspace",
	}

	var description string
	addCmd := &cobra.Command{
		Use:   "add WORKSPACE TITLE",
		Short: "Create a project in a workspace",
		Args:  cobra.ExactArgs(2),
		RunE: appctx.WithApp(appctx.DefaultOptions(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			wsID, err := parseRef("workspace_id", args[0], id.TypeWorkspace)
			if err != nil {
				return err
			}
			params := store.CreateProjectParams{WorkspaceID: wsID, Title: args[1]}
			if cmd.Flags().Changed("description") {
				params.Description = &description
			}
			p, err := app.Store().Projects.Create(cmd.Context(), params)
			if err != nil {
				return err
			}
			return renderOne(app, cmd, p, projectTable(p))
		}),
	}
	addCmd.Flags().StringVarP(&description, "description", "d", "", "Project description")

	lsCmd := &cobra.Command{
		Use:   "ls WORKSPACE",
		Short: "List live projects of a workspace",
		Args:  cobra.ExactArgs(1),
		RunE: appctx.WithApp(appctx.DefaultOptions(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			wsID, err := parseRef("workspace_id", args[0], id.TypeWorkspace)
			if err != nil {
				return err
			}
			items, err := app.Store().Projects.ListByWorkspace(cmd.Context(), wsID)
			if err != nil {
				return err
			}
			return renderOne(app, cmd, nonNil(items), projectTable(items...))
		}),
	}

	showCmd := &cobra.Command{
		Use:   "show PROJECT",
		Short: "Show a project, archived or not",
		Args:  cobra.ExactArgs(1),
		RunE: appctx.WithApp(appctx.DefaultOptions(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			projectID, err := parseRef("project", args[0], id.TypeProject)
			if err != nil {
				return err
			}
			p, err := app.Store().Projects.Get(cmd.Context(), projectID)
			if err != nil {
				return err
			}
			return renderOne(app, cmd, p, projectTable(p))
		}),
	}

	setCmd := &cobra.Command{
		Use:   "set PROJECT",
		Short: "Update project fields",
		Long:  `Update a project's title or description. A project never moves between workspaces.`,
		Args:  cobra.ExactArgs(1),
		RunE: appctx.WithApp(appctx.DefaultOptions(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			projectID, err := parseRef("project", args[0], id.TypeProject)
			if err != nil {
				return err
			}
			patch := domain.ProjectPatch{Title: changedString(cmd, "title")}
			if patch.Description, err = optionalText(cmd, "description"); err != nil {
				return err
			}
			p, err := app.Store().Projects.Update(cmd.Context(), projectID, patch)
			if err != nil {
				return err
			}
			return renderOne(app, cmd, p, projectTable(p))
		}),
	}
	describedFlags(setCmd)

	archiveCmd := &cobra.Command{
		Use:   "archive PROJECT",
		Short: "Archive a project",
		Args:  cobra.ExactArgs(1),
		RunE: appctx.WithApp(appctx.DefaultOptions(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			projectID, err := parseRef("project", args[0], id.TypeProject)
			if err != nil {
				return err
			}
			p, err := app.Store().Projects.Archive(cmd.Context(), projectID)
			if err != nil {
				return err
			}
			return renderOne(app, cmd, p, projectTable(p))
		}),
	}

	cmd.AddCommand(addCmd, lsCmd, showCmd, setCmd, archiveCmd)
	return cmd
}
