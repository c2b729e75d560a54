package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lherron/clara/internal/cli/appctx"
	"github.com/lherron/clara/internal/db"
	"github.com/lherron/clara/internal/id"
	"github.com/lherron/clara/internal/store"
)

func newInitAdmCmd() *cobra.Command {
	var workspaceTitle string
	var noSeed bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the clara database",
		Long: `Initialize creates the SQLite database, runs migrations and, for a new
database, seeds a first workspace.`,
		RunE: appctx.WithApp(appctx.Options{}, func(app *appctx.App, cmd *cobra.Command, args []string) error {
			dbPath := app.Config.DBPath
			_, statErr := os.Stat(dbPath)
			dbExists := statErr == nil

			// Open creates the file if it doesn't exist
			database, err := db.Open(dbPath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer database.Close()

			if err := database.Migrate(); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}

			out := cmd.OutOrStdout()
			if dbExists {
				fmt.Fprintf(out, "✓ Database already initialized at %s\n", dbPath)
				fmt.Fprintln(out, "✓ Migrations applied")
				return nil
			}

			fmt.Fprintf(out, "✓ Initialized new database at %s\n", dbPath)
			if noSeed {
				return nil
			}
			w, err := store.New(database).Workspaces.Create(cmd.Context(), store.CreateWorkspaceParams{Title: workspaceTitle})
			if err != nil {
				return fmt.Errorf("failed to seed database: %w", err)
			}
			fmt.Fprintf(out, "✓ Seeded workspace %s %s\n", id.FormatWorkspace(w.ID), w.Title)
			return nil
		}),
	}
	cmd.Flags().StringVar(&workspaceTitle, "workspace", "Inbox", "Title of the workspace seeded into a new database")
	cmd.Flags().BoolVar(&noSeed, "no-seed", false, "Do not seed a workspace")
	return cmd
}
