package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd builds the clara command tree
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "clara",
		Short: "Workspaces, projects and nested tasks on a SQLite backend",
		Long: `clara manages workspaces, the projects inside them and trees of
tasks with notes, calendar events, reminders and tags attached. Every change
is recorded in an append-only activity log, and a whole workspace can be
rendered as one nested snapshot document.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("db", "", "Path to database file (overrides CLARA_DB_PATH)")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output format: table, json, ndjson, yaml, tsv (overrides CLARA_OUTPUT)")
	rootCmd.PersistentFlags().Bool("porcelain", false, "Machine-readable output")

	rootCmd.AddCommand(
		newWorkspaceCmd(),
		newProjectCmd(),
		newTaskCmd(),
		newNoteCmd(),
		newEventCmd(),
		newReminderCmd(),
		newTagCmd(),
		newSnapshotCmd(),
		newTreeCmd(),
		newLogCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}
