package cli

import (
	"github.com/spf13/cobra"
)

// NewAdminCmd builds the claraadm command tree
func NewAdminCmd() *cobra.Command {
	rootAdmCmd := &cobra.Command{
		Use:   "claraadm",
		Short: "Administrative CLI for the clara database lifecycle",
		Long: `claraadm is the administrative companion to clara. It creates the
database and applies schema migrations.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootAdmCmd.PersistentFlags().String("db", "", "Path to database file (overrides CLARA_DB_PATH)")

	rootAdmCmd.AddCommand(
		newInitAdmCmd(),
		newMigrateAdmCmd(),
		newVersionCmd(),
	)
	return rootAdmCmd
}

// ExecuteAdmin runs the admin root command
func ExecuteAdmin() error {
	return NewAdminCmd().Execute()
}
