package cli

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// RootCmd outreachctl with every subcommand attached.
func RootCmd() *cobra.Command {
	var noColor bool
	root := &cobra.Command{
		Use:   "outreachctl",
		Short: "Operator tool for the voter outreach backend",
		Long: `outreachctl imports voter rolls, manages caller assignments and exports
call sheets against the same database the HTTP service uses.
Connection settings come from the environment (DB_*, REDIS_*) or a .env file.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				color.NoColor = true
			}
		},
	}
	root.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	root.AddCommand(MigrateCmd())
	root.AddCommand(PreviewCmd())
	root.AddCommand(ImportCmd())
	root.AddCommand(AssignCmd())
	root.AddCommand(RevokeCmd())
	root.AddCommand(VolunteersCmd())
	root.AddCommand(ExportCmd())
	return root
}
