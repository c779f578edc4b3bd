package cmd

import (
	"github.com/spf13/cobra"
)

// newSearchCmd is the explicit form of the root search: `ck search PATTERN
// [PATH] [--reindex]`. It shares every flag with the root command.
func newSearchCmd() *cobra.Command {
	var flags searchFlags

	cmd := &cobra.Command{
		Use:   "search PATTERN [PATH]",
		Short: "Search (explicit subcommand form)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			storedExit, err = runSearchArgs(cmd.Context(), cmd, &flags, args)
			return err
		},
	}

	flags.register(cmd)
	return cmd
}
