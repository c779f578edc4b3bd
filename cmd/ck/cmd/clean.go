package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/semcs/ck/internal/core"
	"github.com/semcs/ck/internal/index"
)

func newCleanCmd() *cobra.Command {
	var orphans bool

	cmd := &cobra.Command{
		Use:   "clean [PATH]",
		Short: "Remove the index, or sweep orphaned entries with --orphans",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}

			manager, err := index.NewManager()
			if err != nil {
				return err
			}

			if orphans {
				stats, err := manager.Cleanup(path, true, core.DefaultExcludePatterns())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %d manifest entries, %d sidecars\n",
					stats.OrphanedEntriesRemoved, stats.OrphanedSidecarsRemoved)
				return nil
			}

			if err := manager.Clean(path); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "index removed")
			return nil
		},
	}

	cmd.Flags().BoolVar(&orphans, "orphans", false, "Only sweep orphaned entries")
	return cmd
}
