package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/semcs/ck/internal/index"
)

func newStatusCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "status [PATH]",
		Short: "Report index statistics",
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

			stats, err := manager.Stats(path)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "files:           %d\n", stats.TotalFiles)
			fmt.Fprintf(out, "chunks:          %d\n", stats.TotalChunks)
			fmt.Fprintf(out, "embedded chunks: %d\n", stats.EmbeddedChunks)

			if verbose {
				fmt.Fprintf(out, "source bytes:    %d\n", stats.TotalSizeBytes)
				fmt.Fprintf(out, "index bytes:     %d\n", stats.IndexSizeBytes)
				if model := manager.EmbeddingModel(path); model != "" {
					fmt.Fprintf(out, "embedding model: %s\n", model)
				}
				if stats.IndexCreated > 0 {
					fmt.Fprintf(out, "created:         %s\n", time.Unix(int64(stats.IndexCreated), 0).Format(time.RFC3339))
					fmt.Fprintf(out, "updated:         %s\n", time.Unix(int64(stats.IndexUpdated), 0).Format(time.RFC3339))
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show sizes, model, and timestamps")
	return cmd
}
