package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/semcs/ck/internal/index"
)

func newAddCmd() *cobra.Command {
	var model string

	cmd := &cobra.Command{
		Use:   "add FILE",
		Short: "Index a single file, regardless of freshness",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := index.NewManager()
			if err != nil {
				return err
			}

			if err := manager.IndexSingleFile(cmd.Context(), args[0], index.Options{
				ComputeEmbeddings: true,
				Model:             model,
			}); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "indexed", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&model, "model", "", "Embedding model")
	return cmd
}
