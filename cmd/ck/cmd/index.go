package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/semcs/ck/internal/core"
	"github.com/semcs/ck/internal/index"
)

func newIndexCmd() *cobra.Command {
	var (
		noEmbeddings bool
		model        string
		force        bool
		exclude      []string
		noIgnore     bool
		initIgnore   bool
	)

	cmd := &cobra.Command{
		Use:   "index [PATH]",
		Short: "Build or incrementally update the .ck/ index",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}

			if initIgnore {
				ignorePath := filepath.Join(path, core.IgnoreFileName)
				if _, err := os.Stat(ignorePath); err == nil {
					return fmt.Errorf("%s already exists", ignorePath)
				}
				if err := os.WriteFile(ignorePath, []byte(core.DefaultCkignoreTemplate), 0o644); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "wrote", ignorePath)
				return nil
			}

			manager, err := index.NewManager()
			if err != nil {
				return err
			}

			excludes := core.DefaultExcludePatterns()
			excludes = append(excludes, exclude...)

			stats, err := manager.SmartUpdate(cmd.Context(), path, index.Options{
				ComputeEmbeddings: !noEmbeddings,
				RespectGitignore:  !noIgnore,
				ExcludePatterns:   excludes,
				Model:             model,
				Force:             force,
				Progress: func(file string) {
					fmt.Fprintf(cmd.ErrOrStderr(), "indexed %s\n", file)
				},
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(),
				"added %d, modified %d, up-to-date %d, indexed %d, errored %d\n",
				stats.FilesAdded, stats.FilesModified, stats.FilesUpToDate,
				stats.FilesIndexed, stats.FilesErrored)
			return nil
		},
	}

	cmd.Flags().BoolVar(&noEmbeddings, "no-embeddings", false, "Skip embedding computation (lexical/regex only)")
	cmd.Flags().StringVar(&model, "model", "", "Embedding model")
	cmd.Flags().BoolVar(&force, "force", false, "Rebuild from scratch")
	cmd.Flags().StringArrayVar(&exclude, "exclude", nil, "Exclude glob (repeatable)")
	cmd.Flags().BoolVar(&noIgnore, "no-ignore", false, "Do not honour .gitignore")
	cmd.Flags().BoolVar(&initIgnore, "init-ignore", false, "Write the default .ckignore and exit")

	return cmd
}
