package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/semcs/ck/internal/core"
	"github.com/semcs/ck/internal/ui"
)

func newInteractiveCmd() *cobra.Command {
	var flags searchFlags

	cmd := &cobra.Command{
		Use:   "interactive [PATH]",
		Short: "Interactive search with live results",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !stdinIsTTY() {
				return fmt.Errorf("interactive mode needs a terminal")
			}

			path := "."
			if len(args) > 0 {
				path = args[0]
			}

			eng, err := newEngine()
			if err != nil {
				return err
			}

			opts := flags.toOptions("", path, false)
			if opts.Mode == core.ModeRegex && flags.astPattern == "" {
				// Interactive defaults to hybrid: the index pays for itself
				// across repeated queries.
				opts.Mode = core.ModeHybrid
			}
			return ui.Run(eng, opts)
		},
	}

	flags.register(cmd)
	return cmd
}
