package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/havenworks/pidl"
	"github.com/havenworks/pidl/internal/pidlconfig"
	"github.com/havenworks/pidl/internal/pidllog"
)

func newExplainCmd(root *rootFlags, appLogger *pidllog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "explain",
		Short: "Print the wave plan for a pipeline without running it",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := pidlconfig.Load(root.configPath, defaultFactories(), pidl.WithLogger(appLogger))
			if err != nil {
				return err
			}

			out, err := p.DryRun()
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
}
