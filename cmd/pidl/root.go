package main

import (
	"github.com/spf13/cobra"

	"github.com/havenworks/pidl/internal/pidllog"
)

type rootFlags struct {
	configPath string
	verbose    bool
}

func newRootCmd(appLogger *pidllog.Logger) *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "pidl",
		Short:         "pidl runs and explains declarative task pipelines",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Path to a pipeline YAML document")
	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable debug-level logging")
	cmd.MarkPersistentFlagRequired("config") //nolint:errcheck

	cmd.AddCommand(newExplainCmd(flags, appLogger))
	cmd.AddCommand(newRunCmd(flags, appLogger))

	return cmd
}
