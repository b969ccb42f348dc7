package main

import (
	"io"

	"github.com/spf13/cobra"
)

type globalOptions struct {
	logLevel string
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:           "claimctl",
		Short:         "Adjudicate medical insurance claims from local documents",
		SilenceUsage: true,
	}
	root.SetOut(out)
	root.SetErr(errOut)
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level written to stderr (debug, info, warn, error)")

	root.AddCommand(newProcessCmd(opts))
	return root
}
