package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/askiada/go-cloudmetrics/pkg/metrics"
)

func newMetricsCommand(_ *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "List the available metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, name := range metrics.Default().Names() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}

			return nil
		},
	}
}
