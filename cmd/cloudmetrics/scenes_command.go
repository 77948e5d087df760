package main

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/askiada/go-cloudmetrics/pkg/scene"
)

func newScenesCommand(ctx *commandContext) *cobra.Command {
	var save string

	cmd := &cobra.Command{
		Use:   "scenes <source>...",
		Short: "List the scenes found in source files or glob patterns",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := scene.Find(cmd.Context(), scene.Options{}, args...)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, cat.Len())
			for _, s := range cat.Scenes() {
				rows = append(rows, []string{s.ID, string(s.Kind), strconv.Itoa(s.Index), s.Path})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Scene", "Kind", "Index", "Path"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
			))

			if save == "" {
				return nil
			}
			err = cat.Save(save)
			if err != nil {
				return err
			}
			ctx.logger.Info("scene catalog saved", slog.String("path", save), slog.Int("scenes", cat.Len()))

			return nil
		},
	}
	cmd.Flags().StringVar(&save, "save", "", "Write the catalog to this file (for example "+scene.DBFileName+")")

	return cmd
}
