package main

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/askiada/go-cloudmetrics/internal/cache"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and clean the result cache",
	}
	cmd.AddCommand(newCacheCleanCommand(ctx))
	cmd.AddCommand(newCacheRunsCommand(ctx))

	return cmd
}

func newCacheCleanCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove every cached stage result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openCache(cmd.Context(), ctx.config.Cache.Path)
			if err != nil {
				return err
			}
			defer store.Close()
			defer store.Unlock()

			n, err := store.Count(cmd.Context())
			if err != nil {
				return err
			}
			err = store.Clean(cmd.Context())
			if err != nil {
				return err
			}
			ctx.logger.Info("cache cleaned", slog.String("path", store.Path()), slog.Int("results", n))

			return nil
		},
	}
}

func newCacheRunsCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List the latest pipeline executions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := cache.Open(cmd.Context(), ctx.config.Cache.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.Runs(cmd.Context(), limit)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				duration := ""
				if !run.FinishedAt.IsZero() {
					duration = run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
				}
				rows = append(rows, []string{
					run.ID,
					run.StartedAt.Local().Format(time.DateTime),
					duration,
					string(run.Status),
					strconv.Itoa(run.Scenes),
					strconv.Itoa(run.Records),
					run.Error,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Run", "Started", "Duration", "Status", "Scenes", "Records", "Error"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignRight, alignLeft},
			))

			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")

	return cmd
}
