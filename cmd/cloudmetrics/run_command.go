package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/askiada/go-cloudmetrics/internal/cache"
	"github.com/askiada/go-cloudmetrics/internal/config"
	"github.com/askiada/go-cloudmetrics/pkg/cloudmetrics"
	"github.com/askiada/go-cloudmetrics/pkg/masks"
	"github.com/askiada/go-cloudmetrics/pkg/metrics"
	"github.com/askiada/go-cloudmetrics/pkg/pipeline/measure"
)

var errCleanWithoutCache = errors.New("--clean cannot be used while the cache is disabled")

type runFlags struct {
	metrics   []string
	threshold float64
	tileSize  int
	stride    int
	offset    string
	workers   int
	clean     bool
	noCache   bool
	csv       string
	graph     string
	timings   bool
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run <source>...",
		Short: "Mask the scenes of the sources and compute metrics on them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := *ctx.config
			flags.apply(cmd, &cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			if flags.clean && !cfg.Cache.Enabled {
				return errCleanWithoutCache
			}

			return runPipeline(cmd.Context(), cmd.OutOrStdout(), ctx.logger, &cfg, flags, args)
		},
	}

	cmd.Flags().StringSliceVar(&flags.metrics, "metrics", []string{metrics.CloudFraction}, "Metrics to compute")
	cmd.Flags().Float64Var(&flags.threshold, "threshold", masks.DefaultGreyscaleThreshold, "Greyscale threshold of the mask")
	cmd.Flags().IntVar(&flags.tileSize, "tile", 0, "Window size, 0 disables tiling")
	cmd.Flags().IntVar(&flags.stride, "stride", 0, "Window stride, defaults to the window size")
	cmd.Flags().StringVar(&flags.offset, "offset", "", "Window offset (stride_center or none)")
	cmd.Flags().IntVarP(&flags.workers, "workers", "w", 1, "Number of scenes processed at once")
	cmd.Flags().BoolVar(&flags.clean, "clean", false, "Empty the cache before running")
	cmd.Flags().BoolVar(&flags.noCache, "no-cache", false, "Do not use the cache")
	cmd.Flags().StringVar(&flags.csv, "csv", "", "Write the records to this CSV file, - for stdout")
	cmd.Flags().StringVar(&flags.graph, "graph", "", "Draw the executed task graph to this DOT file")
	cmd.Flags().BoolVar(&flags.timings, "timings", false, "Print the time spent in every step")

	return cmd
}

// apply overrides cfg with the flags set on the command line.
func (f *runFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("threshold") {
		cfg.Mask.GreyscaleThreshold = f.threshold
	}
	if changed("tile") {
		cfg.Tile.Size = f.tileSize
	}
	if changed("stride") {
		cfg.Tile.Stride = f.stride
	}
	if changed("offset") {
		cfg.Tile.Offset = f.offset
	}
	if changed("workers") {
		cfg.Execution.Workers = f.workers
	}
	if changed("graph") {
		cfg.Execution.GraphFile = f.graph
	}
	if f.noCache {
		cfg.Cache.Enabled = false
	}
}

func buildPipeline(cfg *config.Config, metricNames []string, sources []string) cloudmetrics.Pipeline {
	pipe := cloudmetrics.FindScenes(sources...).
		Mask(masks.GreyscaleThresholdName, masks.GreyscaleThreshold, masks.Params{
			masks.GreyscaleThresholdParam: strconv.FormatFloat(cfg.Mask.GreyscaleThreshold, 'g', -1, 64),
		})
	if opts, ok := cfg.Tile.Options(); ok {
		pipe = pipe.Tile(opts)
	}

	return pipe.ComputeMetrics(metricNames...)
}

func runPipeline(ctx context.Context, out io.Writer, logger *slog.Logger, cfg *config.Config, flags *runFlags, sources []string) (err error) {
	pipe := buildPipeline(cfg, flags.metrics, sources)
	if err := pipe.Err(); err != nil {
		return err
	}

	msr := measure.NewDefaultMeasure()
	opts := []cloudmetrics.ExecuteOption{
		cloudmetrics.WithWorkers(cfg.Execution.Workers),
		cloudmetrics.WithLogger(logger),
		cloudmetrics.WithMeasure(msr),
	}
	if cfg.Execution.GraphFile != "" {
		opts = append(opts, cloudmetrics.WithGraphFile(cfg.Execution.GraphFile))
	}

	var store *cache.Store
	runID := uuid.NewString()
	if cfg.Cache.Enabled {
		store, err = openCache(ctx, cfg.Cache.Path)
		if err != nil {
			return err
		}
		defer func() {
			if unlockErr := store.Unlock(); unlockErr != nil && err == nil {
				err = unlockErr
			}
			_ = store.Close()
		}()

		err = store.BeginRun(ctx, runID)
		if err != nil {
			return err
		}
		opts = append(opts, cloudmetrics.WithCache(store))
		if flags.clean {
			opts = append(opts, cloudmetrics.WithClean())
		}
	}

	logger.Info("run started", slog.String("run_id", runID))
	res, runErr := pipe.Execute(ctx, opts...)
	if store != nil {
		var id string
		var scenes, records int
		if res != nil {
			id, scenes, records = res.ID, len(res.Scenes), len(res.Records)
		}
		// the run context may be cancelled already
		finishErr := store.FinishRun(context.WithoutCancel(ctx), runID, id, scenes, records, runErr)
		if finishErr != nil {
			logger.Warn("unable to record run outcome", slog.String("run_id", runID), slog.Any("error", finishErr))
		}
	}
	if runErr != nil {
		return runErr
	}

	err = writeRecords(out, res, flags.csv)
	if err != nil {
		return err
	}
	if flags.timings {
		fmt.Fprintln(out, renderTimings(measure.Summary(msr)))
	}

	return nil
}

func openCache(ctx context.Context, path string) (*cache.Store, error) {
	store, err := cache.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	err = store.Lock(ctx)
	if err != nil {
		_ = store.Close()

		return nil, err
	}

	return store, nil
}

func writeRecords(out io.Writer, res *cloudmetrics.Result, csvPath string) error {
	switch csvPath {
	case "":
		fmt.Fprintln(out, renderRecords(res))
		fmt.Fprintf(out, "pipeline %s: %d scenes, %d records\n", res.ID, len(res.Scenes), len(res.Records))

		return nil
	case "-":
		return res.WriteCSV(out)
	}

	f, err := os.Create(csvPath)
	if err != nil {
		return errors.Wrap(err, "unable to create csv file")
	}
	defer f.Close()

	err = res.WriteCSV(f)
	if err != nil {
		return err
	}

	return errors.Wrap(f.Close(), "unable to close csv file")
}

func renderRecords(res *cloudmetrics.Result) string {
	rows := make([][]string, 0, len(res.Records))
	for _, rec := range res.Records {
		tile := ""
		if rec.Tiled {
			tile = fmt.Sprintf("%d,%d", rec.TileX, rec.TileY)
		}
		rows = append(rows, []string{rec.SceneID, tile, rec.Metric, strconv.FormatFloat(rec.Value, 'f', 4, 64)})
	}

	return renderTable(
		[]string{"Scene", "Tile", "Metric", "Value"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
	)
}

func renderTimings(summary []measure.StepSummary) string {
	rows := make([][]string, 0, len(summary))
	for _, s := range summary {
		rows = append(rows, []string{
			s.Name,
			strconv.FormatInt(s.Count, 10),
			strconv.Itoa(s.Concurrent),
			s.Average.String(),
			s.Total.String(),
		})
	}

	return renderTable(
		[]string{"Step", "Count", "Workers", "Average", "Total"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight},
	)
}
