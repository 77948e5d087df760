// Package cloudmetrics describes scene processing pipelines and executes them.
//
// A Pipeline is an immutable value. FindScenes starts one from a set of source
// files and every builder method returns a new Pipeline with one more stage,
// leaving the receiver untouched, so a common base can be branched into
// parameter variants:
//
//	base := cloudmetrics.FindScenes("data/*.png")
//	low := base.Mask(masks.GreyscaleThresholdName, masks.GreyscaleThreshold, masks.Params{"greyscale_threshold": "0.2"})
//	high := base.Mask(masks.GreyscaleThresholdName, masks.GreyscaleThreshold, masks.Params{"greyscale_threshold": "0.4"})
//	res, err := low.ComputeMetrics("cloud_fraction").Execute(ctx, cloudmetrics.WithWorkers(4))
//
// Nothing is read until Execute is called. Execute resolves the scenes, runs
// every stage on every scene concurrently and returns one record per scene,
// tile and metric.
package cloudmetrics
