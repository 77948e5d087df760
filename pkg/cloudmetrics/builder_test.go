package cloudmetrics_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/askiada/go-cloudmetrics/pkg/cloudmetrics"
	"github.com/askiada/go-cloudmetrics/pkg/field"
	"github.com/askiada/go-cloudmetrics/pkg/masks"
	"github.com/askiada/go-cloudmetrics/pkg/metrics"
)

func greyscale(threshold string) masks.Params {
	return masks.Params{masks.GreyscaleThresholdParam: threshold}
}

func TestIdentifiers(t *testing.T) {
	t.Parallel()

	p := cloudmetrics.FindScenes("data/*.png").
		Mask(masks.GreyscaleThresholdName, masks.GreyscaleThreshold, greyscale("0.2")).
		Tile(field.TileOptions{Size: 2}).
		ComputeMetrics(metrics.CloudFraction)
	require.NoError(t, p.Err())

	assert.Equal(t, []string{
		"mask__greyscale_threshold=0.2__rgb_greyscale_mask",
		"tile__window_offset=stride_center__window_size=2__window_stride=2",
		"metrics__cloud_fraction",
	}, p.Identifiers())
	assert.Equal(t, []string{"data/*.png"}, p.Sources())

	stages := p.Stages()
	require.Len(t, stages, 3)
	assert.Equal(t, cloudmetrics.KindMask, stages[0].Kind())
	assert.Equal(t, masks.GreyscaleThresholdName, stages[0].FnName())
	assert.Equal(t, map[string]string{masks.GreyscaleThresholdParam: "0.2"}, stages[0].Params())
	assert.Equal(t, cloudmetrics.KindTile, stages[1].Kind())
	assert.Equal(t, cloudmetrics.KindMetrics, stages[2].Kind())
	assert.Equal(t, []string{metrics.CloudFraction}, stages[2].Metrics())
}

func TestBranching(t *testing.T) {
	t.Parallel()

	base := cloudmetrics.FindScenes("a.png")
	low := base.Mask(masks.GreyscaleThresholdName, masks.GreyscaleThreshold, greyscale("0.2"))
	high := base.Mask(masks.GreyscaleThresholdName, masks.GreyscaleThreshold, greyscale("0.9"))

	tiled := low.Tile(field.TileOptions{Size: 4})
	tiledMetrics := tiled.ComputeMetrics(metrics.CloudFraction)
	tiledMask := tiled.Mask("again", masks.GreyscaleThreshold, nil)
	lowMetrics := low.ComputeMetrics(metrics.CloudFraction)

	for _, p := range []cloudmetrics.Pipeline{base, low, high, tiled, tiledMetrics, tiledMask, lowMetrics} {
		require.NoError(t, p.Err())
	}

	assert.Empty(t, base.Identifiers())
	assert.Equal(t, []string{"mask__greyscale_threshold=0.2__rgb_greyscale_mask"}, low.Identifiers())
	assert.Equal(t, []string{"mask__greyscale_threshold=0.9__rgb_greyscale_mask"}, high.Identifiers())
	assert.Equal(t, []string{
		"mask__greyscale_threshold=0.2__rgb_greyscale_mask",
		"tile__window_offset=stride_center__window_size=4__window_stride=4",
	}, tiled.Identifiers())
	assert.Equal(t, "metrics__cloud_fraction", tiledMetrics.Identifiers()[2])
	assert.Equal(t, "mask__again", tiledMask.Identifiers()[2])
	assert.Equal(t, []string{
		"mask__greyscale_threshold=0.2__rgb_greyscale_mask",
		"metrics__cloud_fraction",
	}, lowMetrics.Identifiers())
}

func TestMaskParamsAreCopied(t *testing.T) {
	t.Parallel()

	params := greyscale("0.2")
	p := cloudmetrics.FindScenes("a.png").Mask(masks.GreyscaleThresholdName, masks.GreyscaleThreshold, params)
	params[masks.GreyscaleThresholdParam] = "0.5"

	stage := p.Stages()[0]
	stage.Params()[masks.GreyscaleThresholdParam] = "0.7"

	assert.Equal(t, "mask__greyscale_threshold=0.2__rgb_greyscale_mask", p.Identifiers()[0])
}

func TestBuilderErrors(t *testing.T) {
	t.Parallel()

	mask := func(p cloudmetrics.Pipeline) cloudmetrics.Pipeline {
		return p.Mask(masks.GreyscaleThresholdName, masks.GreyscaleThreshold, nil)
	}

	tcs := map[string]struct {
		build       func() cloudmetrics.Pipeline
		expectedErr error
	}{
		"no sources": {
			build:       func() cloudmetrics.Pipeline { return cloudmetrics.FindScenes() },
			expectedErr: cloudmetrics.ErrNoSources,
		},
		"nil mask": {
			build:       func() cloudmetrics.Pipeline { return cloudmetrics.FindScenes("a.png").Mask("nothing", nil, nil) },
			expectedErr: cloudmetrics.ErrNilMask,
		},
		"no metrics": {
			build:       func() cloudmetrics.Pipeline { return mask(cloudmetrics.FindScenes("a.png")).ComputeMetrics() },
			expectedErr: cloudmetrics.ErrNoMetrics,
		},
		"unknown metric": {
			build:       func() cloudmetrics.Pipeline { return mask(cloudmetrics.FindScenes("a.png")).ComputeMetrics("iorg") },
			expectedErr: metrics.ErrUnknownMetric,
		},
		"stage after metrics": {
			build: func() cloudmetrics.Pipeline {
				return mask(cloudmetrics.FindScenes("a.png")).ComputeMetrics(metrics.CloudFraction).Tile(field.TileOptions{Size: 2})
			},
			expectedErr: cloudmetrics.ErrStageAfterMetrics,
		},
		"tiled twice": {
			build: func() cloudmetrics.Pipeline {
				return cloudmetrics.FindScenes("a.png").Tile(field.TileOptions{Size: 2}).Tile(field.TileOptions{Size: 1})
			},
			expectedErr: cloudmetrics.ErrAlreadyTiled,
		},
		"invalid tile": {
			build:       func() cloudmetrics.Pipeline { return cloudmetrics.FindScenes("a.png").Tile(field.TileOptions{}) },
			expectedErr: field.ErrTileSize,
		},
		"first error sticks": {
			build: func() cloudmetrics.Pipeline {
				return cloudmetrics.FindScenes("a.png").Mask("nothing", nil, nil).ComputeMetrics("iorg").Tile(field.TileOptions{})
			},
			expectedErr: cloudmetrics.ErrNilMask,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			p := tc.build()
			require.ErrorIs(t, p.Err(), tc.expectedErr)

			_, err := p.Execute(t.Context())
			require.ErrorIs(t, err, tc.expectedErr)
		})
	}
}

func TestWithRegistry(t *testing.T) {
	t.Parallel()

	reg := metrics.Default()
	require.NoError(t, reg.Register("iorg", func(mat.Matrix) (float64, error) { return 0.5, nil }))

	p := cloudmetrics.FindScenes("a.png").WithRegistry(reg).ComputeMetrics("iorg", metrics.CloudFraction)
	require.NoError(t, p.Err())
	assert.Equal(t, "metrics__iorg,cloud_fraction", p.Identifiers()[0])

	require.ErrorIs(t, p.WithRegistry(nil).Err(), metrics.ErrUnknownMetric)
	require.NoError(t, p.Err())
}

func TestZeroPipeline(t *testing.T) {
	t.Parallel()

	var p cloudmetrics.Pipeline
	p = p.Mask(masks.GreyscaleThresholdName, masks.GreyscaleThreshold, nil).ComputeMetrics(metrics.CloudFraction)
	require.NoError(t, p.Err())

	_, err := p.Execute(t.Context())
	require.ErrorIs(t, err, cloudmetrics.ErrNoSources)
}
