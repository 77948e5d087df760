package cloudmetrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-cloudmetrics/pkg/masks"
	"github.com/askiada/go-cloudmetrics/pkg/metrics"
	"github.com/askiada/go-cloudmetrics/pkg/scene"
)

func TestTaskHash(t *testing.T) {
	t.Parallel()

	assert.Equal(t, taskHash([]string{"a/x", "b/x"}), taskHash([]string{"b/x", "a/x"}))
	assert.NotEqual(t, taskHash([]string{"a/x"}), taskHash([]string{"a/y"}))
	assert.Len(t, taskHash(nil), 32)
}

func TestTaskKeys(t *testing.T) {
	t.Parallel()

	tk := task{scene: scene.Scene{ID: "rico"}}
	assert.Equal(t, "rico", tk.name())
	assert.Equal(t, "mask__fn", tk.next("mask__fn"))

	tk.key, tk.tiled, tk.x, tk.y = "tile__window_size=2[2,4]", true, 2, 4
	assert.Equal(t, "rico[2,4]", tk.name())
	assert.Equal(t, "tile__window_size=2[2,4]/mask__fn", tk.next("mask__fn"))
}

func TestMetricIdentifier(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "metric__iorg", metricIdentifier("iorg"))
}

func TestPipelineID(t *testing.T) {
	t.Parallel()

	cat := scene.NewCatalog(scene.Options{})
	require.NoError(t, cat.Add(scene.Scene{ID: "a", Path: "a.png", Kind: scene.KindImage}))
	require.NoError(t, cat.Add(scene.Scene{ID: "b", Path: "b.png", Kind: scene.KindImage}))

	masked := FindScenes("*.png").Mask(masks.GreyscaleThresholdName, masks.GreyscaleThreshold, nil)
	withMetrics := masked.ComputeMetrics(metrics.CloudFraction)

	chain := "mask__rgb_greyscale_mask"
	assert.Equal(t, taskHash([]string{"b/" + chain, "a/" + chain}), masked.pipelineID(cat))
	assert.Equal(t, taskHash([]string{
		"a/" + chain + "/metrics__cloud_fraction/metric__cloud_fraction",
		"b/" + chain + "/metrics__cloud_fraction/metric__cloud_fraction",
	}), withMetrics.pipelineID(cat))
}
