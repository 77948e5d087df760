package cloudmetrics_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-cloudmetrics/pkg/cloudmetrics"
)

func TestWriteCSV(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		records  []cloudmetrics.Record
		expected string
	}{
		"empty": {
			expected: "scene_id,tile_x,tile_y,metric,value\n",
		},
		"untiled": {
			records: []cloudmetrics.Record{
				{SceneID: "a", Metric: "cloud_fraction", Value: 0.75},
				{SceneID: "b", Metric: "cloud_fraction", Value: 0},
			},
			expected: "scene_id,tile_x,tile_y,metric,value\na,,,cloud_fraction,0.75\nb,,,cloud_fraction,0\n",
		},
		"tiled": {
			records: []cloudmetrics.Record{
				{SceneID: "a", Tiled: true, TileX: 0, TileY: 32, Metric: "cloud_fraction", Value: 1.0 / 3},
			},
			expected: "scene_id,tile_x,tile_y,metric,value\na,0,32,cloud_fraction,0.3333333333333333\n",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			res := &cloudmetrics.Result{Records: tc.records}
			buf := &bytes.Buffer{}
			require.NoError(t, res.WriteCSV(buf))
			assert.Equal(t, tc.expected, buf.String())
		})
	}
}
