// Package masks turns scene fields into cloud masks.
package masks

import (
	"context"
	"strconv"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/askiada/go-cloudmetrics/pkg/field"
)

var ErrBands = errors.New("unsupported number of bands")

// Params are the extra parameters bound to a mask function. They are part of the
// stage identifier, so two masks with different parameters never share results.
type Params map[string]string

// Float returns the parameter name parsed as a float, or def when it is unset.
func (p Params) Float(name string, def float64) (float64, error) {
	raw, ok := p[name]
	if !ok || raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid %s parameter %q", name, raw)
	}

	return v, nil
}

// Func computes a mask from a scene. The returned field must be a mask.
type Func func(ctx context.Context, scene *field.Field, params Params) (*field.Field, error)

const (
	GreyscaleThresholdName    = "rgb_greyscale_mask"
	GreyscaleThresholdParam   = "greyscale_threshold"
	DefaultGreyscaleThreshold = 0.2
)

// luminance weights of the ITU-R BT.709 conversion used for true colour imagery.
const (
	redWeight   = 0.2125
	greenWeight = 0.7154
	blueWeight  = 0.0721
)

// GreyscaleThreshold is a poor man's cloud mask: cells brighter than the
// greyscale_threshold parameter (default 0.2) are cloudy. RGB scenes are
// converted to greyscale first, single band scenes are thresholded directly.
func GreyscaleThreshold(_ context.Context, scene *field.Field, params Params) (*field.Field, error) {
	threshold, err := params.Float(GreyscaleThresholdParam, DefaultGreyscaleThreshold)
	if err != nil {
		return nil, err
	}

	var grey *mat.Dense
	switch n := len(scene.Bands); {
	case n == 1:
		grey = scene.Bands[0]
	case n >= 3:
		rows, cols := scene.Dims()
		grey = mat.NewDense(rows, cols, nil)
		grey.Apply(func(i, j int, _ float64) float64 {
			return redWeight*scene.Bands[0].At(i, j) +
				greenWeight*scene.Bands[1].At(i, j) +
				blueWeight*scene.Bands[2].At(i, j)
		}, grey)
	default:
		return nil, errors.Wrapf(ErrBands, "greyscale mask needs 1 or at least 3 bands, got %d", n)
	}

	rows, cols := grey.Dims()
	mask := mat.NewDense(rows, cols, nil)
	mask.Apply(func(i, j int, _ float64) float64 {
		if grey.At(i, j) > threshold {
			return 1
		}

		return 0
	}, mask)

	return field.New("mask", mask)
}
