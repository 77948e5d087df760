package field

import (
	"strconv"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Offset selects where the first window of a tiling starts.
type Offset string

const (
	// OffsetStrideCenter centres every window inside its stride. It requires
	// Stride >= Size.
	OffsetStrideCenter Offset = "stride_center"
	// OffsetNone starts the first window at the origin.
	OffsetNone Offset = "none"
)

var (
	ErrTileSize   = errors.New("window size must be greater than 0")
	ErrTileStride = errors.New("stride_center requires window stride >= window size")
	ErrTileOffset = errors.New("unknown window offset")
)

// TileOptions configures a sliding window tiling.
type TileOptions struct {
	Size   int
	Stride int
	Offset Offset
}

// Normalize fills the defaults: Stride falls back to Size and Offset to
// OffsetStrideCenter.
func (o TileOptions) Normalize() (TileOptions, error) {
	if o.Size <= 0 {
		return o, ErrTileSize
	}
	if o.Stride <= 0 {
		o.Stride = o.Size
	}
	if o.Offset == "" {
		o.Offset = OffsetStrideCenter
	}

	switch o.Offset {
	case OffsetStrideCenter:
		if o.Stride < o.Size {
			return o, ErrTileStride
		}
	case OffsetNone:
	default:
		return o, errors.Wrap(ErrTileOffset, string(o.Offset))
	}

	return o, nil
}

func (o TileOptions) start() int {
	if o.Offset == OffsetStrideCenter {
		return (o.Stride - o.Size) / 2
	}

	return 0
}

// Params returns the options as the parameters recorded on a pipeline stage.
func (o TileOptions) Params() map[string]string {
	return map[string]string{
		"window_size":   strconv.Itoa(o.Size),
		"window_stride": strconv.Itoa(o.Stride),
		"window_offset": string(o.Offset),
	}
}

// Window is one tile of a field. X and Y are the row and column where the
// window starts in the source field.
type Window struct {
	X, Y  int
	Field *Field
}

// Tile cuts f into Size x Size windows, one every Stride cells along both axes.
// Windows that would overflow the field are dropped.
func Tile(f *Field, opts TileOptions) ([]Window, error) {
	opts, err := opts.Normalize()
	if err != nil {
		return nil, err
	}
	if f == nil || len(f.Bands) == 0 {
		return nil, ErrNoBands
	}

	rows, cols := f.Dims()
	offset := opts.start()
	windows := []Window{}
	for x := offset; x+opts.Size <= rows; x += opts.Stride {
		for y := offset; y+opts.Size <= cols; y += opts.Stride {
			bands := make([]*mat.Dense, len(f.Bands))
			for i, band := range f.Bands {
				bands[i] = mat.DenseCopyOf(band.Slice(x, x+opts.Size, y, y+opts.Size))
			}
			tile := &Field{Name: f.Name, Bands: bands, Attrs: make(map[string]string, len(f.Attrs))}
			for k, v := range f.Attrs {
				tile.Attrs[k] = v
			}
			windows = append(windows, Window{X: x, Y: y, Field: tile})
		}
	}

	return windows, nil
}
