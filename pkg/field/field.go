// Package field holds the in-memory representation of a scene: one or more 2D
// bands of float64 values with free-form string attributes.
package field

import (
	"encoding/json"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrNoBands      = errors.New("field has no bands")
	ErrBandMismatch = errors.New("bands must share the same dimensions")
)

// Attribute keys set by the pipeline.
const (
	AttrSceneID = "scene_id"
	AttrMaskFn  = "fn"
)

// Field is a stack of equally sized 2D bands. A field with a single band whose
// values are all 0 or 1 is a mask.
type Field struct {
	Name  string
	Bands []*mat.Dense
	Attrs map[string]string
}

// New creates a field from bands. All bands must have the same dimensions.
func New(name string, bands ...*mat.Dense) (*Field, error) {
	if len(bands) == 0 {
		return nil, ErrNoBands
	}
	rows, cols := bands[0].Dims()
	for i, band := range bands[1:] {
		r, c := band.Dims()
		if r != rows || c != cols {
			return nil, errors.Wrapf(ErrBandMismatch, "band %d is %dx%d, expected %dx%d", i+1, r, c, rows, cols)
		}
	}

	return &Field{
		Name:  name,
		Bands: bands,
		Attrs: make(map[string]string),
	}, nil
}

// Dims returns the number of rows and columns of the field.
func (f *Field) Dims() (int, int) {
	if f == nil || len(f.Bands) == 0 {
		return 0, 0
	}

	return f.Bands[0].Dims()
}

// IsMask reports whether the field is a single band of 0 and 1 values.
func (f *Field) IsMask() bool {
	if f == nil || len(f.Bands) != 1 {
		return false
	}
	raw := f.Bands[0].RawMatrix()
	for r := 0; r < raw.Rows; r++ {
		for _, v := range raw.Data[r*raw.Stride : r*raw.Stride+raw.Cols] {
			if v != 0 && v != 1 {
				return false
			}
		}
	}

	return true
}

// Clone returns a deep copy of the field.
func (f *Field) Clone() *Field {
	bands := make([]*mat.Dense, len(f.Bands))
	for i, band := range f.Bands {
		bands[i] = mat.DenseCopyOf(band)
	}
	attrs := make(map[string]string, len(f.Attrs))
	for k, v := range f.Attrs {
		attrs[k] = v
	}

	return &Field{Name: f.Name, Bands: bands, Attrs: attrs}
}

type encodedField struct {
	Name  string            `json:"name"`
	Attrs map[string]string `json:"attrs,omitempty"`
	Bands [][]byte          `json:"bands"`
}

// MarshalBinary encodes the field; bands use the gonum binary matrix format.
func (f *Field) MarshalBinary() ([]byte, error) {
	enc := encodedField{Name: f.Name, Attrs: f.Attrs, Bands: make([][]byte, len(f.Bands))}
	for i, band := range f.Bands {
		b, err := band.MarshalBinary()
		if err != nil {
			return nil, errors.Wrapf(err, "unable to marshal band %d", i)
		}
		enc.Bands[i] = b
	}

	b, err := json.Marshal(enc)
	if err != nil {
		return nil, errors.Wrap(err, "unable to marshal field")
	}

	return b, nil
}

// UnmarshalBinary decodes a field produced by MarshalBinary.
func (f *Field) UnmarshalBinary(data []byte) error {
	var enc encodedField
	err := json.Unmarshal(data, &enc)
	if err != nil {
		return errors.Wrap(err, "unable to unmarshal field")
	}

	bands := make([]*mat.Dense, len(enc.Bands))
	for i, b := range enc.Bands {
		band := &mat.Dense{}
		err := band.UnmarshalBinary(b)
		if err != nil {
			return errors.Wrapf(err, "unable to unmarshal band %d", i)
		}
		bands[i] = band
	}

	decoded, err := New(enc.Name, bands...)
	if err != nil {
		return err
	}
	for k, v := range enc.Attrs {
		decoded.Attrs[k] = v
	}
	*f = *decoded

	return nil
}
