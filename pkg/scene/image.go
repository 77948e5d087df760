package scene

import (
	"image"
	_ "image/jpeg" // jpeg decoder
	_ "image/png"  // png decoder
	"os"

	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"  // bmp decoder
	_ "golang.org/x/image/tiff" // tiff decoder
	"gonum.org/v1/gonum/mat"

	"github.com/askiada/go-cloudmetrics/pkg/field"
)

const maxChannel = 0xffff

// loadImage decodes an image into red, green and blue bands scaled to [0, 1].
// Row 0 of the bands is the top row of the image.
func loadImage(path string) (*field.Field, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open %s", path)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to decode %s", path)
	}

	return FromImage(IDFromImage(path), img)
}

// FromImage converts img into a three band field.
func FromImage(name string, img image.Image) (*field.Field, error) {
	bounds := img.Bounds()
	rows, cols := bounds.Dy(), bounds.Dx()
	if rows == 0 || cols == 0 {
		return nil, errors.Wrapf(field.ErrNoBands, "image %s is empty", name)
	}

	red := mat.NewDense(rows, cols, nil)
	green := mat.NewDense(rows, cols, nil)
	blue := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			r, g, b, _ := img.At(bounds.Min.X+j, bounds.Min.Y+i).RGBA()
			red.Set(i, j, float64(r)/maxChannel)
			green.Set(i, j, float64(g)/maxChannel)
			blue.Set(i, j, float64(b)/maxChannel)
		}
	}

	return field.New(name, red, green, blue)
}
