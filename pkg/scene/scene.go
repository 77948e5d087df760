package scene

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/go-cloudmetrics/pkg/field"
)

var (
	ErrNoScenes          = errors.New("no scenes found")
	ErrUnsupportedFormat = errors.New("unsupported source file format")
	ErrMissingIdentifier = errors.New("netCDF source should either have a `scene_id` or `time` coordinate defined")
	ErrDuplicateScene    = errors.New("scene id already exists")
	ErrEmptySceneID      = errors.New("scene id must not be empty")
	ErrNoOpener          = errors.New("no opener configured for netCDF sources")
	ErrSceneIndex        = errors.New("scene index out of range")
)

// Kind is the family of a source file.
type Kind string

const (
	KindImage  Kind = "image"
	KindNetCDF Kind = "netcdf"
)

var extensions = map[string]Kind{
	"png":  KindImage,
	"jpg":  KindImage,
	"jpeg": KindImage,
	"tif":  KindImage,
	"tiff": KindImage,
	"bmp":  KindImage,
	"nc":   KindNetCDF,
	"nc4":  KindNetCDF,
}

// KindOf returns the kind of path from its extension.
func KindOf(path string) (Kind, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	kind, ok := extensions[ext]
	if !ok {
		return "", errors.Wrapf(ErrUnsupportedFormat, "%q", filepath.Ext(path))
	}

	return kind, nil
}

// Scene is one 2D dataset. Index is the position of the scene along the scene
// dimension of its netCDF file and is always 0 for images.
type Scene struct {
	ID    string `yaml:"-"`
	Path  string `yaml:"path"`
	Kind  Kind   `yaml:"kind"`
	Index int    `yaml:"index,omitempty"`
}

// Source identifies the content the scene is read from: the absolute path
// and index, plus the size and modification time of the file.
func (s Scene) Source() (string, error) {
	abs, err := filepath.Abs(s.Path)
	if err != nil {
		return "", errors.Wrapf(err, "unable to resolve %s", s.Path)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", errors.Wrapf(err, "unable to stat %s", s.Path)
	}

	return fmt.Sprintf("%s#%d@%d:%d", abs, s.Index, info.Size(), info.ModTime().UnixNano()), nil
}

// Names of the netCDF variables used to identify scenes.
const (
	VarSceneID = "scene_id"
	VarTime    = "time"
)

// TimeFormat is the layout of identifiers derived from a time coordinate (YYYYMMDDhhmm).
const TimeFormat = "200601021504"

// Dataset is an opened netCDF source.
type Dataset interface {
	// Has reports whether the dataset defines variable.
	Has(variable string) bool
	// Strings returns the values of a 1D variable as strings.
	Strings(variable string) ([]string, error)
	// Times returns the values of a 1D time coordinate.
	Times(variable string) ([]time.Time, error)
	// Field returns the data of the scene at index along the scene dimension.
	Field(index int) (*field.Field, error)
	Close() error
}

// Opener opens the netCDF file at path.
type Opener func(path string) (Dataset, error)

// IDFromImage returns the identifier of an image: its filename stem.
func IDFromImage(path string) string {
	base := filepath.Base(path)

	return strings.TrimSuffix(base, filepath.Ext(base))
}

// IDsFromDataset returns one identifier per scene of ds, in dataset order.
func IDsFromDataset(ds Dataset) ([]string, error) {
	switch {
	case ds.Has(VarSceneID):
		ids, err := ds.Strings(VarSceneID)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to read %s", VarSceneID)
		}

		return ids, nil
	case ds.Has(VarTime):
		times, err := ds.Times(VarTime)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to read %s", VarTime)
		}
		ids := make([]string, len(times))
		for i, t := range times {
			ids[i] = t.UTC().Format(TimeFormat)
		}

		return ids, nil
	default:
		return nil, ErrMissingIdentifier
	}
}
