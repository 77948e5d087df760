package scene

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/askiada/go-cloudmetrics/pkg/field"
)

// DBFileName is the conventional name of a saved catalog.
const DBFileName = "scene_ids.yml"

// Catalog is an ordered set of scenes with unique identifiers.
type Catalog struct {
	opts   Options
	scenes []Scene
	byID   map[string]int
}

func NewCatalog(opts Options) *Catalog {
	return &Catalog{opts: opts, byID: make(map[string]int)}
}

// Add appends s. The identifier must be set and not already known.
func (c *Catalog) Add(s Scene) error {
	if s.ID == "" {
		return errors.Wrap(ErrEmptySceneID, s.Path)
	}
	if prev, ok := c.byID[s.ID]; ok {
		return errors.Wrapf(ErrDuplicateScene, "%q in %s and %s", s.ID, c.scenes[prev].Path, s.Path)
	}
	c.byID[s.ID] = len(c.scenes)
	c.scenes = append(c.scenes, s)

	return nil
}

func (c *Catalog) Len() int {
	return len(c.scenes)
}

// Scenes returns the scenes in discovery order.
func (c *Catalog) Scenes() []Scene {
	return append([]Scene(nil), c.scenes...)
}

func (c *Catalog) Get(id string) (Scene, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Scene{}, false
	}

	return c.scenes[i], true
}

// Load reads the data of s. The returned field carries the scene id attribute.
func (c *Catalog) Load(ctx context.Context, s Scene) (*field.Field, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		f   *field.Field
		err error
	)
	switch s.Kind {
	case KindImage:
		f, err = loadImage(s.Path)
	case KindNetCDF:
		f, err = c.loadNetCDF(s)
	default:
		err = errors.Wrapf(ErrUnsupportedFormat, "kind %q", s.Kind)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "unable to load scene %s", s.ID)
	}
	f.Attrs[field.AttrSceneID] = s.ID

	return f, nil
}

func (c *Catalog) loadNetCDF(s Scene) (*field.Field, error) {
	if c.opts.NetCDF == nil {
		return nil, ErrNoOpener
	}
	ds, err := c.opts.NetCDF(s.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open %s", s.Path)
	}
	defer ds.Close()

	f, err := ds.Field(s.Index)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read scene %d of %s", s.Index, s.Path)
	}
	if f.Attrs == nil {
		f.Attrs = make(map[string]string)
	}

	return f, nil
}

// Save writes the catalog as a YAML map of scene id to source, creating the
// parent directory when needed.
func (c *Catalog) Save(path string) error {
	entries := make(map[string]Scene, len(c.scenes))
	for _, s := range c.scenes {
		entries[s.ID] = s
	}

	b, err := yaml.Marshal(entries)
	if err != nil {
		return errors.Wrap(err, "unable to marshal scene catalog")
	}

	err = os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		return errors.Wrapf(err, "unable to create %s", filepath.Dir(path))
	}

	err = os.WriteFile(path, b, 0o644)
	if err != nil {
		return errors.Wrapf(err, "unable to write %s", path)
	}

	return nil
}

// LoadCatalog reads a catalog written by Save. Scenes are ordered by identifier.
func LoadCatalog(path string, opts Options) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read %s", path)
	}

	entries := map[string]Scene{}
	err = yaml.Unmarshal(b, &entries)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to parse %s", path)
	}

	ids := make([]string, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	cat := NewCatalog(opts)
	for _, id := range ids {
		s := entries[id]
		s.ID = id
		err := cat.Add(s)
		if err != nil {
			return nil, err
		}
	}

	return cat, nil
}
