package scene

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Options configures scene discovery.
type Options struct {
	// NetCDF opens netCDF sources. Without it netCDF files are rejected.
	NetCDF Opener
}

// Expand resolves sources into file paths. A source naming an existing file
// is kept as it is, even when its name holds a glob metacharacter. Other
// sources containing one are expanded.
func Expand(sources ...string) ([]string, error) {
	paths := []string{}
	for _, src := range sources {
		if !strings.ContainsAny(src, "*?[") || exists(src) {
			paths = append(paths, src)

			continue
		}
		matches, err := filepath.Glob(src)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid pattern %q", src)
		}
		sort.Strings(matches)
		paths = append(paths, matches...)
	}

	return paths, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)

	return err == nil
}

// Find resolves sources into a catalog of scenes.
func Find(ctx context.Context, opts Options, sources ...string) (*Catalog, error) {
	paths, err := Expand(sources...)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, errors.Wrapf(ErrNoScenes, "in %s", strings.Join(sources, ", "))
	}

	cat := NewCatalog(opts)
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		kind, err := KindOf(path)
		if err != nil {
			return nil, errors.Wrap(err, path)
		}

		switch kind {
		case KindImage:
			err = cat.Add(Scene{ID: IDFromImage(path), Path: path, Kind: kind})
		case KindNetCDF:
			err = cat.addNetCDF(path)
		}
		if err != nil {
			return nil, err
		}
	}

	if cat.Len() == 0 {
		return nil, ErrNoScenes
	}

	return cat, nil
}

func (c *Catalog) addNetCDF(path string) error {
	if c.opts.NetCDF == nil {
		return errors.Wrap(ErrNoOpener, path)
	}

	ds, err := c.opts.NetCDF(path)
	if err != nil {
		return errors.Wrapf(err, "unable to open %s", path)
	}
	defer ds.Close()

	ids, err := IDsFromDataset(ds)
	if err != nil {
		return errors.Wrap(err, path)
	}
	if len(ids) == 0 {
		return errors.Wrapf(ErrMissingIdentifier, "%s has no scenes", path)
	}

	for i, id := range ids {
		err := c.Add(Scene{ID: id, Path: path, Kind: KindNetCDF, Index: i})
		if err != nil {
			return err
		}
	}

	return nil
}
