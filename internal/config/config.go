// Package config loads the cloudmetrics configuration file.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"

	"github.com/askiada/go-cloudmetrics/pkg/field"
)

// Execution controls how pipelines run.
type Execution struct {
	Workers   int    `toml:"workers"`
	GraphFile string `toml:"graph_file"`
}

// Cache controls the mask result cache.
type Cache struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Mask holds the parameters of the built-in greyscale mask.
type Mask struct {
	GreyscaleThreshold float64 `toml:"greyscale_threshold"`
}

// Tile configures tiling. A zero size disables it.
type Tile struct {
	Size   int    `toml:"size"`
	Stride int    `toml:"stride"`
	Offset string `toml:"offset"`
}

// Options returns the tiling options, or false when tiling is disabled.
func (t Tile) Options() (field.TileOptions, bool) {
	if t.Size == 0 {
		return field.TileOptions{}, false
	}

	return field.TileOptions{Size: t.Size, Stride: t.Stride, Offset: field.Offset(t.Offset)}, true
}

type Config struct {
	Execution Execution `toml:"execution"`
	Cache     Cache     `toml:"cache"`
	Logging   Logging   `toml:"logging"`
	Mask      Mask      `toml:"mask"`
	Tile      Tile      `toml:"tile"`
}

// Load reads the file at path on top of the defaults and validates the result.
// An empty path, or a path that does not exist, yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return &cfg, cfg.Validate()
	}

	path, err := ExpandPath(path)
	if err != nil {
		return nil, err
	}

	b, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		return &cfg, cfg.Validate()
	case err != nil:
		return nil, errors.Wrap(err, "unable to read config")
	}

	err = toml.Unmarshal(b, &cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to parse config %s", path)
	}

	cfg.Cache.Path, err = ExpandPath(cfg.Cache.Path)
	if err != nil {
		return nil, err
	}

	err = cfg.Validate()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes cfg to path as TOML.
func (c *Config) Save(path string) error {
	b, err := toml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "unable to marshal config")
	}

	err = os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		return errors.Wrap(err, "unable to create config directory")
	}

	return errors.Wrap(os.WriteFile(path, b, 0o644), "unable to write config")
}

// ExpandPath resolves a leading ~ to the home directory.
func ExpandPath(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "unable to resolve home directory")
	}

	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
