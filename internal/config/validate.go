package config

import (
	"github.com/pkg/errors"
)

var ErrInvalid = errors.New("invalid configuration")

// Validate checks that every value is usable.
func (c *Config) Validate() error {
	if c.Execution.Workers < 1 {
		return errors.Wrap(ErrInvalid, "execution.workers must be at least 1")
	}
	if c.Cache.Enabled && c.Cache.Path == "" {
		return errors.Wrap(ErrInvalid, "cache.path must be set when cache.enabled is true")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.Wrapf(ErrInvalid, "logging.level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "auto", "console", "json":
	default:
		return errors.Wrapf(ErrInvalid, "logging.format %q", c.Logging.Format)
	}

	if c.Mask.GreyscaleThreshold < 0 || c.Mask.GreyscaleThreshold > 1 {
		return errors.Wrap(ErrInvalid, "mask.greyscale_threshold must be between 0 and 1")
	}

	if opts, ok := c.Tile.Options(); ok {
		_, err := opts.Normalize()
		if err != nil {
			return errors.Wrapf(ErrInvalid, "tile: %v", err)
		}
	}

	return nil
}
