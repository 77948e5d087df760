package config

import "github.com/askiada/go-cloudmetrics/pkg/masks"

const (
	defaultWorkers   = 1
	defaultCachePath = ".cloudmetrics/cache.db"
	defaultLogLevel  = "info"
	defaultLogFormat = "auto"
)

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Execution: Execution{
			Workers: defaultWorkers,
		},
		Cache: Cache{
			Enabled: false,
			Path:    defaultCachePath,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
		Mask: Mask{
			GreyscaleThreshold: masks.DefaultGreyscaleThreshold,
		},
	}
}
