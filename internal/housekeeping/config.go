package housekeeping

import (
	"time"
)

// Config controls the housekeeping cadence and per-job timeouts.
type Config struct {
	RunInterval  time.Duration
	PurgeTimeout time.Duration
	SweepTimeout time.Duration
	EnabledJobs  []string
}

func DefaultConfig() Config {
	return Config{
		RunInterval:  10 * time.Minute,
		PurgeTimeout: 30 * time.Second,
		SweepTimeout: 10 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.PurgeTimeout <= 0 {
		c.PurgeTimeout = defaults.PurgeTimeout
	}
	if c.SweepTimeout <= 0 {
		c.SweepTimeout = defaults.SweepTimeout
	}
	return c
}
