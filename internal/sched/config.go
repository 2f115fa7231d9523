package sched

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"time"

	yaml "github.com/goccy/go-yaml"
)

// Config mirrors config.yml.
type Config struct {
	Delay       float64 `yaml:"delay"`        // seconds between pulses, 0.01 by default
	EventCount  int     `yaml:"event_count"`  // events per pulse, 10 by default
	RandomCount bool    `yaml:"random_count"` // draw each pulse's count from [0, event_count)
	Realistic   bool    `yaml:"realistic"`    // distribution-shaped events instead of constants
	SkipPackets uint64  `yaml:"skip_packets"` // drop every Nth pulse, 0 disables
	LogInterval float64 `yaml:"log_interval"` // seconds between progress reports, 10 by default
	Seed        uint64  `yaml:"seed"`         // random seed, 0 picks one from the clock
	RunID       string  `yaml:"run_id"`       // tags events and journal rows, a UUID when empty

	RecordName  string `yaml:"record_name"`  // name of the published record
	History     int    `yaml:"history"`      // pulse ids kept for gap detection
	CSVLog      string `yaml:"csv_log"`      // optional CSV event log path
	JournalPath string `yaml:"journal_path"` // optional SQLite journal path
	DebugListen string `yaml:"debug_listen"` // optional debug HTTP listen address
}

// DefaultConfig is used when no config file is given.
func DefaultConfig() Config {
	return Config{
		Delay:       0.01,
		EventCount:  10,
		LogInterval: 10,
		RecordName:  "neutrons",
		History:     1024,
	}
}

// Load reads YAML and overrides defaults; empty path = defaults only.
// A missing file falls back to the defaults, out of range values are
// clamped. Unreadable files, malformed values and unknown keys are errors.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.UnmarshalWithOptions(data, &cfg, yaml.Strict()); err != nil {
		return DefaultConfig(), fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg.sanitize(), nil
}

// sanitize clamps fields into their legal range.
func (c Config) sanitize() Config {
	def := DefaultConfig()
	if c.Delay < 0 || math.IsNaN(c.Delay) || math.IsInf(c.Delay, 0) {
		c.Delay = def.Delay
	}
	if c.EventCount < 0 {
		c.EventCount = def.EventCount
	}
	if c.LogInterval <= 0 || math.IsNaN(c.LogInterval) {
		c.LogInterval = def.LogInterval
	}
	if c.RecordName == "" {
		c.RecordName = def.RecordName
	}
	if c.History <= 0 {
		c.History = def.History
	}
	return c
}

// Validate rejects values the pacing loop cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Delay < 0 || math.IsNaN(c.Delay) || math.IsInf(c.Delay, 0) {
		errs = append(errs, fmt.Errorf("delay must be a finite number of seconds >= 0, got %v", c.Delay))
	}
	if c.EventCount < 0 {
		errs = append(errs, fmt.Errorf("event_count must be >= 0, got %d", c.EventCount))
	}
	if c.LogInterval <= 0 || math.IsNaN(c.LogInterval) {
		errs = append(errs, fmt.Errorf("log_interval must be > 0, got %v", c.LogInterval))
	}
	if c.History <= 0 {
		errs = append(errs, fmt.Errorf("history must be > 0, got %d", c.History))
	}
	return errors.Join(errs...)
}

// DelayDuration converts Delay to a time.Duration.
func (c Config) DelayDuration() time.Duration {
	return secondsToDuration(c.Delay)
}

// LogEvery converts LogInterval to a time.Duration.
func (c Config) LogEvery() time.Duration {
	return secondsToDuration(c.LogInterval)
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
