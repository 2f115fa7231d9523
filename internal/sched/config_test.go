package sched

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	for _, path := range []string{"", filepath.Join(t.TempDir(), "missing.yml")} {
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
	}

	cfg := DefaultConfig()
	assert.Equal(t, 10*time.Millisecond, cfg.DelayDuration())
	assert.Equal(t, 10, cfg.EventCount)
	assert.False(t, cfg.RandomCount)
	assert.False(t, cfg.Realistic)
	assert.Zero(t, cfg.SkipPackets)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
delay: 0.25
event_count: 2000
random_count: true
realistic: true
skip_packets: 7
log_interval: 2
seed: 11
run_id: bench-7
record_name: bank1
csv_log: events.csv
journal_path: pulses.db
debug_listen: 127.0.0.1:8099
`)
	want := Config{
		Delay:       0.25,
		EventCount:  2000,
		RandomCount: true,
		Realistic:   true,
		SkipPackets: 7,
		LogInterval: 2,
		Seed:        11,
		RunID:       "bench-7",
		RecordName:  "bank1",
		History:     1024,
		CSVLog:      "events.csv",
		JournalPath: "pulses.db",
		DebugListen: "127.0.0.1:8099",
	}
	got, err := Load(path)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Load mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_Clamps(t *testing.T) {
	path := writeConfig(t, `
delay: -1
event_count: -5
log_interval: 0
history: -2
record_name: ""
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.01, cfg.Delay)
	assert.Equal(t, 10, cfg.EventCount)
	assert.Equal(t, 10.0, cfg.LogInterval)
	assert.Equal(t, 1024, cfg.History)
	assert.Equal(t, "neutrons", cfg.RecordName)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_ZeroDelayAndCountAreLegal(t *testing.T) {
	cfg, err := Load(writeConfig(t, "delay: 0\nevent_count: 0\n"))
	require.NoError(t, err)
	assert.Zero(t, cfg.Delay)
	assert.Zero(t, cfg.EventCount)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_RejectsMalformedFile(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"wrong type", "delay: 5\nevent_count: ten\nrealistic: true\n"},
		{"unknown key", "delay: 5\nevent_cnt: 20\n"},
		{"broken yaml", "delay: [5\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.body)
			cfg, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "parse "+path)
			assert.Equal(t, DefaultConfig(), cfg, "a rejected file must not be partly applied")
		})
	}
}

func TestLoad_UnreadableFile(t *testing.T) {
	_, err := Load(t.TempDir())
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		mut  func(*Config)
	}{
		{"negative delay", func(c *Config) { c.Delay = -0.1 }},
		{"nan delay", func(c *Config) { c.Delay = math.NaN() }},
		{"infinite delay", func(c *Config) { c.Delay = math.Inf(1) }},
		{"negative count", func(c *Config) { c.EventCount = -1 }},
		{"zero log interval", func(c *Config) { c.LogInterval = 0 }},
		{"zero history", func(c *Config) { c.History = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mut(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
