// Package config loads replicore's runtime settings, mirroring the
// teacher's projectConfig/Rule load-and-verify pattern: JSON on disk, an
// environment variable override for the path, and a verify() pass that
// fills defaults and rejects nonsensical values.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"replicore/internal/telemetry"
)

// EnvOverride names the environment variable that, if set, overrides the
// default settings file path.
const EnvOverride = "REPLICORE_CONFIG"

const defaultPath = "config/session.json"

// Log mirrors the teacher's log block (moto/config.log), extended with the
// lumberjack rotation knobs internal/telemetry needs.
type Log struct {
	Level      string `json:"level"`
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
	Compress   bool   `json:"compress"`
}

// Session is replicore's top-level configuration: tick timing, the fixed
// budgets spec.md §6 names as defaults, and the ambient log block.
type Session struct {
	Log Log `json:"log"`

	// TickRateHz is the fixed simulation rate; when StepMillis is zero,
	// Step() derives the step duration from it.
	TickRateHz int   `json:"tick_rate_hz"`
	StepMillis int64 `json:"step_millis"`

	MTUBytes              int `json:"mtu_bytes"`
	MessageCeilingBytes   int `json:"message_ceiling_bytes"`
	RetainWindowTicks     int `json:"retain_window_ticks"`
	SendWindowTicks       int `json:"send_window_ticks"`
	RingHorizonTicks      int `json:"ring_horizon_ticks"`
	AckWindowTicks        int `json:"ack_window_ticks"`
	ResendHorizonTicks    int `json:"resend_horizon_ticks"`
	DefaultEstimateBytes  int `json:"default_estimate_bytes"`
}

// Default returns spec.md §6's default configuration.
func Default() *Session {
	return &Session{
		Log: Log{
			Level: "info",
		},
		TickRateHz:           32,
		MTUBytes:             1500,
		MessageCeilingBytes:  3000,
		RetainWindowTicks:    32,
		SendWindowTicks:      6,
		RingHorizonTicks:     32,
		AckWindowTicks:       32,
		ResendHorizonTicks:   32,
		DefaultEstimateBytes: 128,
	}
}

// Step returns the configured fixed timestep duration.
func (s *Session) Step() time.Duration {
	if s.StepMillis > 0 {
		return time.Duration(s.StepMillis) * time.Millisecond
	}
	if s.TickRateHz > 0 {
		return time.Second / time.Duration(s.TickRateHz)
	}
	return time.Second / 32
}

// verify fills in any zero-valued numeric field from the default and
// rejects configurations the rest of the system cannot run with.
func (s *Session) verify() error {
	d := Default()
	if s.TickRateHz == 0 && s.StepMillis == 0 {
		s.TickRateHz = d.TickRateHz
	}
	if s.MTUBytes == 0 {
		s.MTUBytes = d.MTUBytes
	}
	if s.MessageCeilingBytes == 0 {
		s.MessageCeilingBytes = d.MessageCeilingBytes
	}
	if s.RetainWindowTicks == 0 {
		s.RetainWindowTicks = d.RetainWindowTicks
	}
	if s.SendWindowTicks == 0 {
		s.SendWindowTicks = d.SendWindowTicks
	}
	if s.RingHorizonTicks == 0 {
		s.RingHorizonTicks = d.RingHorizonTicks
	}
	if s.AckWindowTicks == 0 {
		s.AckWindowTicks = d.AckWindowTicks
	}
	if s.ResendHorizonTicks == 0 {
		s.ResendHorizonTicks = d.ResendHorizonTicks
	}
	if s.DefaultEstimateBytes == 0 {
		s.DefaultEstimateBytes = d.DefaultEstimateBytes
	}
	if s.MTUBytes <= 0 {
		return fmt.Errorf("config: mtu_bytes must be positive")
	}
	if s.MessageCeilingBytes < s.MTUBytes {
		return fmt.Errorf("config: message_ceiling_bytes must be >= mtu_bytes")
	}
	return nil
}

// TelemetryConfig projects the Log block into the shape internal/telemetry
// expects, keeping that package free of a dependency on this one.
func (s *Session) TelemetryConfig() telemetry.LogConfig {
	return telemetry.LogConfig{
		Level:      s.Log.Level,
		Path:       s.Log.Path,
		MaxSizeMB:  s.Log.MaxSizeMB,
		MaxBackups: s.Log.MaxBackups,
		MaxAgeDays: s.Log.MaxAgeDays,
		Compress:   s.Log.Compress,
	}
}

// Load reads and verifies a Session from path. A missing file is not an
// error: Default() is returned instead, matching the teacher's tolerance
// for an absent settings file during local development.
func Load(path string) (*Session, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	cfg := Default()
	if err := json.Unmarshal(buf, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.verify(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// LoadDefaultPath loads from the path named by EnvOverride, falling back
// to defaultPath when unset.
func LoadDefaultPath() (*Session, error) {
	path := os.Getenv(EnvOverride)
	if path == "" {
		path = defaultPath
	}
	return Load(path)
}
