package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// -------------------- Configuration --------------------

// SerialConfig locates the MCU streaming ribbon samples.
type SerialConfig struct {
	Device string `yaml:"device"`
	Baud   int    `yaml:"baud"`
}

// MIDIConfig controls port selection.
type MIDIConfig struct {
	// Inputs matching any of these patterns are picked first.
	PreferredInputs []string `yaml:"preferred_inputs"`
	// Inputs matching any of these are never auto-connected.
	ExcludedInputs []string `yaml:"excluded_inputs"`
	// Output port name pattern; empty picks the first available port.
	Output string `yaml:"output"`
}

// RibbonConfig holds the filter tuning. The defaults were tuned against a
// 12-bit ADC; rescale the thresholds if the sensor resolution changes.
type RibbonConfig struct {
	Smoothing        float64 `yaml:"smoothing"`         // EMA weight of each new sample
	SlopeThreshold   float64 `yaml:"slope_threshold"`   // max lagged slope accepted
	ContactThreshold float64 `yaml:"contact_threshold"` // position above which the ribbon counts as touched
	HistoryDepth     int     `yaml:"history_depth"`     // slope filter lag, in samples
}

// BendConfig holds the pitch-bend emission tuning.
type BendConfig struct {
	Scale      float64 `yaml:"scale"`       // bend units per position unit
	ThrottleMS int     `yaml:"throttle_ms"` // minimum interval between bend sends
}

type Config struct {
	Serial     SerialConfig `yaml:"serial"`
	MIDI       MIDIConfig   `yaml:"midi"`
	TickMS     int          `yaml:"tick_ms"`
	NotePolicy NotePolicy   `yaml:"note_policy"`
	Ribbon     RibbonConfig `yaml:"ribbon"`
	Bend       BendConfig   `yaml:"bend"`
}

// DefaultConfig returns the stock tuning.
func DefaultConfig() *Config {
	return &Config{
		Serial: SerialConfig{
			Device: "/dev/ttyACM0",
			Baud:   115200,
		},
		MIDI: MIDIConfig{
			ExcludedInputs: []string{"Midi Through", "Through Port", "Dummy"},
		},
		TickMS:     1,
		NotePolicy: PolicyMostRecent,
		Ribbon: RibbonConfig{
			Smoothing:        0.05,
			SlopeThreshold:   1.0,
			ContactThreshold: 13,
			HistoryDepth:     20,
		},
		Bend: BendConfig{
			Scale:      2,
			ThrottleMS: 10,
		},
	}
}

// LoadConfig reads the YAML config at path on top of the defaults. A missing
// file is not an error; the defaults are returned unchanged.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		logger.Info("config: file not found, using defaults", "path", path)
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	logger.Info("config: loaded", "path", path)
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.NotePolicy {
	case PolicyMostRecent, PolicyLowest, PolicyFirst:
	default:
		return fmt.Errorf("unknown note_policy %q", c.NotePolicy)
	}
	if c.Ribbon.HistoryDepth < 2 {
		return fmt.Errorf("ribbon.history_depth must be at least 2, got %d", c.Ribbon.HistoryDepth)
	}
	if c.Ribbon.Smoothing <= 0 || c.Ribbon.Smoothing > 1 {
		return fmt.Errorf("ribbon.smoothing must be in (0, 1], got %v", c.Ribbon.Smoothing)
	}
	if c.TickMS <= 0 {
		return fmt.Errorf("tick_ms must be positive, got %d", c.TickMS)
	}
	if c.Bend.ThrottleMS < 0 {
		return fmt.Errorf("bend.throttle_ms must not be negative, got %d", c.Bend.ThrottleMS)
	}
	return nil
}
