package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// CameraConfig describes the desired video stream and the fallback behavior
// of the acquisition manager.
type CameraConfig struct {
	PreferredDevice string `yaml:"preferred_device"` // e.g. "/dev/video0"; empty = first enumerated
	IdealWidth      int    `yaml:"ideal_width"`      // requested width for the first attempt
	IdealHeight     int    `yaml:"ideal_height"`     // requested height for the first attempt
	MinWidth        int    `yaml:"min_width"`        // below this the first attempt counts as failed
	MinHeight       int    `yaml:"min_height"`
	ReadyTimeoutMs  int    `yaml:"ready_timeout_ms"` // wait for the first frame; on timeout the feed is assumed usable
	FrameTimeoutMs  int    `yaml:"frame_timeout_ms"` // per-frame read timeout during capture
	WarmupFrames    int    `yaml:"warmup_frames"`    // frames discarded after stream start
}

// SessionConfig bounds a capture session.
type SessionConfig struct {
	MaxPhotos      int `yaml:"max_photos"`       // upper bound for the target count
	DefaultCount   int `yaml:"default_count"`    // preselected target count
	CountdownTicks int `yaml:"countdown_ticks"`  // ticks before an automatic capture
	TickIntervalMs int `yaml:"tick_interval_ms"` // countdown cadence
	FlashPulseMs   int `yaml:"flash_pulse_ms"`   // flash lamp hold time on capture
}

// ExportConfig describes the export pipeline output.
type ExportConfig struct {
	Columns     int    `yaml:"columns"`      // collage grid columns
	CellSize    int    `yaml:"cell_size"`    // collage cell edge in pixels (square)
	Margin      int    `yaml:"margin"`       // uniform margin around and between cells
	OutputDir   string `yaml:"output_dir"`   // where artifacts are written
	JPEGQuality int    `yaml:"jpeg_quality"` // 1-100 for individual JPEG exports
}

// WebConfig describes the control UI listener.
type WebConfig struct {
	Addr string `yaml:"addr"` // e.g. ":8080"; empty = web UI disabled
}

// BoothConfig describes optional booth peripherals (physical shutter button,
// flash lamp). Pin 0 disables the peripheral.
type BoothConfig struct {
	MockGPIO  bool `yaml:"mock_gpio"`  // use mock GPIO (true=dev/test, false=real Raspberry Pi)
	ButtonPin int  `yaml:"button_pin"` // BCM pin of the shutter button, active low
	LampPin   int  `yaml:"lamp_pin"`   // BCM pin of the flash lamp
}

// DefaultsConfig contains generic parameters.
type DefaultsConfig struct {
	DebugLevel int `yaml:"debug_level"` // debug level 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
}

// Config aggregates all application configuration.
type Config struct {
	Camera   CameraConfig   `yaml:"camera"`
	Session  SessionConfig  `yaml:"session"`
	Export   ExportConfig   `yaml:"export"`
	Web      WebConfig      `yaml:"web"`
	Booth    BoothConfig    `yaml:"booth"`
	Defaults DefaultsConfig `yaml:"defaults"`
}

// Default returns the configuration used when no config file is present.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads a YAML file and returns the configuration. A missing file is not
// an error: the booth runs on defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	return &cfg, nil
}

// validate rejects values that cannot be fixed by defaulting.
func (c *Config) validate() error {
	if c.Session.MaxPhotos < 0 {
		return fmt.Errorf("session.max_photos must be >= 0, got %d", c.Session.MaxPhotos)
	}
	if c.Session.DefaultCount < 0 {
		return fmt.Errorf("session.default_count must be >= 0, got %d", c.Session.DefaultCount)
	}
	if c.Session.MaxPhotos > 0 && c.Session.DefaultCount > c.Session.MaxPhotos {
		return fmt.Errorf("session.default_count must be <= max_photos (%d), got %d",
			c.Session.MaxPhotos, c.Session.DefaultCount)
	}
	if c.Export.JPEGQuality < 0 || c.Export.JPEGQuality > 100 {
		return fmt.Errorf("export.jpeg_quality must be between 1 and 100, got %d", c.Export.JPEGQuality)
	}
	if c.Export.Margin < 0 {
		return fmt.Errorf("export.margin must be >= 0, got %d", c.Export.Margin)
	}
	if c.Defaults.DebugLevel < 0 || c.Defaults.DebugLevel > 4 {
		return fmt.Errorf("defaults.debug_level must be between 0 and 4, got %d", c.Defaults.DebugLevel)
	}
	return nil
}

// applyDefaults fills zero values with working defaults.
func (c *Config) applyDefaults() {
	if c.Camera.IdealWidth <= 0 {
		c.Camera.IdealWidth = 1280
	}
	if c.Camera.IdealHeight <= 0 {
		c.Camera.IdealHeight = 720
	}
	if c.Camera.MinWidth <= 0 {
		c.Camera.MinWidth = 640
	}
	if c.Camera.MinHeight <= 0 {
		c.Camera.MinHeight = 480
	}
	if c.Camera.ReadyTimeoutMs <= 0 {
		c.Camera.ReadyTimeoutMs = 3000 // assume-usable heuristic, see Manager
	}
	if c.Camera.FrameTimeoutMs <= 0 {
		c.Camera.FrameTimeoutMs = 5000
	}
	if c.Camera.WarmupFrames <= 0 {
		c.Camera.WarmupFrames = 2
	}
	if c.Session.MaxPhotos <= 0 {
		c.Session.MaxPhotos = 10
	}
	if c.Session.DefaultCount <= 0 {
		c.Session.DefaultCount = 4
	}
	if c.Session.CountdownTicks <= 0 {
		c.Session.CountdownTicks = 3
	}
	if c.Session.TickIntervalMs <= 0 {
		c.Session.TickIntervalMs = 1000
	}
	if c.Session.FlashPulseMs <= 0 {
		c.Session.FlashPulseMs = 150
	}
	if c.Export.Columns <= 0 {
		c.Export.Columns = 2
	}
	if c.Export.CellSize <= 0 {
		c.Export.CellSize = 300
	}
	if c.Export.Margin == 0 {
		c.Export.Margin = 10
	}
	if c.Export.OutputDir == "" {
		c.Export.OutputDir = "exports"
	}
	if c.Export.JPEGQuality == 0 {
		c.Export.JPEGQuality = 90
	}
}

// ReadyTimeout returns how long acquisition waits for a first frame before
// assuming the feed is usable.
func (c *Config) ReadyTimeout() time.Duration {
	return time.Duration(c.Camera.ReadyTimeoutMs) * time.Millisecond
}

// FrameTimeout returns the per-frame read timeout.
func (c *Config) FrameTimeout() time.Duration {
	return time.Duration(c.Camera.FrameTimeoutMs) * time.Millisecond
}

// TickInterval returns the countdown cadence.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Session.TickIntervalMs) * time.Millisecond
}

// FlashPulse returns the flash lamp hold time.
func (c *Config) FlashPulse() time.Duration {
	return time.Duration(c.Session.FlashPulseMs) * time.Millisecond
}
