package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// KioskConfigFile is the default kiosk configuration file name.
const KioskConfigFile = "kiosk.yaml"

// Kiosk configures the capture client.
type Kiosk struct {
	// APIBaseURL is the backend root, e.g. http://localhost:5000.
	APIBaseURL string `yaml:"api_base_url"`
	// RequestTimeout bounds each backend call.
	RequestTimeout time.Duration `yaml:"request_timeout"`
	Capture        CaptureConfig `yaml:"capture"`
	Display        DisplayConfig `yaml:"display"`
}

// CaptureConfig configures countdown and compositing.
type CaptureConfig struct {
	TargetWidth       int           `yaml:"target_width"`
	TargetHeight      int           `yaml:"target_height"`
	CountdownStart    int           `yaml:"countdown_start"`
	CountdownInterval time.Duration `yaml:"countdown_interval"`
	OverlayPath       string        `yaml:"overlay_path"`
	JPEGQuality       int           `yaml:"jpeg_quality"`
}

// DisplayConfig configures the final screen.
type DisplayConfig struct {
	// Dwell is how long the QR code stays up before returning to start.
	Dwell  time.Duration `yaml:"dwell"`
	QRSize int           `yaml:"qr_size"`
}

// DefaultKioskConfig returns a Kiosk with the booth's standard settings.
func DefaultKioskConfig() *Kiosk {
	return &Kiosk{
		APIBaseURL:     "http://localhost:5000",
		RequestTimeout: 30 * time.Second,
		Capture: CaptureConfig{
			TargetWidth:       540,
			TargetHeight:      960,
			CountdownStart:    3,
			CountdownInterval: time.Second,
			OverlayPath:       "frames/frame.png",
			JPEGQuality:       90,
		},
		Display: DisplayConfig{
			Dwell:  15 * time.Second,
			QRSize: 256,
		},
	}
}

// Validate checks that the configuration is usable.
func (c *Kiosk) Validate() error {
	if c.APIBaseURL == "" {
		return errors.New("api_base_url is required")
	}
	if c.Capture.TargetWidth <= 0 || c.Capture.TargetHeight <= 0 {
		return fmt.Errorf("capture target size must be positive, got %dx%d", c.Capture.TargetWidth, c.Capture.TargetHeight)
	}
	if c.Capture.CountdownStart < 1 {
		return fmt.Errorf("capture.countdown_start must be at least 1, got %d", c.Capture.CountdownStart)
	}
	if c.Capture.CountdownInterval <= 0 {
		return errors.New("capture.countdown_interval must be positive")
	}
	if c.Capture.JPEGQuality < 1 || c.Capture.JPEGQuality > 100 {
		return fmt.Errorf("capture.jpeg_quality must be in 1..100, got %d", c.Capture.JPEGQuality)
	}
	if c.Display.Dwell <= 0 {
		return errors.New("display.dwell must be positive")
	}
	if c.Display.QRSize <= 0 {
		return errors.New("display.qr_size must be positive")
	}
	return nil
}

// LoadKioskConfig reads path over the defaults. A missing file yields the
// defaults unchanged.
func LoadKioskConfig(path string) (*Kiosk, error) {
	cfg := DefaultKioskConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read kiosk config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse kiosk config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid kiosk config %s: %w", path, err)
	}
	return cfg, nil
}
