// Package config loads the service configuration. Fields are pointers so a
// partial JSON file only overrides what it names; the Get* accessors supply
// the defaults for everything else.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds the tunable parameters of the traffic service.
type Config struct {
	// Detection params
	ConfidenceThreshold *float64 `json:"confidence_threshold,omitempty"`
	DetectorEndpoint    *string  `json:"detector_endpoint,omitempty"`

	// Upload params
	UploadDir         *string  `json:"upload_dir,omitempty"`
	ProcessedDir      *string  `json:"processed_dir,omitempty"`
	MaxUploadMB       *int64   `json:"max_upload_mb,omitempty"`
	AllowedExtensions []string `json:"allowed_extensions,omitempty"`

	// Pipeline pacing params
	FrameSkip       *int    `json:"frame_skip,omitempty"`
	ProcessingDelay *string `json:"processing_delay,omitempty"` // duration string like "100ms"

	// Fallback-mode params
	SyntheticSteps  *int    `json:"synthetic_steps,omitempty"`
	SyntheticPacing *string `json:"synthetic_pacing,omitempty"` // duration string like "200ms"
}

// Default returns a Config with every field unset, so all accessors fall
// back to their defaults.
func Default() *Config {
	return &Config{}
}

// Load reads and validates a JSON config file. Omitted fields keep their
// defaults, so partial configs are safe.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that explicitly configured values are usable.
func (c *Config) Validate() error {
	if c.ConfidenceThreshold != nil {
		if *c.ConfidenceThreshold < 0 || *c.ConfidenceThreshold > 1 {
			return fmt.Errorf("confidence_threshold must be between 0 and 1, got %f", *c.ConfidenceThreshold)
		}
	}
	if c.MaxUploadMB != nil && *c.MaxUploadMB <= 0 {
		return fmt.Errorf("max_upload_mb must be positive, got %d", *c.MaxUploadMB)
	}
	if c.FrameSkip != nil && *c.FrameSkip < 1 {
		return fmt.Errorf("frame_skip must be at least 1, got %d", *c.FrameSkip)
	}
	if c.SyntheticSteps != nil && *c.SyntheticSteps < 1 {
		return fmt.Errorf("synthetic_steps must be at least 1, got %d", *c.SyntheticSteps)
	}
	if c.ProcessingDelay != nil && *c.ProcessingDelay != "" {
		if _, err := time.ParseDuration(*c.ProcessingDelay); err != nil {
			return fmt.Errorf("invalid processing_delay %q: %w", *c.ProcessingDelay, err)
		}
	}
	if c.SyntheticPacing != nil && *c.SyntheticPacing != "" {
		if _, err := time.ParseDuration(*c.SyntheticPacing); err != nil {
			return fmt.Errorf("invalid synthetic_pacing %q: %w", *c.SyntheticPacing, err)
		}
	}
	for _, ext := range c.AllowedExtensions {
		if ext == "" || strings.HasPrefix(ext, ".") {
			return fmt.Errorf("allowed extensions must be bare suffixes like \"mp4\", got %q", ext)
		}
	}
	return nil
}

// GetConfidenceThreshold returns the detection confidence floor.
func (c *Config) GetConfidenceThreshold() float64 {
	if c.ConfidenceThreshold == nil {
		return 0.5
	}
	return *c.ConfidenceThreshold
}

// GetDetectorEndpoint returns the YOLO sidecar base URL.
func (c *Config) GetDetectorEndpoint() string {
	if c.DetectorEndpoint == nil || *c.DetectorEndpoint == "" {
		return "http://localhost:8500"
	}
	return *c.DetectorEndpoint
}

// GetUploadDir returns the transient upload directory.
func (c *Config) GetUploadDir() string {
	if c.UploadDir == nil || *c.UploadDir == "" {
		return "uploads"
	}
	return *c.UploadDir
}

// GetProcessedDir returns the processed-frame artifact directory.
func (c *Config) GetProcessedDir() string {
	if c.ProcessedDir == nil || *c.ProcessedDir == "" {
		return filepath.Join("static", "processed")
	}
	return *c.ProcessedDir
}

// GetMaxUploadBytes returns the upload size ceiling in bytes.
func (c *Config) GetMaxUploadBytes() int64 {
	if c.MaxUploadMB == nil {
		return 100 * 1024 * 1024
	}
	return *c.MaxUploadMB * 1024 * 1024
}

// GetAllowedExtensions returns the accepted video file extensions,
// lowercased and without dots.
func (c *Config) GetAllowedExtensions() []string {
	if len(c.AllowedExtensions) == 0 {
		return []string{"mp4", "avi", "mov", "mkv", "webm"}
	}
	out := make([]string, len(c.AllowedExtensions))
	for i, ext := range c.AllowedExtensions {
		out[i] = strings.ToLower(ext)
	}
	return out
}

// GetFrameSkip returns how many frames pass between pacing pauses.
func (c *Config) GetFrameSkip() int {
	if c.FrameSkip == nil {
		return 10
	}
	return *c.FrameSkip
}

// GetProcessingDelay returns the pause inserted every FrameSkip frames.
func (c *Config) GetProcessingDelay() time.Duration {
	if c.ProcessingDelay == nil || *c.ProcessingDelay == "" {
		return 100 * time.Millisecond
	}
	d, err := time.ParseDuration(*c.ProcessingDelay)
	if err != nil {
		return 100 * time.Millisecond
	}
	return d
}

// GetSyntheticSteps returns the number of progress increments simulated in
// fallback mode.
func (c *Config) GetSyntheticSteps() int {
	if c.SyntheticSteps == nil {
		return 10
	}
	return *c.SyntheticSteps
}

// GetSyntheticPacing returns the pause between fallback progress steps.
func (c *Config) GetSyntheticPacing() time.Duration {
	if c.SyntheticPacing == nil || *c.SyntheticPacing == "" {
		return 200 * time.Millisecond
	}
	d, err := time.ParseDuration(*c.SyntheticPacing)
	if err != nil {
		return 200 * time.Millisecond
	}
	return d
}
