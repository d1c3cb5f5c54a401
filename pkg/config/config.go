// Package config provides configuration loading and management for mriview.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"mriview/internal/models"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Processing parameters
	Processing struct {
		// NumCores specifies how many DICOM files are decoded in parallel
		NumCores int `yaml:"numCores"`
	} `yaml:"processing"`

	// Display parameters applied after every load
	Display struct {
		// DefaultView selects the active view: magnitude or phase
		DefaultView string `yaml:"defaultView"`

		// Rotation is the number of counter-clockwise quarter turns
		Rotation int `yaml:"rotation"`
	} `yaml:"display"`

	// DICOM directory scanning
	Dicom struct {
		// Extensions is the extension family matched case-insensitively
		Extensions []string `yaml:"extensions"`
	} `yaml:"dicom"`

	// Slice export parameters
	Export struct {
		// Format is the image file extension: png, jpg or tif
		Format string `yaml:"format"`

		// Scale is the integer upscale factor
		Scale int `yaml:"scale"`

		// Quality is the JPEG quality
		Quality int `yaml:"quality"`
	} `yaml:"export"`

	// Output parameters
	Output struct {
		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default processing parameters
	cfg.Processing.NumCores = runtime.NumCPU() // Use all available cores by default

	// Set default display parameters
	cfg.Display.DefaultView = models.ViewMagnitude.String()
	cfg.Display.Rotation = 0

	cfg.Dicom.Extensions = []string{".dcm"}

	// Set default export parameters
	cfg.Export.Format = "png"
	cfg.Export.Scale = 1
	cfg.Export.Quality = 90

	// Set default output parameters
	cfg.Output.Verbose = false

	return cfg
}

// View returns the parsed default view.
func (c *Config) View() models.View {
	v, _ := models.ParseView(c.Display.DefaultView)
	return v
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Processing.NumCores < 1 {
		return fmt.Errorf("processing.numCores must be at least 1, got %d", c.Processing.NumCores)
	}
	if _, ok := models.ParseView(c.Display.DefaultView); !ok {
		return fmt.Errorf("display.defaultView %q is not magnitude or phase", c.Display.DefaultView)
	}
	if len(c.Dicom.Extensions) == 0 {
		return fmt.Errorf("dicom.extensions must not be empty")
	}
	switch strings.TrimPrefix(strings.ToLower(c.Export.Format), ".") {
	case "png", "jpg", "jpeg", "tif", "tiff", "bmp", "gif":
	default:
		return fmt.Errorf("export.format %q is not supported", c.Export.Format)
	}
	if c.Export.Scale < 1 {
		return fmt.Errorf("export.scale must be at least 1, got %d", c.Export.Scale)
	}
	if c.Export.Quality < 1 || c.Export.Quality > 100 {
		return fmt.Errorf("export.quality must be in [1, 100], got %d", c.Export.Quality)
	}
	return nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
