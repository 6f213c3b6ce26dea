// Package config provides configuration loading and management for brainmesh.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"brainmesh/internal/models"
)

// LabelSpec describes one semantic label of the segmentation volume and
// how its surface should be displayed.
type LabelSpec struct {
	// ID is the voxel value identifying this label in the segmentation.
	ID int `yaml:"id"`

	// Name is the unique region name used as the surface entry key.
	Name string `yaml:"name"`

	// Color is the semantic color name, resolved through the color table.
	Color string `yaml:"color"`

	// Opacity is the display opacity in [0,1].
	Opacity float64 `yaml:"opacity"`
}

// Config represents the pipeline configuration loaded from YAML
type Config struct {
	// Input volumes
	Input struct {
		// Segmentation is the path to the labeled segmentation volume (NIfTI)
		Segmentation string `yaml:"segmentation"`

		// Intensity is the path to the multi-channel intensity volume (NIfTI)
		Intensity string `yaml:"intensity"`

		// BrainChannel selects the intensity channel used to derive the
		// whole-brain mask (channel 3 is the FLAIR modality in the BraTS
		// 4-modality layout)
		BrainChannel int `yaml:"brainChannel"`
	} `yaml:"input"`

	// Processing parameters
	Processing struct {
		// DownsampleFactor scales the mask volumes before surface
		// extraction; iso-surface extraction cost grows with voxel count
		DownsampleFactor float64 `yaml:"downsampleFactor"`

		// IsoLevel is the marching cubes threshold on the downsampled mask
		IsoLevel float64 `yaml:"isoLevel"`
	} `yaml:"processing"`

	// Labels lists the tumor sub-regions extracted from the segmentation
	Labels []LabelSpec `yaml:"labels"`

	// Brain holds the display attributes of the whole-brain surface
	Brain struct {
		Color   string  `yaml:"color"`
		Opacity float64 `yaml:"opacity"`
	} `yaml:"brain"`

	// Colors is the table mapping semantic color names to RGB triples,
	// shared by both exporters
	Colors models.ColorTable `yaml:"colors"`

	// Output parameters
	Output struct {
		// HTML is the path of the interactive web visualization
		HTML string `yaml:"html"`

		// USD is the path of the USD scene graph file
		USD string `yaml:"usd"`

		// STLDir, when set, receives one binary STL file per surface
		STLDir string `yaml:"stlDir"`

		// SaveMasks enables dumping downsampled mask slices as JPEG images
		SaveMasks bool `yaml:"saveMasks"`

		// MasksDir is where mask previews are saved
		MasksDir string `yaml:"masksDir"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Default BraTS sample volume paths
	cfg.Input.Segmentation = filepath.Join("Task01_BrainTumour", "labelsTr", "BRATS_001.nii.gz")
	cfg.Input.Intensity = filepath.Join("Task01_BrainTumour", "imagesTr", "BRATS_001.nii.gz")
	cfg.Input.BrainChannel = 3

	// Set default processing parameters
	cfg.Processing.DownsampleFactor = 0.6
	cfg.Processing.IsoLevel = 0.5

	// BraTS tumor label table with its display defaults; necrotic tissue
	// is rendered most opaque since it is the most clinically salient
	cfg.Labels = []LabelSpec{
		{ID: 1, Name: models.Edema.String(), Color: "yellow", Opacity: 0.3},
		{ID: 2, Name: models.Necrotic.String(), Color: "red", Opacity: 0.8},
		{ID: 3, Name: models.Enhancing.String(), Color: "lightblue", Opacity: 0.3},
	}
	cfg.Brain.Color = "pink"
	cfg.Brain.Opacity = 0.2

	cfg.Colors = models.ColorTable{}
	for name, rgb := range models.DefaultColorTable {
		cfg.Colors[name] = rgb
	}

	// Set default output parameters
	cfg.Output.HTML = "brain_plot.html"
	cfg.Output.USD = "brain_with_tumor.usda"
	cfg.Output.MasksDir = "mask_previews"

	return cfg
}

// Validate checks the configuration invariants. Color names are
// validated here, at load time, so an unknown color cannot surface as a
// late export failure.
func (cfg *Config) Validate() error {
	if cfg.Input.Segmentation == "" {
		return fmt.Errorf("input segmentation path is required")
	}
	if cfg.Input.Intensity == "" {
		return fmt.Errorf("input intensity path is required")
	}
	if cfg.Input.BrainChannel < 0 {
		return fmt.Errorf("brain channel must be non-negative, got %d", cfg.Input.BrainChannel)
	}
	if f := cfg.Processing.DownsampleFactor; f <= 0 || f > 1 {
		return fmt.Errorf("downsample factor %.3f outside (0,1]", f)
	}
	if iso := cfg.Processing.IsoLevel; iso <= 0 || iso >= 1 {
		return fmt.Errorf("iso level %.3f outside (0,1)", iso)
	}
	if _, err := cfg.Colors.Lookup(cfg.Brain.Color); err != nil {
		return fmt.Errorf("brain: %v", err)
	}
	if cfg.Brain.Opacity < 0 || cfg.Brain.Opacity > 1 {
		return fmt.Errorf("brain opacity %.3f outside [0,1]", cfg.Brain.Opacity)
	}
	// The brain region name is reserved for the mandatory context shell.
	seen := map[string]bool{models.Brain.String(): true}
	for _, label := range cfg.Labels {
		if label.Name == "" {
			return fmt.Errorf("label %d has no name", label.ID)
		}
		if seen[label.Name] {
			return fmt.Errorf("duplicate label name %q", label.Name)
		}
		seen[label.Name] = true
		if _, err := cfg.Colors.Lookup(label.Color); err != nil {
			return fmt.Errorf("label %q: %v", label.Name, err)
		}
		if label.Opacity < 0 || label.Opacity > 1 {
			return fmt.Errorf("label %q opacity %.3f outside [0,1]", label.Name, label.Opacity)
		}
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
		return nil, fmt.Errorf("invalid config: %w", err)
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
	return SaveConfig(DefaultConfig(), configPath)
}
