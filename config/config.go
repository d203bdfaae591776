package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/OPWeb-ui/EZtify-sub000/annotation"
)

// Config holds the redaction settings.
type Config struct {
	Redaction RedactionConfig `yaml:"redaction" toml:"redaction"`
	Search    SearchConfig    `yaml:"search" toml:"search"`
	Export    ExportConfig    `yaml:"export" toml:"export"`
	Preview   PreviewConfig   `yaml:"preview" toml:"preview"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
}

// RedactionConfig holds annotation settings.
type RedactionConfig struct {
	MinRegionPercent float64 `yaml:"min_region_percent" toml:"min_region_percent"`
	DefaultColor     string  `yaml:"default_color" toml:"default_color"` // black, white, gray
}

// SearchConfig holds text locator settings. Lengths are in points.
type SearchConfig struct {
	MinQueryLength int     `yaml:"min_query_length" toml:"min_query_length"`
	Padding        float64 `yaml:"padding" toml:"padding"`
	AscentFactor   float64 `yaml:"ascent_factor" toml:"ascent_factor"`
	HeightFactor   float64 `yaml:"height_factor" toml:"height_factor"`
}

// ExportConfig holds secure export settings.
type ExportConfig struct {
	Scale        float64 `yaml:"scale" toml:"scale"` // render multiplier, at least 2
	JPEGQuality  int     `yaml:"jpeg_quality" toml:"jpeg_quality"`
	Compress     bool    `yaml:"compress" toml:"compress"`
	VerifyOutput bool    `yaml:"verify_output" toml:"verify_output"`
}

// PreviewConfig holds verification view settings.
type PreviewConfig struct {
	Scale float64 `yaml:"scale" toml:"scale"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Env   string `yaml:"env" toml:"env"`     // local, dev, prod (default: local)
	Level string `yaml:"level" toml:"level"` // debug, info, warn, error (default: determined by env)
}

// Default returns the built-in configuration.
func Default() Config {
	cfg := Config{
		Search: SearchConfig{Padding: 2, AscentFactor: 1},
		Export: ExportConfig{Compress: true, VerifyOutput: true},
	}
	cfg.ApplyDefaults()
	return cfg
}

// Load reads configuration from a YAML file, or TOML when path ends in
// .toml. Keys missing from the file keep their defaults. An empty path
// returns Default.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return ParseTOML(data)
	}
	return Parse(data)
}

// Parse decodes YAML configuration, expanding ${VAR} and ${VAR:-default}.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	return finish(cfg)
}

// ParseTOML is Parse for TOML input.
func ParseTOML(data []byte) (Config, error) {
	data = expandEnvVars(data)

	cfg := Default()
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	return finish(cfg)
}

func finish(cfg Config) (Config, error) {
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// ApplyDefaults fills empty fields with default values. Search padding and
// ascent factor accept zero, so their defaults come from Default only.
func (c *Config) ApplyDefaults() {
	if c.Redaction.MinRegionPercent <= 0 {
		c.Redaction.MinRegionPercent = annotation.DefaultMinSize
	}
	if c.Redaction.DefaultColor == "" {
		c.Redaction.DefaultColor = annotation.Black.String()
	}
	if c.Search.MinQueryLength <= 0 {
		c.Search.MinQueryLength = 2
	}
	if c.Search.HeightFactor == 0 {
		c.Search.HeightFactor = 1.5
	}
	if c.Export.Scale == 0 {
		c.Export.Scale = 2
	}
	if c.Export.JPEGQuality == 0 {
		c.Export.JPEGQuality = 92
	}
	if c.Preview.Scale == 0 {
		c.Preview.Scale = 1
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "local"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.Redaction.MinRegionPercent <= 0 || c.Redaction.MinRegionPercent >= 100 {
		return fmt.Errorf("redaction.min_region_percent must be in (0,100), got %v", c.Redaction.MinRegionPercent)
	}
	if _, err := annotation.ParseColor(c.Redaction.DefaultColor); err != nil {
		return fmt.Errorf("redaction.default_color: %w", err)
	}
	if c.Search.MinQueryLength < 1 {
		return fmt.Errorf("search.min_query_length must be positive, got %d", c.Search.MinQueryLength)
	}
	if c.Search.Padding < 0 {
		return fmt.Errorf("search.padding must not be negative, got %v", c.Search.Padding)
	}
	if c.Search.AscentFactor < 0 {
		return fmt.Errorf("search.ascent_factor must not be negative, got %v", c.Search.AscentFactor)
	}
	if c.Search.HeightFactor <= 0 {
		return fmt.Errorf("search.height_factor must be positive, got %v", c.Search.HeightFactor)
	}
	if c.Export.Scale < 2 {
		return fmt.Errorf("export.scale must be at least 2, got %v", c.Export.Scale)
	}
	if c.Export.JPEGQuality < 1 || c.Export.JPEGQuality > 100 {
		return fmt.Errorf("export.jpeg_quality must be between 1 and 100, got %d", c.Export.JPEGQuality)
	}
	if c.Preview.Scale <= 0 {
		return fmt.Errorf("preview.scale must be positive, got %v", c.Preview.Scale)
	}
	switch c.Logging.Env {
	case "local", "dev", "prod":
	default:
		return fmt.Errorf("logging.env must be local, dev or prod, got %q", c.Logging.Env)
	}
	return nil
}

// DefaultColor returns the parsed redaction.default_color.
func (c *Config) DefaultColor() annotation.Color {
	color, err := annotation.ParseColor(c.Redaction.DefaultColor)
	if err != nil {
		return annotation.Black
	}
	return color
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
