package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/OPWeb-ui/EZtify-sub000/annotation"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if !cfg.Export.Compress || !cfg.Export.VerifyOutput {
		t.Fatal("compress and verify_output should default to true")
	}
	if cfg.Export.Scale != 2 || cfg.Search.HeightFactor != 1.5 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestParse_KeepsDefaultsForMissingKeys(t *testing.T) {
	cfg, err := Parse([]byte("export:\n  jpeg_quality: 70\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Export.JPEGQuality != 70 {
		t.Errorf("jpeg_quality = %d, want 70", cfg.Export.JPEGQuality)
	}
	if !cfg.Export.VerifyOutput {
		t.Error("verify_output lost its default")
	}
	if cfg.Redaction.MinRegionPercent != annotation.DefaultMinSize {
		t.Errorf("min_region_percent = %v", cfg.Redaction.MinRegionPercent)
	}
}

func TestParse_AcceptsZeroSearchGeometry(t *testing.T) {
	cfg, err := Parse([]byte("search:\n  padding: 0\n  ascent_factor: 0\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Search.Padding != 0 || cfg.Search.AscentFactor != 0 {
		t.Errorf("padding=%v ascent_factor=%v, want 0 and 0", cfg.Search.Padding, cfg.Search.AscentFactor)
	}
	if cfg.Search.HeightFactor != 1.5 {
		t.Errorf("height_factor = %v, want default 1.5", cfg.Search.HeightFactor)
	}

	cfg, err = ParseTOML([]byte("[search]\npadding = 0.0\n"))
	if err != nil {
		t.Fatalf("parse toml: %v", err)
	}
	if cfg.Search.Padding != 0 || cfg.Search.AscentFactor != 1 {
		t.Errorf("toml padding=%v ascent_factor=%v", cfg.Search.Padding, cfg.Search.AscentFactor)
	}
}

func TestDefault_SearchGeometry(t *testing.T) {
	cfg := Default()
	if cfg.Search.Padding != 2 || cfg.Search.AscentFactor != 1 {
		t.Errorf("padding=%v ascent_factor=%v, want 2 and 1", cfg.Search.Padding, cfg.Search.AscentFactor)
	}
}

func TestParse_ExpandsEnvVars(t *testing.T) {
	t.Setenv("REDACT_TEST_LEVEL", "debug")
	cfg, err := Parse([]byte("logging:\n  level: ${REDACT_TEST_LEVEL}\n  env: ${REDACT_TEST_UNSET:-prod}\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Env != "prod" {
		t.Errorf("unexpected logging config %+v", cfg.Logging)
	}
}

func TestValidate_Rejects(t *testing.T) {
	cases := map[string]func(*Config){
		"low scale":     func(c *Config) { c.Export.Scale = 1.5 },
		"quality":       func(c *Config) { c.Export.JPEGQuality = 101 },
		"color":         func(c *Config) { c.Redaction.DefaultColor = "pink" },
		"min region":    func(c *Config) { c.Redaction.MinRegionPercent = 100 },
		"height factor": func(c *Config) { c.Search.HeightFactor = -1 },
		"padding":       func(c *Config) { c.Search.Padding = -2 },
		"env":           func(c *Config) { c.Logging.Env = "staging" },
		"preview scale": func(c *Config) { c.Preview.Scale = -1 },
		"query length":  func(c *Config) { c.Search.MinQueryLength = -1 },
		"ascent factor": func(c *Config) { c.Search.AscentFactor = -0.5 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoad(t *testing.T) {
	cfg, err := Load("")
	if err != nil || cfg.Export.Scale != 2 {
		t.Fatalf("empty path: %+v, %v", cfg, err)
	}
	path := filepath.Join(t.TempDir(), "redact.yaml")
	if err := os.WriteFile(path, []byte("redaction:\n  default_color: white\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DefaultColor() != annotation.White {
		t.Errorf("default color = %s", cfg.DefaultColor())
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
	if _, err := Parse([]byte("export:\n  scale: 1\n")); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoad_TOML(t *testing.T) {
	t.Setenv("REDACT_QUALITY", "80")
	path := filepath.Join(t.TempDir(), "redact.toml")
	data := `[redaction]
default_color = "gray"

[export]
jpeg_quality = ${REDACT_QUALITY}
compress = false

[logging]
env = "${REDACT_ENV:-prod}"
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DefaultColor() != annotation.Gray || cfg.Export.JPEGQuality != 80 {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.Export.Compress || !cfg.Export.VerifyOutput {
		t.Errorf("compress/verify_output = %v/%v", cfg.Export.Compress, cfg.Export.VerifyOutput)
	}
	if cfg.Logging.Env != "prod" || cfg.Export.Scale != 2 {
		t.Errorf("defaults not kept: %+v", cfg)
	}
	if _, err := ParseTOML([]byte("[export\n")); err == nil {
		t.Fatal("expected TOML syntax error")
	}
}
