package internal

import (
	"fmt"
	"os"
	"slices"

	"github.com/sensiblebit/certdata"
	"gopkg.in/yaml.v3"
)

// Output formats accepted by the Format* functions.
var OutputFormats = []string{"text", "json", "yaml"}

// Export formats accepted by ExportRoots.
var ExportFormats = []string{"pem", "p7b", "jks", "p12"}

// ExportConfig controls where and how trusted roots are exported.
type ExportConfig struct {
	Dir      string   `yaml:"dir"`
	Formats  []string `yaml:"formats"`
	Password string   `yaml:"password"`

	// PasswordFile, when set, replaces Password with the first non-empty
	// line of the file.
	PasswordFile string `yaml:"passwordFile"`
}

// Config holds the runtime application configuration. It is read from an
// optional YAML file; command-line flags override individual fields.
type Config struct {
	LogLevel    string         `yaml:"logLevel"`
	LogFormat   string         `yaml:"logFormat"`
	Usage       certdata.Usage `yaml:"usage"`
	Format      string         `yaml:"format"`
	SkipInvalid bool           `yaml:"skipInvalid"`
	Export      ExportConfig   `yaml:"export"`
	Catalog     string         `yaml:"catalog"`
}

// DefaultConfig returns the configuration used when no file is given.
// Format is left empty so the CLI can pick one based on the terminal.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",
		Usage:     certdata.UsageTLSServer,
		Export: ExportConfig{
			Dir:      "./roots",
			Formats:  []string{"pem"},
			Password: "changeit",
		},
		Catalog: "./certdata.db",
	}
}

// LoadConfig reads the YAML file at path over the defaults. Fields missing
// from the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects unknown output and export formats.
func (c *Config) Validate() error {
	if c.Format != "" && !slices.Contains(OutputFormats, c.Format) {
		return fmt.Errorf("unsupported output format %q (use text, json or yaml)", c.Format)
	}
	for _, f := range c.Export.Formats {
		if !slices.Contains(ExportFormats, f) {
			return fmt.Errorf("unsupported export format %q (use pem, p7b, jks or p12)", f)
		}
	}
	return nil
}
