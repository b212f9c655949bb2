//nolint:lll
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/MeKo-Tech/pdfcodes/internal/barcode"
	"github.com/MeKo-Tech/pdfcodes/internal/pdf"
	"github.com/MeKo-Tech/pdfcodes/internal/pipeline"
	"github.com/MeKo-Tech/pdfcodes/internal/server"
)

// Config is the complete configuration of the pdfcodes service and CLI. It
// is loaded from defaults, a config file, PDFCODES_* environment variables
// and command-line flags, in increasing order of precedence.
type Config struct {
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	Server     ServerConfig     `mapstructure:"server" yaml:"server" json:"server"`
	Extraction ExtractionConfig `mapstructure:"extraction" yaml:"extraction" json:"extraction"`
	Convert    ConvertConfig    `mapstructure:"convert" yaml:"convert" json:"convert"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string `mapstructure:"host" yaml:"host" json:"host"`
	Port            int    `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	ServiceName     string `mapstructure:"service_name" yaml:"service_name" json:"service_name"`
}

// ExtractionConfig controls rendering and detection.
type ExtractionConfig struct {
	MaxPages       int      `mapstructure:"max_pages" yaml:"max_pages" json:"max_pages"`
	DPI            float64  `mapstructure:"dpi" yaml:"dpi" json:"dpi"`
	Workers        int      `mapstructure:"workers" yaml:"workers" json:"workers"`
	TempDir        string   `mapstructure:"temp_dir" yaml:"temp_dir" json:"temp_dir"`
	BarcodeFormats []string `mapstructure:"barcode_formats" yaml:"barcode_formats" json:"barcode_formats"`
	TryHarder      bool     `mapstructure:"try_harder" yaml:"try_harder" json:"try_harder"`
}

// ConvertConfig controls image to PDF conversion.
type ConvertConfig struct {
	PageFormat string `mapstructure:"page_format" yaml:"page_format" json:"page_format"`
}

var validLogLevels = []string{"debug", "info", "warn", "error"}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Server: ServerConfig{
			Host:            "localhost",
			Port:            5032,
			CORSOrigin:      "*",
			MaxUploadMB:     50,
			TimeoutSec:      60,
			ShutdownTimeout: 10,
			ServiceName:     "pdfcodes",
		},
		Extraction: ExtractionConfig{
			MaxPages:       pdf.DefaultMaxPages,
			DPI:            pdf.NativeDPI,
			BarcodeFormats: []string{},
			TryHarder:      true,
		},
		Convert: ConvertConfig{
			PageFormat: string(pdf.PageA4),
		},
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if !slices.Contains(validLogLevels, strings.ToLower(c.LogLevel)) {
		errs = append(errs, fmt.Errorf("invalid log_level %q (must be one of %s)", c.LogLevel, strings.Join(validLogLevels, ", ")))
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid server.port %d (must be between 1 and 65535)", c.Server.Port))
	}
	if c.Server.MaxUploadMB < 1 {
		errs = append(errs, fmt.Errorf("invalid server.max_upload_mb %d (must be positive)", c.Server.MaxUploadMB))
	}
	if c.Server.TimeoutSec < 0 {
		errs = append(errs, fmt.Errorf("invalid server.timeout_sec %d", c.Server.TimeoutSec))
	}
	if c.Server.ShutdownTimeout < 0 {
		errs = append(errs, fmt.Errorf("invalid server.shutdown_timeout %d", c.Server.ShutdownTimeout))
	}

	if c.Extraction.MaxPages < 1 {
		errs = append(errs, fmt.Errorf("invalid extraction.max_pages %d (must be at least 1)", c.Extraction.MaxPages))
	}
	if c.Extraction.DPI <= 0 {
		errs = append(errs, fmt.Errorf("invalid extraction.dpi %g (must be positive)", c.Extraction.DPI))
	}
	if c.Extraction.Workers < 0 {
		errs = append(errs, fmt.Errorf("invalid extraction.workers %d", c.Extraction.Workers))
	}
	if _, err := barcode.ParseFormats(c.Extraction.BarcodeFormats); err != nil {
		errs = append(errs, fmt.Errorf("invalid extraction.barcode_formats: %w", err))
	}

	if _, err := pdf.ParsePageFormat(c.Convert.PageFormat); err != nil {
		errs = append(errs, fmt.Errorf("invalid convert.page_format: %w", err))
	}

	return errors.Join(errs...)
}

// SlogLevelName resolves the effective log level, verbose winning.
func (c *Config) SlogLevelName() string {
	if c.Verbose {
		return "debug"
	}
	return strings.ToLower(c.LogLevel)
}

// ToPipelineConfig builds the extractor configuration.
func (c *Config) ToPipelineConfig() (pipeline.Config, error) {
	formats, err := barcode.ParseFormats(c.Extraction.BarcodeFormats)
	if err != nil {
		return pipeline.Config{}, err
	}
	return pipeline.Config{
		TempDir: c.Extraction.TempDir,
		Workers: c.Extraction.Workers,
		Raster: pdf.RasterConfig{
			MaxPages: c.Extraction.MaxPages,
			DPI:      c.Extraction.DPI,
		},
		Detectors: c.detectors(formats),
	}, nil
}

// detectors returns the shared default pair unless the configuration asks
// for something else.
func (c *Config) detectors(formats []barcode.Format) *barcode.Detectors {
	if len(formats) == 0 && c.Extraction.TryHarder {
		return barcode.Default()
	}
	return barcode.NewDetectors(barcode.Config{Formats: formats, TryHarder: c.Extraction.TryHarder})
}

// ToServerConfig builds the HTTP server configuration.
func (c *Config) ToServerConfig() (server.Config, error) {
	pc, err := c.ToPipelineConfig()
	if err != nil {
		return server.Config{}, err
	}
	format, err := pdf.ParsePageFormat(c.Convert.PageFormat)
	if err != nil {
		return server.Config{}, err
	}
	return server.Config{
		Host:        c.Server.Host,
		Port:        c.Server.Port,
		CORSOrigin:  c.Server.CORSOrigin,
		MaxUploadMB: int64(c.Server.MaxUploadMB),
		TimeoutSec:  c.Server.TimeoutSec,
		ServiceName: c.Server.ServiceName,
		TempDir:     c.Extraction.TempDir,
		PageFormat:  format,
		Extraction:  pc,
	}, nil
}
