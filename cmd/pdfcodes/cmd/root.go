package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/pdfcodes/internal/config"
	"github.com/MeKo-Tech/pdfcodes/internal/version"
)

var (
	// Global configuration loader.
	configLoader *config.Loader
	// Configuration file path.
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "pdfcodes",
	Short: "Barcode and QR code extraction from PDFs and images",
	Long: `pdfcodes finds barcodes and QR codes in PDF documents and images.

It renders the leading pages of a PDF, or decodes an uploaded image directly,
and reports every decoded symbol with its format, page and position. The same
pipeline is available as an HTTP service, a websocket endpoint and a local
batch scanner, next to a few PDF utilities (merge, image conversion, text
extraction, code stamping).

Examples:
  pdfcodes scan invoice.pdf
  pdfcodes scan scans/ --recursive --mode qr --format yaml
  pdfcodes serve --port 5032`,
	Version:       version.String(),
	SilenceUsage:  true,
	SilenceErrors: false,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// GetRootCommand returns the root command for testing purposes.
func GetRootCommand() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is search in ., $HOME, $HOME/.config/pdfcodes, /etc/pdfcodes)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.SetVersionTemplate("pdfcodes {{.Version}}\n")

	// Assigned here: the hook reads rootCmd's flags, so it cannot sit in the
	// rootCmd literal.
	rootCmd.PersistentPreRunE = loadConfigAndLogging
}

// loadConfigAndLogging runs before every command.
func loadConfigAndLogging(cmd *cobra.Command, _ []string) error {
	if err := initConfig(cmd.Root()); err != nil {
		return err
	}
	cfg, err := GetConfig()
	if err != nil {
		return err
	}
	setupLogging(cfg)
	return nil
}

// initConfig reads the config file and environment into a fresh loader with
// the global flags bound.
func initConfig(root *cobra.Command) error {
	flags := root.PersistentFlags()
	v := viper.New()
	if err := v.BindPFlag("verbose", flags.Lookup("verbose")); err != nil {
		return err
	}
	if err := v.BindPFlag("log_level", flags.Lookup("log-level")); err != nil {
		return err
	}
	configLoader = config.NewLoaderWithViper(v)

	var err error
	if cfgFile != "" {
		_, err = configLoader.LoadWithFile(cfgFile)
	} else {
		_, err = configLoader.Load()
	}
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}
	return nil
}

// GetConfig returns the effective configuration, including flags bound
// after the initial load.
func GetConfig() (*config.Config, error) {
	cfg, err := GetConfigLoader().Current()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// GetConfigLoader returns the global configuration loader.
func GetConfigLoader() *config.Loader {
	if configLoader == nil {
		configLoader = config.NewLoader()
	}
	return configLoader
}

// setupLogging installs the JSON slog handler on stderr so command output on
// stdout stays machine-readable.
func setupLogging(cfg *config.Config) {
	var level slog.Level
	switch cfg.SlogLevelName() {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
}
