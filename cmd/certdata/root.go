package main

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/sensiblebit/certdata/internal"
	"github.com/spf13/cobra"
)

var (
	logLevel     string
	logFormat    string
	configPath   string
	outputFormat string

	// cfg is the effective configuration, set before any command runs.
	cfg *internal.Config
)

var rootCmd = &cobra.Command{
	Use:   "certdata",
	Short: "NSS certdata.txt toolkit",
	Long:  "Parse NSS certdata.txt trust stores, inspect their certificates and trust records, and export the trusted roots.",
	// main prints the error; cobra would print it a second time.
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format: text or json")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config YAML")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "", "Output format: text, json or yaml (default: text on a terminal, json otherwise)")

	registerCompletion(rootCmd, completionInput{"log-level", fixedCompletion("debug", "info", "warn", "error")})
	registerCompletion(rootCmd, completionInput{"log-format", fixedCompletion("text", "json")})
	registerCompletion(rootCmd, completionInput{"config", fileCompletion})
	registerCompletion(rootCmd, completionInput{"format", fixedCompletion(internal.OutputFormats...)})

	rootCmd.AddCommand(attrsCmd)
	rootCmd.AddCommand(objectsCmd)
	rootCmd.AddCommand(rootsCmd)
	rootCmd.AddCommand(lookupCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(inspectCmd)
}

// loadConfig reads the config file, if any, and applies explicitly set
// flags on top of it.
func loadConfig(cmd *cobra.Command, _ []string) error {
	c := internal.DefaultConfig()
	if configPath != "" {
		loaded, err := internal.LoadConfig(configPath)
		if err != nil {
			return err
		}
		c = loaded
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		c.LogLevel = logLevel
	}
	if flags.Changed("log-format") {
		c.LogFormat = logFormat
	}
	if flags.Changed("format") {
		c.Format = outputFormat
	}
	if err := c.Validate(); err != nil {
		return err
	}
	internal.SetupLogger(c.LogLevel, c.LogFormat)
	cfg = c
	return nil
}

// resolveFormat returns the configured output format. Without one it uses
// fallback when non-empty, then text on a terminal and json otherwise.
func resolveFormat(fallback string) string {
	if cfg.Format != "" {
		return cfg.Format
	}
	if fallback != "" {
		return fallback
	}
	fd := os.Stdout.Fd()
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return "text"
	}
	return "json"
}
