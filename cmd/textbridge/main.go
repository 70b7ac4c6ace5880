// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the textbridge CLI. It converts
// images, PDFs and spreadsheets to text (Base64 or JSON records) and back,
// runs batch conversions, and answers questions about PDF content.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/textbridge/internal/history"
	"github.com/pdiddy/textbridge/internal/metrics"
	"github.com/pdiddy/textbridge/internal/secrets"
	"github.com/pdiddy/textbridge/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

const secretsDir = ".secrets/"

// cfg holds the configuration loaded before every command runs.
var cfg types.Config

var rootCmd = &cobra.Command{
	Use:   "textbridge",
	Short: "Convert images, PDFs and spreadsheets to text and back",
	Long: `textbridge turns binary files into text and text back into files.
Images and PDFs become Base64 (optionally as data URLs); spreadsheets become
JSON records. Batches of files can be bundled into one aggregate artifact
(JSON, CSV, XML, YAML or TXT) and JSON aggregates expanded back into files.

The ask command answers questions about a PDF's text with an OpenAI chat
model. The API key is read from .secrets/openai-api-key, the config file,
TEXTBRIDGE_OPENAI_API_KEY or OPENAI_API_KEY.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig()
		if err != nil {
			return err
		}
		cfg = c
		setupLogging(cfg.LogLevel)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if cfg.MetricsFile == "" {
			return nil
		}
		return metrics.WriteTextfile(cfg.MetricsFile)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./textbridge.yaml or ~/.config/textbridge/textbridge.yaml)")
	rootCmd.PersistentFlags().Bool("json", false, "print results as JSON")
	rootCmd.PersistentFlags().String("metrics-file", "", "write Prometheus text-format metrics to this file on exit")
	rootCmd.PersistentFlags().String("log-level", "", "diagnostic log level: debug, info, warn, error")

	viper.BindPFlag("metrics_file", rootCmd.PersistentFlags().Lookup("metrics-file"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func setDefaults() {
	viper.SetDefault("image.quality", 95)
	viper.SetDefault("image.optimize", false)
	viper.SetDefault("image.include_mime", false)
	viper.SetDefault("pdf.strict", false)
	viper.SetDefault("pdf.include_mime", false)
	viper.SetDefault("sheet.default_sheet", "Sheet1")
	viper.SetDefault("sheet.expand_format", "xlsx")
	viper.SetDefault("query.base_url", "")
	viper.SetDefault("query.api_key", "")
	viper.SetDefault("query.model", "gpt-3.5-turbo")
	viper.SetDefault("query.max_tokens", 500)
	viper.SetDefault("query.temperature", 0.7)
	viper.SetDefault("query.cache_capacity", 10)
	viper.SetDefault("history.enabled", true)
	viper.SetDefault("history.dir", defaultHistoryDir())
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("metrics_file", "")
}

func defaultHistoryDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".textbridge"
	}
	return filepath.Join(home, ".local", "share", "textbridge")
}

func initConfig() {
	setDefaults()

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("textbridge")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "textbridge"))
		}
	}

	viper.SetEnvPrefix("TEXTBRIDGE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func loadConfig() (types.Config, error) {
	var c types.Config
	if err := viper.Unmarshal(&c); err != nil {
		return types.Config{}, fmt.Errorf("parsing configuration: %w", err)
	}
	return c, nil
}

func setupLogging(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelWarn
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

// jsonOutput reports whether --json was given.
func jsonOutput(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

// progressWriter is where per-item progress lines go: stdout normally,
// stderr when stdout carries JSON.
func progressWriter(cmd *cobra.Command) io.Writer {
	if jsonOutput(cmd) {
		return os.Stderr
	}
	return os.Stdout
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// apiKey resolves the completion API key from secrets, config and environment.
func apiKey() (string, error) {
	return secrets.OpenAIKey(secretsDir, cfg.Query.APIKey)
}

// record stores e in the history database when history is enabled. Failures
// are logged, never returned: history must not fail a conversion.
func record(ctx context.Context, e history.Entry) {
	if !cfg.History.Enabled || cfg.History.Dir == "" {
		return
	}
	store, err := history.Open(cfg.History.Dir)
	if err != nil {
		slog.Warn("history unavailable", "error", err)
		return
	}
	defer store.Close()
	if _, err := store.Record(ctx, e); err != nil {
		slog.Warn("recording history", "error", err)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
