// internal/cli/root.go
// Package miasma wires the cobra command set for the experiment harness.
package miasma

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mwiater/miasma/internal/appconfig"
	"github.com/mwiater/miasma/internal/logging"
)

var (
	cfgFile       string
	currentConfig *appconfig.Config
	appVersion    = "dev"
	appCommit     = "none"
	appDate       = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "miasma",
	Short: "miasma — prompt pollution experiment harness for Ollama tool calling",
	Long: `miasma runs controlled prompt pollution experiments against local Ollama
models: it generates prompts with a configurable amount of repeated report
context, lets the model answer with native tool calling against a mock tool
backend, classifies every response (STC, FNC, FWT, FH) and persists the
results for analysis.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := ensureConfigLoaded(cmd.Flags().Changed("config")); err != nil {
			return err
		}

		if !cmd.Flags().Changed("debug") {
			_ = cmd.Flags().Set("debug", strconv.FormatBool(viper.GetBool("debug")))
		}
		for flagName, key := range map[string]string{
			"ollama-host":  "ollamaHost",
			"database-url": "databaseUrl",
			"log-file":     "logFile",
		} {
			if !cmd.Flags().Changed(flagName) {
				_ = cmd.Flags().Set(flagName, viper.GetString(key))
			}
		}

		var cfg appconfig.Config
		if err := viper.Unmarshal(&cfg); err != nil {
			return fmt.Errorf("unmarshal config: %w", err)
		}
		if configLoaded {
			cfg.ConfigPath = viper.ConfigFileUsed()
		}
		currentConfig = &cfg

		if err := logging.Init(currentConfig.LogFilePath()); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		return nil
	},
}

// configLoaded reports whether a config file was actually read, as opposed to
// running on defaults.
var configLoaded bool

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", appVersion, appCommit, appDate)

	defer logging.Close()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", appconfig.DefaultConfigPath, "config file (e.g., config/miasma.config.json)")

	rootCmd.PersistentFlags().String("ollama-host", "", "Ollama host URL (overrides config)")
	rootCmd.PersistentFlags().String("database-url", "", "Postgres connection string (overrides config)")
	rootCmd.PersistentFlags().String("log-file", "", "path to the log file")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	_ = viper.BindPFlag("ollamaHost", rootCmd.PersistentFlags().Lookup("ollama-host"))
	_ = viper.BindPFlag("databaseUrl", rootCmd.PersistentFlags().Lookup("database-url"))
	_ = viper.BindPFlag("logFile", rootCmd.PersistentFlags().Lookup("log-file"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))

	_ = viper.BindEnv("ollamaHost", "MIASMA_OLLAMA_HOST")
	_ = viper.BindEnv("databaseUrl", "MIASMA_DATABASE_URL")
	_ = viper.BindEnv("logFile", "MIASMA_LOG_FILE")
	_ = viper.BindEnv("debug", "MIASMA_DEBUG")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

// ensureConfigLoaded reads the config and seeds viper with the built-in
// defaults. A missing file at the default path is fine; a missing file the
// user named explicitly is an error.
func ensureConfigLoaded(explicit bool) error {
	defaults := appconfig.Default()
	viper.SetDefault("ollamaHost", defaults.OllamaHost)
	viper.SetDefault("databaseUrl", defaults.DatabaseURL)
	viper.SetDefault("timeout", defaults.TimeoutSeconds)
	viper.SetDefault("logFile", defaults.LogFile)
	viper.SetDefault("debug", defaults.Debug)
	viper.SetDefault("temperature", defaults.Temperature)
	viper.SetDefault("seed", defaults.Seed)
	viper.SetDefault("numCtx", defaults.NumCtx)
	viper.SetDefault("defaultIterations", defaults.DefaultIterations)
	viper.SetDefault("defaultPollutionLevels", defaults.DefaultPollutionLevels)
	viper.SetDefault("defaultDifficulty", defaults.DefaultDifficulty)
	viper.SetDefault("defaultToolSet", defaults.DefaultToolSet)
	viper.SetDefault("defaultPlacement", defaults.DefaultPlacement)
	viper.SetDefault("targetTool", defaults.TargetTool)

	configLoaded = false
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("failed to load config: %w", err)
	}
	configLoaded = true
	return nil
}

// GetConfig returns the loaded application configuration for other packages.
func GetConfig() *appconfig.Config {
	return currentConfig
}

// DebugEnabled returns true if debug mode is enabled.
func DebugEnabled() bool { return viper.GetBool("debug") }

// SetVersionInfo allows the main package to inject build-time variables.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

// splitCSV splits a comma-separated flag value into trimmed, non-empty parts.
func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseLevels parses a comma-separated list of pollution levels.
func parseLevels(raw string) ([]float64, error) {
	parts := splitCSV(raw)
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		level, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid pollution level %q", p)
		}
		out = append(out, level)
	}
	return out, nil
}
