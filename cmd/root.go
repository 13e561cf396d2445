package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/crev/internal/github"
	"github.com/joescharf/crev/internal/llm"
	"github.com/joescharf/crev/internal/logging"
	"github.com/joescharf/crev/internal/output"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui *output.UI

	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "crev",
	Short: "Review candidate GitHub repositories with an LLM",
	Long: `crev fetches the source files of a candidate's GitHub repository and
asks a language model to review them against an assignment description
and an expected seniority level.

It runs as a one-shot CLI (crev review), an HTTP service (crev serve)
or an MCP stdio server (crev mcp).`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/crev/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	// .env in the working directory is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: cannot load .env: %v\n", err)
	}

	// If --config is explicitly set, use that file
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if dir, err := configDirFunc(); err == nil {
		viper.AddConfigPath(dir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("CREV")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	// Read config file if it exists (optional)
	_ = viper.ReadInConfig()
}

// setDefaults registers the default for every config key.
func setDefaults() {
	viper.SetDefault("github.token", "")
	viper.SetDefault("github.api_url", "https://api.github.com/")
	viper.SetDefault("github.timeout", github.DefaultTimeout)
	viper.SetDefault("github.extensions", github.DefaultExtensions)
	viper.SetDefault("github.ignore", []string{})

	viper.SetDefault("llm.provider", "openai")
	viper.SetDefault("llm.temperature", 0.7)
	viper.SetDefault("llm.max_tokens", 2000)
	viper.SetDefault("openai.api_key", "")
	viper.SetDefault("openai.model", llm.DefaultOpenAIModel)
	viper.SetDefault("openai.base_url", "")
	viper.SetDefault("anthropic.api_key", "")
	viper.SetDefault("anthropic.model", llm.DefaultAnthropicModel)
	viper.SetDefault("anthropic.base_url", "")

	viper.SetDefault("review.max_content_chars", 1000)
	viper.SetDefault("review.timeout", "5m")

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")

	viper.SetDefault("host", "0.0.0.0")
	viper.SetDefault("port", 8000)
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose

	cfg := logging.DefaultConfig()
	cfg.Format = viper.GetString("log.format")
	level, err := logging.ParseLevel(viper.GetString("log.level"))
	if err != nil {
		ui.Warning("%v, using info", err)
	}
	cfg.Level = level
	logging.New(cfg)
}

// configDirFunc returns the config directory path, replaceable in tests.
var configDirFunc = defaultConfigDir

func defaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "crev"), nil
}
