package cmd

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or manage configuration",
	Long: `Show or manage crev configuration.

Running bare 'crev config' is the same as 'crev config show'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config file with commented defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configInitRun()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration with sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open config file in $EDITOR",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configEditRun()
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite existing config file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	rootCmd.AddCommand(configCmd)
}

// configTemplate is the template for generating config.yaml with comments.
// Secrets are left out; set them through the environment or a .env file.
const configTemplate = `# crev configuration
# See: crev config show (for effective values and sources)

# GitHub
github:
  # Token: prefer GITHUB_TOKEN or CREV_GITHUB_TOKEN in the environment
  # token: ""

  # API root, change for GitHub Enterprise
  api_url: "{{ .GitHubAPIURL }}"

  # Timeout for each GitHub API call
  timeout: {{ .GitHubTimeout }}

  # File extensions fetched for review
  extensions: [{{ .Extensions }}]

  # gitignore-style patterns excluded from review, e.g. ["vendor/", "*_test.go"]
  ignore: []

# Language model
llm:
  # "openai" or "anthropic"
  provider: "{{ .Provider }}"
  temperature: {{ .Temperature }}
  max_tokens: {{ .MaxTokens }}

openai:
  # api_key: prefer OPENAI_API_KEY in the environment
  model: "{{ .OpenAIModel }}"

anthropic:
  # api_key: prefer ANTHROPIC_API_KEY in the environment
  model: "{{ .AnthropicModel }}"

review:
  # Characters of each file included in the prompt
  max_content_chars: {{ .MaxContentChars }}

  # Deadline for a whole review
  timeout: {{ .ReviewTimeout }}

log:
  # debug, info, warn or error
  level: "{{ .LogLevel }}"
  # text or json
  format: "{{ .LogFormat }}"

# HTTP API (crev serve)
host: "{{ .Host }}"
port: {{ .Port }}
`

type configTemplateData struct {
	GitHubAPIURL    string
	GitHubTimeout   string
	Extensions      string
	Provider        string
	Temperature     float64
	MaxTokens       int
	OpenAIModel     string
	AnthropicModel  string
	MaxContentChars int
	ReviewTimeout   string
	LogLevel        string
	LogFormat       string
	Host            string
	Port            int
}

func configFilePath() (string, error) {
	dir, err := configDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return strings.Join(quoted, ", ")
}

func configInitRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if file already exists
	if _, err := os.Stat(cfgPath); err == nil {
		if !configForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", cfgPath)
		}
		ui.Warning("Overwriting existing config file")
	}

	// Build template data from current viper values
	data := configTemplateData{
		GitHubAPIURL:    viper.GetString("github.api_url"),
		GitHubTimeout:   viper.GetDuration("github.timeout").String(),
		Extensions:      quoteList(viper.GetStringSlice("github.extensions")),
		Provider:        viper.GetString("llm.provider"),
		Temperature:     viper.GetFloat64("llm.temperature"),
		MaxTokens:       viper.GetInt("llm.max_tokens"),
		OpenAIModel:     viper.GetString("openai.model"),
		AnthropicModel:  viper.GetString("anthropic.model"),
		MaxContentChars: viper.GetInt("review.max_content_chars"),
		ReviewTimeout:   viper.GetDuration("review.timeout").String(),
		LogLevel:        viper.GetString("log.level"),
		LogFormat:       viper.GetString("log.format"),
		Host:            viper.GetString("host"),
		Port:            viper.GetInt("port"),
	}

	tmpl, err := template.New("config").Parse(configTemplate)
	if err != nil {
		return fmt.Errorf("template parse error: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("template execute error: %w", err)
	}

	// Create config directory
	dir := filepath.Dir(cfgPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(cfgPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	ui.Success("Config file created: %s", cfgPath)
	fmt.Fprintln(ui.Out)
	fmt.Fprint(ui.Out, buf.String())
	return nil
}

// configKeyInfo describes a config key for display purposes.
type configKeyInfo struct {
	Key      string
	EnvVar   string
	Fallback string // conventional env var read when the key is unset
	Secret   bool
}

var configKeys = []configKeyInfo{
	{Key: "github.token", EnvVar: "CREV_GITHUB_TOKEN", Fallback: "GITHUB_TOKEN", Secret: true},
	{Key: "github.api_url", EnvVar: "CREV_GITHUB_API_URL"},
	{Key: "github.timeout", EnvVar: "CREV_GITHUB_TIMEOUT"},
	{Key: "github.extensions", EnvVar: "CREV_GITHUB_EXTENSIONS"},
	{Key: "github.ignore", EnvVar: "CREV_GITHUB_IGNORE"},
	{Key: "llm.provider", EnvVar: "CREV_LLM_PROVIDER"},
	{Key: "llm.temperature", EnvVar: "CREV_LLM_TEMPERATURE"},
	{Key: "llm.max_tokens", EnvVar: "CREV_LLM_MAX_TOKENS"},
	{Key: "openai.api_key", EnvVar: "CREV_OPENAI_API_KEY", Fallback: "OPENAI_API_KEY", Secret: true},
	{Key: "openai.model", EnvVar: "CREV_OPENAI_MODEL"},
	{Key: "anthropic.api_key", EnvVar: "CREV_ANTHROPIC_API_KEY", Fallback: "ANTHROPIC_API_KEY", Secret: true},
	{Key: "anthropic.model", EnvVar: "CREV_ANTHROPIC_MODEL"},
	{Key: "review.max_content_chars", EnvVar: "CREV_REVIEW_MAX_CONTENT_CHARS"},
	{Key: "review.timeout", EnvVar: "CREV_REVIEW_TIMEOUT"},
	{Key: "log.level", EnvVar: "CREV_LOG_LEVEL"},
	{Key: "log.format", EnvVar: "CREV_LOG_FORMAT"},
	{Key: "host", EnvVar: "CREV_HOST"},
	{Key: "port", EnvVar: "CREV_PORT"},
}

func configShowRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if config file exists
	if _, err := os.Stat(cfgPath); err == nil {
		ui.Info("Config file: %s", cfgPath)
	} else {
		ui.Info("Config file: (none)")
	}
	fmt.Fprintln(ui.Out)

	// Read config file values to determine file source
	fileValues := readConfigFileValues(cfgPath)

	for _, k := range configKeys {
		val := viper.Get(k.Key)
		source := detectSource(k, fileValues)
		if k.Secret {
			val = mask(credential(k.Key, k.Fallback))
		}
		fmt.Fprintf(ui.Out, "  %-26s %v  %s\n", k.Key, val, source)
	}

	return nil
}

// mask hides all but the last four characters of a secret.
func mask(s string) string {
	if s == "" {
		return "(unset)"
	}
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}

// readConfigFileValues reads the raw YAML file and returns a flat map of keys present in it.
func readConfigFileValues(path string) map[string]bool {
	result := make(map[string]bool)

	data, err := os.ReadFile(path)
	if err != nil {
		return result
	}

	var parsed map[string]any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return result
	}

	// Flatten nested keys with dot notation
	flattenKeys("", parsed, result)
	return result
}

// flattenKeys recursively flattens a nested map to dot-notation keys.
func flattenKeys(prefix string, m map[string]any, result map[string]bool) {
	for key, val := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}
		if nested, ok := val.(map[string]any); ok {
			flattenKeys(fullKey, nested, result)
		} else {
			result[fullKey] = true
		}
	}
}

// detectSource determines where a config value is coming from.
func detectSource(k configKeyInfo, fileValues map[string]bool) string {
	if _, ok := os.LookupEnv(k.EnvVar); ok {
		return fmt.Sprintf("(env: %s)", k.EnvVar)
	}
	if fileValues[k.Key] {
		return "(file)"
	}
	if k.Fallback != "" {
		if _, ok := os.LookupEnv(k.Fallback); ok {
			return fmt.Sprintf("(env: %s)", k.Fallback)
		}
	}
	return "(default)"
}

func configEditRun() error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		return fmt.Errorf("$EDITOR is not set, set it to your preferred editor (e.g. export EDITOR=vim)")
	}

	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s (run 'crev config init' first)", cfgPath)
	}

	editCmd := exec.Command(editor, cfgPath)
	editCmd.Stdin = os.Stdin
	editCmd.Stdout = os.Stdout
	editCmd.Stderr = os.Stderr
	return editCmd.Run()
}
