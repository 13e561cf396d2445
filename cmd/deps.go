package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/joescharf/crev/internal/github"
	"github.com/joescharf/crev/internal/llm"
	"github.com/joescharf/crev/internal/review"
)

var errMissingCredentials = errors.New("Missing required environment variables")

// credential reads key from config, falling back to the conventional env var.
func credential(key, envVar string) string {
	if v := strings.TrimSpace(viper.GetString(key)); v != "" {
		return v
	}
	return strings.TrimSpace(os.Getenv(envVar))
}

// llmConfig resolves the configured provider's settings.
func llmConfig() llm.Config {
	provider := strings.ToLower(viper.GetString("llm.provider"))
	switch provider {
	case "anthropic":
		return llm.Config{
			Provider: provider,
			APIKey:   credential("anthropic.api_key", "ANTHROPIC_API_KEY"),
			Model:    viper.GetString("anthropic.model"),
			BaseURL:  viper.GetString("anthropic.base_url"),
		}
	default:
		return llm.Config{
			Provider: provider,
			APIKey:   credential("openai.api_key", "OPENAI_API_KEY"),
			Model:    viper.GetString("openai.model"),
			BaseURL:  viper.GetString("openai.base_url"),
		}
	}
}

// missingCredentials lists the env vars whose values are absent.
func missingCredentials() []string {
	var missing []string
	if credential("github.token", "GITHUB_TOKEN") == "" {
		missing = append(missing, "GITHUB_TOKEN")
	}
	if llmConfig().APIKey == "" {
		if strings.EqualFold(viper.GetString("llm.provider"), "anthropic") {
			missing = append(missing, "ANTHROPIC_API_KEY")
		} else {
			missing = append(missing, "OPENAI_API_KEY")
		}
	}
	return missing
}

func newFetcher(opts ...github.Option) (*github.Client, error) {
	return github.NewClient(github.Config{
		Token:      credential("github.token", "GITHUB_TOKEN"),
		BaseURL:    viper.GetString("github.api_url"),
		Timeout:    viper.GetDuration("github.timeout"),
		Extensions: viper.GetStringSlice("github.extensions"),
		Ignore:     viper.GetStringSlice("github.ignore"),
	}, append([]github.Option{github.WithLogger(slog.Default())}, opts...)...)
}

func newAnalyzer() (*review.Analyzer, error) {
	completer, err := llm.New(llmConfig())
	if err != nil {
		return nil, err
	}
	return review.NewAnalyzer(completer, review.AnalyzerConfig{
		Temperature:     viper.GetFloat64("llm.temperature"),
		MaxTokens:       viper.GetInt("llm.max_tokens"),
		MaxContentChars: viper.GetInt("review.max_content_chars"),
	}), nil
}

// newService wires the review pipeline from configuration. It fails with
// errMissingCredentials when a required secret is absent.
func newService(opts ...github.Option) (*review.Service, error) {
	if missing := missingCredentials(); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", errMissingCredentials, strings.Join(missing, ", "))
	}

	fetcher, err := newFetcher(opts...)
	if err != nil {
		return nil, fmt.Errorf("github client: %w", err)
	}
	analyzer, err := newAnalyzer()
	if err != nil {
		return nil, fmt.Errorf("llm client: %w", err)
	}
	return review.NewService(fetcher, analyzer, viper.GetDuration("review.timeout"), slog.Default()), nil
}
