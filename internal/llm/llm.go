package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedResponse means the provider answered but the envelope held no
// usable text.
var ErrMalformedResponse = errors.New("malformed completion response")

// Request is a single-turn chat completion request.
type Request struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int
}

// Completer sends one request to a text-generation API and returns the raw
// text of the single reply.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
	Name() string
}

// Config selects and configures a provider.
type Config struct {
	Provider string // "openai" or "anthropic"
	APIKey   string
	Model    string
	BaseURL  string
}

// New creates a Completer for cfg.Provider.
func New(cfg Config) (Completer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s API key not set", cfg.Provider)
	}
	switch strings.ToLower(cfg.Provider) {
	case "", "openai":
		return NewOpenAI(cfg), nil
	case "anthropic":
		return NewAnthropic(cfg), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
}
