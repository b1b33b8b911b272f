package inference

import (
	"fmt"
	"log/slog"
	"strings"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config selects and configures a backend.
type Config struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}

// New builds the configured provider, wrapped with request logging.
func New(cfg Config, logger *slog.Logger) (Completer, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	var c Completer
	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenAI, "":
		c = NewOpenAIProvider(cfg.APIKey, cfg.Model, cfg.BaseURL)
	case ProviderAnthropic:
		c = NewAnthropicProvider(cfg.APIKey, cfg.Model, cfg.BaseURL)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider)
	}
	return WithLogging(c, cfg.Provider, cfg.Model, logger), nil
}
