package ai

import (
	"fmt"
	"log/slog"
	"net/http"
)

// ProviderConfig carries the credentials for every supported provider.
type ProviderConfig struct {
	Order        []string
	OpenAIAPIKey string
	OpenAIAPIURL string
	OpenAIModel  string
	GeminiAPIKey string
	GeminiModel  string
	HTTPClient   *http.Client
}

// BuildProviders returns the providers named in Order that have a key
// configured. Providers without credentials are skipped; an empty result
// puts the grader in demo mode.
func BuildProviders(cfg ProviderConfig) ([]Provider, error) {
	var out []Provider
	for _, name := range cfg.Order {
		switch name {
		case "openai":
			if cfg.OpenAIAPIKey == "" {
				slog.Info("AI provider skipped: no credentials", "provider", name)
				continue
			}
			out = append(out, NewOpenAIProvider(cfg.OpenAIAPIURL, cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.HTTPClient))
		case "gemini":
			if cfg.GeminiAPIKey == "" {
				slog.Info("AI provider skipped: no credentials", "provider", name)
				continue
			}
			out = append(out, NewGeminiProvider(cfg.GeminiAPIKey, cfg.GeminiModel))
		default:
			return nil, fmt.Errorf("unknown AI provider %q", name)
		}
	}
	return out, nil
}
