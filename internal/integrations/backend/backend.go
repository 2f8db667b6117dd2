// Package backend selects and configures the text-generation client.
package backend

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"podcast-agent/internal/config"
	"podcast-agent/internal/integrations/ollama"
	"podcast-agent/internal/integrations/openai"
	"podcast-agent/internal/integrations/paramstore"
)

const defaultAPIKeyEnv = "OPENAI_API_KEY"

// Client is what the session and the connectivity check need from a backend.
type Client interface {
	Generate(ctx context.Context, userInstruction, systemInstruction string, maxTokens int) (string, error)
	Ping(ctx context.Context) error
	Model() string
}

// New builds the client named by cfg.Backend.Provider for the configured
// model. params is only needed when the OpenAI key lives in Parameter Store.
func New(cfg *config.Config, params paramstore.Getter, logger *zap.Logger) (Client, error) {
	if cfg == nil {
		return nil, errors.New("backend: config must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	b := cfg.Backend
	model := cfg.Podcast.OllamaModel

	switch strings.ToLower(strings.TrimSpace(b.Provider)) {
	case "", config.ProviderOllama:
		return ollama.NewClient(
			ollama.WithBaseURL(b.BaseURL),
			ollama.WithModel(model),
			ollama.WithTimeout(b.Timeout),
			ollama.WithLogger(logger.Named("ollama")),
		), nil

	case config.ProviderOpenAI:
		opts := []openai.Option{
			openai.WithBaseURL(b.BaseURL),
			openai.WithTimeout(b.Timeout),
			openai.WithLogger(logger.Named("openai")),
		}
		envKey := b.APIKeyEnv
		if envKey == "" {
			envKey = defaultAPIKeyEnv
		}
		if key := strings.TrimSpace(os.Getenv(envKey)); key != "" {
			opts = append(opts, openai.WithAPIKey(key))
		} else if b.APIKeyParam != "" {
			if params == nil {
				return nil, fmt.Errorf("backend: api_key_param %q set but no parameter store is configured", b.APIKeyParam)
			}
			opts = append(opts, openai.WithAPIKeyParam(params, b.APIKeyParam))
		}
		c, err := openai.NewClient(model, opts...)
		if err != nil {
			return nil, fmt.Errorf("backend: %w", err)
		}
		return c, nil

	default:
		return nil, fmt.Errorf("backend: unsupported provider %q", b.Provider)
	}
}
