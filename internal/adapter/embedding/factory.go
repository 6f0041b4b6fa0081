package embedding

import (
	"fmt"

	"hrprag/config"
	"hrprag/internal/domain"
	"hrprag/internal/port"
)

// New builds the embedder named by the embedding section of the config.
// A positive Dimension overrides the size guessed from the model name.
func New(cfg config.EmbeddingConfig) (port.Embedder, error) {
	if cfg.Provider == "hash" {
		return NewHashEmbedder(cfg.Dimension), nil
	}

	var (
		e   *OpenAIEmbedder
		err error
	)
	switch cfg.Provider {
	case "ollama":
		e = NewOllamaEmbedder(cfg.Model, cfg.BaseURL, cfg.Timeout)
	case "openai":
		if cfg.BaseURL != "" {
			e, err = NewOpenAICompatibleEmbedder(cfg.APIKeyEnv, cfg.Model, cfg.BaseURL, cfg.Timeout)
		} else {
			e, err = NewOpenAIEmbedder(cfg.APIKeyEnv, cfg.Model, cfg.Timeout)
		}
	case "deepseek":
		e, err = NewDeepSeekEmbedder(cfg.APIKeyEnv, cfg.Model, cfg.Timeout)
	case "jina":
		e, err = NewJinaEmbedder(cfg.APIKeyEnv, cfg.Model, cfg.Timeout)
	default:
		return nil, fmt.Errorf("%w: unknown embedding provider %q", domain.ErrConfig, cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	if cfg.Dimension > 0 {
		e.WithDimension(cfg.Dimension)
	}
	return e, nil
}
