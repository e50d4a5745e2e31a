package factory

import (
	"fmt"

	"github.com/mikey/llm-mail-assistant/internal/adapters/bedrock"
	"github.com/mikey/llm-mail-assistant/internal/adapters/gemini"
	"github.com/mikey/llm-mail-assistant/internal/adapters/openai"
	"github.com/mikey/llm-mail-assistant/internal/config"
	"github.com/mikey/llm-mail-assistant/internal/core"
	"go.uber.org/zap"
)

// LLMFactory creates completion clients
type LLMFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewLLMFactory creates a new LLM factory
func NewLLMFactory(cfg *config.Config, logger *zap.Logger) *LLMFactory {
	return &LLMFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateCompleter creates a completion client based on the configured provider
func (f *LLMFactory) CreateCompleter() (core.Completer, error) {
	llmConfig := f.cfg.GetLLM()

	var (
		completer core.Completer
		err       error
	)
	switch llmConfig.Provider {
	case "bedrock":
		completer, err = asCompleter(bedrock.NewFactory(f.cfg, f.logger).CreateClient())
	case "gemini":
		completer, err = asCompleter(gemini.NewFactory(f.cfg, f.logger).CreateClient())
	case "openai", "groq":
		completer, err = asCompleter(openai.NewFactory(f.cfg, f.logger).CreateClient())
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", llmConfig.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", llmConfig.Provider, err)
	}
	return completer, nil
}

// asCompleter returns a nil Completer when client creation failed
func asCompleter[C core.Completer](client C, err error) (core.Completer, error) {
	if err != nil {
		return nil, err
	}
	return client, nil
}
