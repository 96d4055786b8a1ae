package llmadapter

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"github.com/sketchloom/sessionengine/internal/config"
)

// NewClaudeBackend constructs an eino chat model backed by Anthropic Claude.
func NewClaudeBackend(ctx context.Context, cfg config.ProviderConfig, modelID string) (model.ToolCallingChatModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic provider: api key not configured")
	}
	if modelID == "" {
		modelID = "claude-sonnet-4-20250514"
	}

	claudeCfg := &claude.Config{
		APIKey: cfg.APIKey,
		Model:  modelID,
	}
	if cfg.BaseURL != "" {
		claudeCfg.BaseURL = &cfg.BaseURL
	}

	chatModel, err := claude.NewChatModel(ctx, claudeCfg)
	if err != nil {
		return nil, fmt.Errorf("creating claude chat model: %w", err)
	}
	return chatModel, nil
}

// NewOpenAIBackend constructs an eino chat model backed by OpenAI.
func NewOpenAIBackend(ctx context.Context, cfg config.ProviderConfig, modelID string) (model.ToolCallingChatModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai provider: api key not configured")
	}
	if modelID == "" {
		modelID = "gpt-4o"
	}

	maxTokens := 4096
	openaiCfg := &openai.ChatModelConfig{
		APIKey:              cfg.APIKey,
		Model:               modelID,
		MaxCompletionTokens: &maxTokens,
	}
	if cfg.BaseURL != "" {
		openaiCfg.BaseURL = cfg.BaseURL
	}

	chatModel, err := openai.NewChatModel(ctx, openaiCfg)
	if err != nil {
		return nil, fmt.Errorf("creating openai chat model: %w", err)
	}
	return chatModel, nil
}
