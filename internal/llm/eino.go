package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/deepseek"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/dyike/marktbot/internal/config"
)

// ChatModelCompleter wraps any eino chat model.
type ChatModelCompleter struct {
	model model.BaseChatModel
}

func NewChatModelCompleter(m model.BaseChatModel) *ChatModelCompleter {
	return &ChatModelCompleter{model: m}
}

func (c *ChatModelCompleter) Complete(ctx context.Context, messages []*schema.Message) (string, error) {
	msg, err := c.model.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("llm: generate: %w", err)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return "", ErrEmptyCompletion
	}
	return msg.Content, nil
}

func newDeepSeek(ctx context.Context, cfg *config.Config) (Completer, error) {
	modelName := cfg.LLMModel
	if modelName == "" {
		modelName = "deepseek-chat"
	}
	chatModel, err := deepseek.NewChatModel(ctx, &deepseek.ChatModelConfig{
		APIKey:    cfg.LLMAPIKey,
		BaseURL:   cfg.LLMBaseURL,
		Model:     modelName,
		MaxTokens: cfg.LLMMaxToken,
	})
	if err != nil {
		return nil, fmt.Errorf("llm: create deepseek model: %w", err)
	}
	return NewChatModelCompleter(chatModel), nil
}

func newOpenAI(ctx context.Context, cfg *config.Config) (Completer, error) {
	baseURL := cfg.LLMBaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	modelName := cfg.LLMModel
	if modelName == "" || modelName == "deepseek-chat" {
		modelName = "gpt-4o-mini"
	}
	maxTokens := cfg.LLMMaxToken
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL:   baseURL,
		APIKey:    cfg.LLMAPIKey,
		Model:     modelName,
		MaxTokens: &maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("llm: create openai model: %w", err)
	}
	return NewChatModelCompleter(chatModel), nil
}
