package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	openai "github.com/sashabaranov/go-openai"

	"github.com/dyike/marktbot/internal/config"
)

// JSONModeCompleter talks to an OpenAI-compatible endpoint directly and asks
// for a JSON object response, which keeps most evaluations on the strict
// parse path.
type JSONModeCompleter struct {
	client    *openai.Client
	model     string
	maxTokens int
}

func newOpenAIJSON(cfg *config.Config) *JSONModeCompleter {
	clientCfg := openai.DefaultConfig(cfg.LLMAPIKey)
	if cfg.LLMBaseURL != "" {
		clientCfg.BaseURL = cfg.LLMBaseURL
	}
	modelName := cfg.LLMModel
	if modelName == "" || modelName == "deepseek-chat" {
		modelName = openai.GPT4oMini
	}
	return &JSONModeCompleter{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     modelName,
		maxTokens: cfg.LLMMaxToken,
	}
}

func (c *JSONModeCompleter) Complete(ctx context.Context, messages []*schema.Message) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:     c.model,
		Messages:  toOpenAIMessages(messages),
		MaxTokens: c.maxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("llm: openai error: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}

func toOpenAIMessages(messages []*schema.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		if m == nil {
			continue
		}
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case schema.System:
			role = openai.ChatMessageRoleSystem
		case schema.Assistant:
			role = openai.ChatMessageRoleAssistant
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return out
}
