package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/dyike/marktbot/consts"
	"github.com/dyike/marktbot/internal/config"
)

var ErrEmptyCompletion = errors.New("llm: empty completion")

// Completer is the black-box text completion service. Its output is
// untyped; callers run it through a tolerant parser.
type Completer interface {
	Complete(ctx context.Context, messages []*schema.Message) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, messages []*schema.Message) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, messages []*schema.Message) (string, error) {
	return f(ctx, messages)
}

// NewCompleter builds the backend selected by cfg.LLMProvider.
func NewCompleter(ctx context.Context, cfg *config.Config) (Completer, error) {
	if strings.TrimSpace(cfg.LLMAPIKey) == "" {
		return nil, fmt.Errorf("llm: api key is not set (LLM_API_KEY)")
	}
	switch cfg.LLMProvider {
	case consts.Provider_DeepSeek:
		return newDeepSeek(ctx, cfg)
	case consts.Provider_OpenAI:
		return newOpenAI(ctx, cfg)
	case consts.Provider_OpenAIJSON:
		return newOpenAIJSON(cfg), nil
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.LLMProvider)
	}
}
