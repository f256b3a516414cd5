package evaluation

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/dyike/marktbot/internal/llm"
	"github.com/dyike/marktbot/internal/logger"
	"github.com/dyike/marktbot/internal/models"
	"github.com/dyike/marktbot/internal/price"
)

const DefaultBrief = "You evaluate broken coffee machines for repair and resale."

const evaluationInstruction = "Provide a JSON object with keys rating (1-5, 5=best), reason, and message (Dutch). " +
	"The message is a short, friendly first message to the seller."

// Evaluator asks the model to judge a listing and parses the answer.
type Evaluator struct {
	completer llm.Completer
	template  prompt.ChatTemplate
	brief     string
	log       *zap.Logger
}

type Option func(*evaluatorOptions)

type evaluatorOptions struct {
	brief  string
	logger *zap.Logger
}

// WithBrief replaces the system brief describing what makes a listing good.
func WithBrief(brief string) Option {
	return func(o *evaluatorOptions) {
		if brief != "" {
			o.brief = brief
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(o *evaluatorOptions) {
		o.logger = l
	}
}

func NewEvaluator(c llm.Completer, opts ...Option) *Evaluator {
	options := evaluatorOptions{brief: DefaultBrief}
	for _, opt := range opts {
		opt(&options)
	}

	template := prompt.FromMessages(schema.FString,
		schema.SystemMessage("{brief}"),
		schema.UserMessage("Title: {title}\nPrice: {price}\n"+evaluationInstruction),
	)
	return &Evaluator{
		completer: c,
		template:  template,
		brief:     options.brief,
		log:       logger.OrNop(options.logger),
	}
}

// Evaluate returns an error only when the completion itself fails; any
// text the model returns becomes a best-effort Evaluation.
func (e *Evaluator) Evaluate(ctx context.Context, l models.Listing) (models.Evaluation, error) {
	messages, err := e.template.Format(ctx, map[string]any{
		"brief": e.brief,
		"title": l.Title,
		"price": price.Format(l.Price),
	})
	if err != nil {
		return models.Evaluation{}, fmt.Errorf("render evaluation prompt: %w", err)
	}

	raw, err := e.completer.Complete(ctx, messages)
	if err != nil {
		return models.Evaluation{}, fmt.Errorf("evaluate listing %s: %w", l.ID, err)
	}

	ev := Parse(raw)
	if ev.Degraded {
		e.log.Debug("evaluation parsed with fallback", zap.String("listing", l.ID), zap.Int("rating", ev.Rating))
	}
	return ev, nil
}
