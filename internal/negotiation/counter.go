package negotiation

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
	"github.com/shopspring/decimal"

	"github.com/dyike/marktbot/internal/evaluation"
	"github.com/dyike/marktbot/internal/llm"
	"github.com/dyike/marktbot/internal/models"
	"github.com/dyike/marktbot/internal/price"
)

// Counterer produces the counter-offer text sent after a seller names a price.
type Counterer interface {
	CounterOffer(ctx context.Context, rec models.NegotiationRecord, sellerPrice decimal.Decimal) (string, error)
}

// AICounterer asks the model for a counter-offer. The reply goes through
// the tolerant evaluation parser, so the text is never empty.
type AICounterer struct {
	completer llm.Completer
	template  prompt.ChatTemplate
	language  string
}

func NewAICounterer(c llm.Completer, locale string) *AICounterer {
	return &AICounterer{
		completer: c,
		language:  phrasesFor(locale).language,
		template: prompt.FromMessages(schema.FString,
			schema.SystemMessage("You negotiate politely on behalf of a buyer on a classifieds marketplace."),
			schema.UserMessage("Listing: {title}\nAsking price: {ask}\nThe seller now asks: {seller}\n"+
				"Write a short counter-offer in {language} below the seller's price. "+
				"Provide a JSON object with keys rating (1-5, how good the deal is), reason, and message (the counter-offer text)."),
		),
	}
}

func (a *AICounterer) CounterOffer(ctx context.Context, rec models.NegotiationRecord, sellerPrice decimal.Decimal) (string, error) {
	messages, err := a.template.Format(ctx, map[string]any{
		"title":    rec.Title,
		"ask":      price.Format(rec.AskPrice),
		"seller":   price.Format(sellerPrice),
		"language": a.language,
	})
	if err != nil {
		return "", fmt.Errorf("render counter-offer prompt: %w", err)
	}
	raw, err := a.completer.Complete(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("counter-offer for %s: %w", rec.ListingID, err)
	}
	return evaluation.Parse(raw).Message, nil
}
