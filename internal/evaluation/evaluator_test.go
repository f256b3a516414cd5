package evaluation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/shopspring/decimal"

	"github.com/dyike/marktbot/internal/llm"
	"github.com/dyike/marktbot/internal/models"
)

func TestEvaluatorRendersPromptAndParses(t *testing.T) {
	var seen []*schema.Message
	completer := llm.CompleterFunc(func(_ context.Context, msgs []*schema.Message) (string, error) {
		seen = msgs
		return `{"rating":5,"reason":"easy fix","message":"Hoi!"}`, nil
	})
	ev, err := NewEvaluator(completer).Evaluate(context.Background(), models.Listing{
		ID: "m1", Title: "Senseo {defect}", Price: decimal.RequireFromString("12.5"),
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if ev.Rating != 5 || ev.Message != "Hoi!" {
		t.Fatalf("unexpected evaluation %+v", ev)
	}
	if len(seen) != 2 || seen[0].Role != schema.System {
		t.Fatalf("unexpected prompt %+v", seen)
	}
	if !strings.Contains(seen[0].Content, "coffee machines") {
		t.Fatalf("default brief missing: %q", seen[0].Content)
	}
	if !strings.Contains(seen[1].Content, "Title: Senseo {defect}") || !strings.Contains(seen[1].Content, "€ 12,50") {
		t.Fatalf("listing not rendered into prompt: %q", seen[1].Content)
	}
}

func TestEvaluatorPropagatesCompletionFailure(t *testing.T) {
	boom := errors.New("rate limited")
	completer := llm.CompleterFunc(func(context.Context, []*schema.Message) (string, error) {
		return "", boom
	})
	_, err := NewEvaluator(completer, WithBrief("You evaluate bikes.")).Evaluate(context.Background(), models.Listing{ID: "m1"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected completion error, got %v", err)
	}
}
