package negotiation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dyike/marktbot/internal/models"
)

func TestMemoryStoreCreate(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	rec := models.NegotiationRecord{ListingID: "m1", Stage: models.StageAsked}
	if err := s.Create(ctx, rec); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Create(ctx, rec); !errors.Is(err, ErrNegotiationExists) {
		t.Fatalf("second Create err = %v, want ErrNegotiationExists", err)
	}
	if err := s.Create(ctx, models.NegotiationRecord{ListingID: "m2", Stage: models.StageCountered}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("Create at COUNTERED err = %v, want ErrInvalidTransition", err)
	}

	got, ok, err := s.Get(ctx, "m1")
	if err != nil || !ok || got.Stage != models.StageAsked {
		t.Fatalf("Get = %+v, %v, %v", got, ok, err)
	}
	if _, ok, _ := s.Get(ctx, "m2"); ok {
		t.Fatalf("rejected record must not be stored")
	}
}

func TestMemoryStoreAdvanceOneStepOnly(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_ = s.Create(ctx, models.NegotiationRecord{ListingID: "m1", Stage: models.StageAsked})

	if err := s.Advance(ctx, models.NegotiationRecord{ListingID: "m1", Stage: models.StageAccepted}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("skipping COUNTERED err = %v", err)
	}
	if err := s.Advance(ctx, models.NegotiationRecord{ListingID: "m1", Stage: models.StageCountered}); err != nil {
		t.Fatalf("Advance to COUNTERED: %v", err)
	}
	if err := s.Advance(ctx, models.NegotiationRecord{ListingID: "m1", Stage: models.StageAsked}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("moving backward err = %v", err)
	}
	if err := s.Advance(ctx, models.NegotiationRecord{ListingID: "m1", Stage: models.StageAccepted}); err != nil {
		t.Fatalf("Advance to ACCEPTED: %v", err)
	}
	if err := s.Advance(ctx, models.NegotiationRecord{ListingID: "m1", Stage: models.StageAccepted}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("advancing past ACCEPTED err = %v", err)
	}
	if err := s.Advance(ctx, models.NegotiationRecord{ListingID: "nope", Stage: models.StageCountered}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown listing err = %v", err)
	}
}

func TestMemoryStoreListOrder(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"c", "a", "b"} {
		_ = s.Create(ctx, models.NegotiationRecord{
			ListingID: id,
			Stage:     models.StageAsked,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}

	recs, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(recs) != 3 || recs[0].ListingID != "c" || recs[1].ListingID != "a" || recs[2].ListingID != "b" {
		t.Fatalf("List order = %+v", recs)
	}
}
