package negotiation

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/dyike/marktbot/internal/models"
)

var (
	ErrNegotiationExists = errors.New("negotiation already exists for listing")
	ErrInvalidTransition = errors.New("invalid negotiation transition")
	ErrNotFound          = errors.New("negotiation not found")
)

// Store is the keyed negotiation state. Advance must reject anything but a
// single step forward, so stages can never regress or pass ACCEPTED.
type Store interface {
	Get(ctx context.Context, listingID string) (models.NegotiationRecord, bool, error)
	Create(ctx context.Context, rec models.NegotiationRecord) error
	Advance(ctx context.Context, rec models.NegotiationRecord) error
	List(ctx context.Context) ([]models.NegotiationRecord, error)
}

// MemoryStore keeps records in process memory. State is lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]models.NegotiationRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]models.NegotiationRecord)}
}

func (s *MemoryStore) Get(_ context.Context, listingID string) (models.NegotiationRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[listingID]
	return rec, ok, nil
}

func (s *MemoryStore) Create(_ context.Context, rec models.NegotiationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.ListingID]; ok {
		return ErrNegotiationExists
	}
	if rec.Stage != models.StageAsked {
		return ErrInvalidTransition
	}
	s.records[rec.ListingID] = rec
	return nil
}

func (s *MemoryStore) Advance(_ context.Context, rec models.NegotiationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.records[rec.ListingID]
	if !ok {
		return ErrNotFound
	}
	if !current.Stage.CanAdvanceTo(rec.Stage) {
		return ErrInvalidTransition
	}
	s.records[rec.ListingID] = rec
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]models.NegotiationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.NegotiationRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
