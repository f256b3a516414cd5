// Package negotiation owns per-listing negotiation state and its
// transitions NONE → ASKED → COUNTERED → ACCEPTED.
package negotiation

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dyike/marktbot/internal/logger"
	"github.com/dyike/marktbot/internal/models"
)

// Messenger sends a message into a listing's conversation thread.
type Messenger interface {
	SendMessage(ctx context.Context, adID, body string) error
}

type Option func(*Machine)

func WithLocale(locale string) Option {
	return func(m *Machine) { m.locale = locale }
}

// WithDealHandler registers the deal-confirmed signal.
func WithDealHandler(fn func(models.NegotiationRecord)) Option {
	return func(m *Machine) { m.onDeal = fn }
}

func WithLogger(l *zap.Logger) Option {
	return func(m *Machine) { m.log = logger.OrNop(l) }
}

func WithClock(now func() time.Time) Option {
	return func(m *Machine) {
		if now != nil {
			m.now = now
		}
	}
}

// Machine applies transitions. All transitions for one listing id are
// serialized; different listings proceed independently.
type Machine struct {
	store     Store
	messenger Messenger
	counterer Counterer
	locale    string
	onDeal    func(models.NegotiationRecord)
	log       *zap.Logger
	now       func() time.Time

	locks sync.Map
}

func NewMachine(store Store, messenger Messenger, counterer Counterer, opts ...Option) *Machine {
	m := &Machine{
		store:     store,
		messenger: messenger,
		counterer: counterer,
		log:       zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Machine) lock(listingID string) func() {
	mu, _ := m.locks.LoadOrStore(listingID, &sync.Mutex{})
	l := mu.(*sync.Mutex)
	l.Lock()
	return l.Unlock
}

// Open sends the opening inquiry for a favorably evaluated listing and
// creates its record. A listing already under negotiation gets nothing.
func (m *Machine) Open(ctx context.Context, l models.Listing) (models.Transition, error) {
	id := strings.TrimSpace(l.ID)
	if id == "" {
		return models.Transition{}, fmt.Errorf("open negotiation: listing id is empty")
	}
	unlock := m.lock(id)
	defer unlock()

	if _, ok, err := m.store.Get(ctx, id); err != nil {
		return models.Transition{}, fmt.Errorf("open negotiation %s: %w", id, err)
	} else if ok {
		return models.Transition{}, ErrNegotiationExists
	}

	body := openingMessage(m.locale, l)
	if err := m.messenger.SendMessage(ctx, id, body); err != nil {
		return models.Transition{}, fmt.Errorf("open negotiation %s: %w", id, err)
	}

	now := m.now()
	rec := models.NegotiationRecord{
		ListingID: id,
		Title:     l.Title,
		Link:      l.Link,
		AskPrice:  l.Price,
		Stage:     models.StageAsked,
		CreatedAt: now,
		UpdatedAt: now,
	}
	// the seller already has the message; a deadline must not lose the record
	if err := m.store.Create(context.WithoutCancel(ctx), rec); err != nil {
		return models.Transition{}, fmt.Errorf("record negotiation %s: %w", id, err)
	}

	m.log.Info("negotiation opened", zap.String("listing", id), zap.String("title", l.Title))
	return m.transition(id, models.StageNone, models.StageAsked, decimal.Zero, body), nil
}

// Handle applies one inbound message. It reports false when the message
// changed nothing: untracked listing, terminal stage or no matching trigger.
func (m *Machine) Handle(ctx context.Context, msg models.InboxMessage) (models.Transition, bool, error) {
	id := strings.TrimSpace(msg.AdID)
	unlock := m.lock(id)
	defer unlock()

	rec, ok, err := m.store.Get(ctx, id)
	if err != nil {
		return models.Transition{}, false, fmt.Errorf("load negotiation %s: %w", id, err)
	}
	if !ok {
		return models.Transition{}, false, nil
	}

	switch rec.Stage {
	case models.StageAsked:
		seller, found := ExtractCounterPrice(msg.Body)
		if !found {
			break
		}
		return m.counter(ctx, rec, seller)
	case models.StageCountered:
		if !IsAcceptance(msg.Body) {
			break
		}
		return m.accept(ctx, rec)
	}

	m.log.Debug("inbound message ignored",
		zap.String("listing", id),
		zap.Stringer("stage", rec.Stage))
	return models.Transition{}, false, nil
}

func (m *Machine) counter(ctx context.Context, rec models.NegotiationRecord, seller decimal.Decimal) (models.Transition, bool, error) {
	text, err := m.counterer.CounterOffer(ctx, rec, seller)
	if err != nil {
		return models.Transition{}, false, err
	}
	if err := m.messenger.SendMessage(ctx, rec.ListingID, text); err != nil {
		return models.Transition{}, false, fmt.Errorf("send counter-offer %s: %w", rec.ListingID, err)
	}

	next := rec
	next.Stage = models.StageCountered
	next.CounterPrice = seller
	next.UpdatedAt = m.now()
	if err := m.store.Advance(context.WithoutCancel(ctx), next); err != nil {
		return models.Transition{}, false, fmt.Errorf("advance negotiation %s: %w", rec.ListingID, err)
	}

	m.log.Info("counter-offer sent",
		zap.String("listing", rec.ListingID),
		zap.String("seller_price", seller.StringFixed(2)))
	return m.transition(rec.ListingID, rec.Stage, next.Stage, seller, text), true, nil
}

func (m *Machine) accept(ctx context.Context, rec models.NegotiationRecord) (models.Transition, bool, error) {
	next := rec
	next.Stage = models.StageAccepted
	next.UpdatedAt = m.now()
	if err := m.store.Advance(ctx, next); err != nil {
		return models.Transition{}, false, fmt.Errorf("advance negotiation %s: %w", rec.ListingID, err)
	}

	m.log.Info("deal confirmed", zap.String("listing", rec.ListingID), zap.String("title", rec.Title))
	if m.onDeal != nil {
		m.onDeal(next)
	}
	return m.transition(rec.ListingID, rec.Stage, next.Stage, rec.CounterPrice, ""), true, nil
}

func (m *Machine) transition(id string, from, to models.Stage, counter decimal.Decimal, outbound string) models.Transition {
	return models.Transition{
		ID:        ulid.Make().String(),
		ListingID: id,
		From:      from,
		To:        to,
		Counter:   counter,
		Outbound:  outbound,
		At:        m.now(),
	}
}

// Tracks reports whether a negotiation exists for listingID.
func (m *Machine) Tracks(ctx context.Context, listingID string) (bool, error) {
	_, ok, err := m.store.Get(ctx, strings.TrimSpace(listingID))
	return ok, err
}

func (m *Machine) Records(ctx context.Context) ([]models.NegotiationRecord, error) {
	return m.store.List(ctx)
}
