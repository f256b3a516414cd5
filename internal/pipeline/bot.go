// Package pipeline ties search, evaluation and negotiation together.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/dyike/marktbot/internal/evaluation"
	"github.com/dyike/marktbot/internal/listings"
	"github.com/dyike/marktbot/internal/logger"
	"github.com/dyike/marktbot/internal/marktplaats"
	"github.com/dyike/marktbot/internal/models"
	"github.com/dyike/marktbot/internal/negotiation"
)

// Conversation is an authenticated marketplace session.
type Conversation interface {
	SendMessage(ctx context.Context, adID, body string) error
	Inbox(ctx context.Context) ([]models.InboxMessage, error)
}

type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (Conversation, error)
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc func(ctx context.Context, email, password string) (Conversation, error)

func (f AuthenticatorFunc) Authenticate(ctx context.Context, email, password string) (Conversation, error) {
	return f(ctx, email, password)
}

// MarketplaceAuth adapts a marktplaats.Authenticator.
func MarketplaceAuth(a *marktplaats.Authenticator) Authenticator {
	return AuthenticatorFunc(func(ctx context.Context, email, password string) (Conversation, error) {
		s, err := a.Authenticate(ctx, email, password)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}

type Evaluator interface {
	Evaluate(ctx context.Context, l models.Listing) (models.Evaluation, error)
}

type Deps struct {
	Source    listings.Source
	Evaluator Evaluator
	Predicate evaluation.Predicate
	Store     negotiation.Store
	Counterer negotiation.Counterer
	Auth      Authenticator
	Email     string
	Password  string
	Logger    *zap.Logger
}

type Options struct {
	PoliteDelay time.Duration
	ItemTimeout time.Duration
	Conditions  []string
	Locale      string
	Retry       RetryConfig
	// OnDeal receives every record that reaches ACCEPTED.
	OnDeal func(models.NegotiationRecord)
}

// Outcome values of a search Result.
const (
	OutcomeSkipped            = "skipped"
	OutcomeOpened             = "opened"
	OutcomeAlreadyNegotiating = "already negotiating"
	OutcomeFailed             = "failed"
)

// Result is the per-listing outcome of a search.
type Result struct {
	Listing    models.Listing     `json:"listing"`
	Evaluation models.Evaluation  `json:"evaluation"`
	Favorable  bool               `json:"favorable"`
	Outcome    string             `json:"outcome"`
	Transition *models.Transition `json:"transition,omitempty"`
	Err        error              `json:"-"`
	Error      string             `json:"error,omitempty"`
}

func (r *Result) fail(err error) {
	r.Outcome = OutcomeFailed
	r.Err = err
	r.Error = err.Error()
}

type Failure struct {
	ListingID string `json:"listing_id"`
	Error     string `json:"error"`
}

// Summary reports one inbox poll.
type Summary struct {
	Processed   int                 `json:"processed"`
	Ignored     int                 `json:"ignored"`
	Transitions []models.Transition `json:"transitions"`
	Deals       int                 `json:"deals"`
	Failures    []Failure           `json:"failures"`
}

type Bot struct {
	source    listings.Source
	evaluator Evaluator
	predicate evaluation.Predicate
	machine   *negotiation.Machine
	auth      Authenticator
	email     string
	password  string
	opts      Options
	limiter   *rate.Limiter
	log       *zap.Logger

	mu      sync.Mutex
	session Conversation
}

func New(deps Deps, opts Options) (*Bot, error) {
	if deps.Source == nil || deps.Evaluator == nil || deps.Counterer == nil || deps.Auth == nil {
		return nil, errors.New("pipeline: source, evaluator, counterer and authenticator are required")
	}
	if deps.Store == nil {
		deps.Store = negotiation.NewMemoryStore()
	}
	if deps.Predicate == nil {
		deps.Predicate = evaluation.MinRating(4)
	}
	if opts.Retry.MaxRetries == 0 && opts.Retry.BaseDelay == 0 {
		opts.Retry = DefaultRetryConfig()
	}

	limit := rate.Inf
	if opts.PoliteDelay > 0 {
		limit = rate.Every(opts.PoliteDelay)
	}

	b := &Bot{
		source:    deps.Source,
		evaluator: deps.Evaluator,
		predicate: deps.Predicate,
		auth:      deps.Auth,
		email:     deps.Email,
		password:  deps.Password,
		opts:      opts,
		limiter:   rate.NewLimiter(limit, 1),
		log:       logger.OrNop(deps.Logger),
	}

	b.machine = negotiation.NewMachine(deps.Store, b, politeCounterer{bot: b, next: deps.Counterer},
		negotiation.WithLocale(opts.Locale),
		negotiation.WithDealHandler(opts.OnDeal),
		negotiation.WithLogger(b.log),
	)
	return b, nil
}

func (b *Bot) Machine() *negotiation.Machine { return b.machine }

// Negotiations lists every tracked negotiation, oldest first.
func (b *Bot) Negotiations(ctx context.Context) ([]models.NegotiationRecord, error) {
	return b.machine.Records(ctx)
}

// Login authenticates now and keeps the session for later calls.
func (b *Bot) Login(ctx context.Context) error {
	b.mu.Lock()
	b.session = nil
	b.mu.Unlock()
	_, err := b.ensureSession(ctx)
	return err
}

func (b *Bot) ensureSession(ctx context.Context) (Conversation, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.session != nil {
		return b.session, nil
	}
	if strings.TrimSpace(b.email) == "" || b.password == "" {
		return nil, marktplaats.ErrMissingCredentials
	}

	var sess Conversation
	err := Retry(ctx, b.opts.Retry, func() error {
		var err error
		sess, err = b.auth.Authenticate(ctx, b.email, b.password)
		return err
	})
	if err != nil {
		return nil, err
	}
	b.session = sess
	b.log.Info("logged in", zap.String("email", b.email))
	return sess, nil
}

func (b *Bot) dropSession(stale Conversation) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.session == stale {
		b.session = nil
	}
}

// withSession runs fn with the current session. A rejected session is
// replaced once and fn is retried with the new one.
func (b *Bot) withSession(ctx context.Context, fn func(Conversation) error) error {
	sess, err := b.ensureSession(ctx)
	if err != nil {
		return err
	}
	err = fn(sess)
	if !marktplaats.IsUnauthorized(err) {
		return err
	}

	b.log.Warn("session rejected, re-authenticating", zap.Error(err))
	b.dropSession(sess)
	if sess, err = b.ensureSession(ctx); err != nil {
		return err
	}
	return fn(sess)
}

// SendMessage makes Bot the negotiation messenger. Every outbound message
// waits for the politeness limiter.
func (b *Bot) SendMessage(ctx context.Context, adID, body string) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}
	return b.withSession(ctx, func(s Conversation) error {
		return s.SendMessage(ctx, adID, body)
	})
}

// Search runs one search round. Results gathered before an aborting error
// are returned together with it.
func (b *Bot) Search(ctx context.Context, keyword string) ([]Result, error) {
	q := listings.Query{Keyword: keyword, Conditions: b.opts.Conditions}
	found, err := b.source.Listings(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", keyword, err)
	}
	b.log.Info("search finished", zap.String("keyword", keyword), zap.Int("listings", len(found)))

	results := make([]Result, 0, len(found))
	for _, l := range found {
		res, err := b.process(ctx, l)
		results = append(results, res)
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

// process evaluates one listing and opens a negotiation when favorable. A
// returned error aborts the round; per-listing failures stay on the Result.
func (b *Bot) process(ctx context.Context, l models.Listing) (Result, error) {
	res := Result{Listing: l, Outcome: OutcomeSkipped}

	itemCtx, cancel := b.itemContext(ctx)
	defer cancel()

	if err := b.limiter.Wait(itemCtx); err != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		res.fail(err)
		return res, nil
	}
	ev, err := b.evaluator.Evaluate(itemCtx, l)
	if err != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		b.log.Warn("evaluation failed", zap.String("listing", l.ID), zap.Error(err))
		res.fail(err)
		return res, nil
	}
	res.Evaluation = ev
	res.Favorable = b.predicate(ev)
	if !res.Favorable {
		return res, nil
	}

	tr, err := b.machine.Open(itemCtx, l)
	switch {
	case err == nil:
		res.Outcome = OutcomeOpened
		res.Transition = &tr
		return res, nil
	case errors.Is(err, negotiation.ErrNegotiationExists):
		res.Outcome = OutcomeAlreadyNegotiating
		return res, nil
	case ctx.Err() != nil:
		return res, ctx.Err()
	case errors.Is(err, context.DeadlineExceeded):
		res.fail(err)
		return res, nil
	case aborts(err):
		res.fail(err)
		return res, err
	default:
		b.log.Warn("opening negotiation failed", zap.String("listing", l.ID), zap.Error(err))
		res.fail(err)
		return res, nil
	}
}

// PollInbox routes every inbox message through the negotiation machine in
// upstream order.
func (b *Bot) PollInbox(ctx context.Context) (Summary, error) {
	sum := Summary{Transitions: []models.Transition{}, Failures: []Failure{}}

	var inbox []models.InboxMessage
	err := b.withSession(ctx, func(s Conversation) error {
		var err error
		inbox, err = s.Inbox(ctx)
		return err
	})
	if err != nil {
		return sum, fmt.Errorf("poll inbox: %w", err)
	}

	for _, msg := range inbox {
		tracked, err := b.machine.Tracks(ctx, msg.AdID)
		if err != nil {
			return sum, fmt.Errorf("poll inbox: %w", err)
		}
		if !tracked {
			sum.Ignored++
			continue
		}
		sum.Processed++

		itemCtx, cancel := b.itemContext(ctx)
		tr, changed, err := b.machine.Handle(itemCtx, msg)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return sum, fmt.Errorf("poll inbox: %w", err)
			}
			if aborts(err) && !errors.Is(err, context.DeadlineExceeded) {
				return sum, fmt.Errorf("poll inbox: %w", err)
			}
			b.log.Warn("handling message failed", zap.String("listing", msg.AdID), zap.Error(err))
			sum.Failures = append(sum.Failures, Failure{ListingID: msg.AdID, Error: err.Error()})
			continue
		}
		if !changed {
			continue
		}
		sum.Transitions = append(sum.Transitions, tr)
		if tr.IsDeal() {
			sum.Deals++
		}
	}
	return sum, nil
}

// itemContext bounds the work spent on one listing or message.
func (b *Bot) itemContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.opts.ItemTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, b.opts.ItemTimeout)
}

// aborts reports errors that end the whole round: the marketplace is
// unreachable or the login itself is broken.
func aborts(err error) bool {
	var (
		te *marktplaats.TransportError
		ae *marktplaats.AuthError
		me *marktplaats.MissingTokenError
	)
	return errors.As(err, &te) || errors.As(err, &ae) || errors.As(err, &me) ||
		errors.Is(err, marktplaats.ErrMissingCredentials)
}

// politeCounterer waits for the limiter before each AI counter-offer.
type politeCounterer struct {
	bot  *Bot
	next negotiation.Counterer
}

func (p politeCounterer) CounterOffer(ctx context.Context, rec models.NegotiationRecord, seller decimal.Decimal) (string, error) {
	if err := p.bot.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return p.next.CounterOffer(ctx, rec, seller)
}
