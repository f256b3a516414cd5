package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/dyike/marktbot/consts"
	"github.com/dyike/marktbot/internal/config"
	"github.com/dyike/marktbot/internal/evaluation"
	"github.com/dyike/marktbot/internal/listings"
	"github.com/dyike/marktbot/internal/llm"
	"github.com/dyike/marktbot/internal/logger"
	"github.com/dyike/marktbot/internal/marktplaats"
	"github.com/dyike/marktbot/internal/models"
	"github.com/dyike/marktbot/internal/negotiation"
	"github.com/dyike/marktbot/internal/pipeline"
	"github.com/dyike/marktbot/internal/storage/sqlite"
)

// app holds the wired bot for one CLI invocation.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	bot     *pipeline.Bot
	history *sqlite.Store
	closers []io.Closer
}

func (a *app) Close() {
	for _, c := range a.closers {
		_ = c.Close()
	}
	_ = a.log.Sync()
}

// newApp wires the bot. Commands that never reach the model pass
// requireLLM=false and get a completer that reports why it is unavailable.
func newApp(ctx context.Context, cfg *config.Config, requireLLM bool) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logger.New(cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	a := &app{cfg: cfg, log: log}

	httpOpts := marktplaats.Options{
		BaseURL:   cfg.BaseURL,
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.HTTPTimeout,
		Logger:    log.Named("marktplaats"),
	}
	client, err := marktplaats.NewClient(httpOpts)
	if err != nil {
		return nil, err
	}

	retry := pipeline.DefaultRetryConfig()
	source, err := listings.NewSource(cfg.SearchStrategy, pipeline.RetryingFetcher{Fetcher: client, Config: retry}, listings.Options{
		PageSize: cfg.PageSize,
		MaxPages: cfg.MaxPages,
		Logger:   log.Named("listings"),
	})
	if err != nil {
		return nil, err
	}

	completer, err := llm.NewCompleter(ctx, cfg)
	if err != nil {
		if requireLLM {
			return nil, err
		}
		unavailable := err
		completer = llm.CompleterFunc(func(context.Context, []*schema.Message) (string, error) {
			return "", unavailable
		})
	}

	store, err := a.openStore()
	if err != nil {
		return nil, err
	}

	a.bot, err = pipeline.New(pipeline.Deps{
		Source:    source,
		Evaluator: evaluation.NewEvaluator(completer, evaluation.WithLogger(log.Named("evaluation"))),
		Predicate: evaluation.DefaultPredicate(cfg.MinRating, cfg.FavorableKeywords),
		Store:     store,
		Counterer: negotiation.NewAICounterer(completer, cfg.Locale),
		Auth:      pipeline.MarketplaceAuth(marktplaats.NewAuthenticator(httpOpts)),
		Email:     cfg.Email,
		Password:  cfg.Password,
		Logger:    log.Named("pipeline"),
	}, pipeline.Options{
		PoliteDelay: cfg.PoliteDelay,
		ItemTimeout: cfg.ItemTimeout,
		Conditions:  cfg.Conditions,
		Locale:      cfg.Locale,
		Retry:       retry,
		OnDeal: func(rec models.NegotiationRecord) {
			DisplaySuccess(fmt.Sprintf("Deal confirmed: %s (%s)", rec.Title, rec.Link))
		},
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) openStore() (negotiation.Store, error) {
	if a.cfg.StoreDriver != consts.Store_SQLite {
		return negotiation.NewMemoryStore(), nil
	}
	store, err := sqlite.Open(a.cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open negotiation store: %w", err)
	}
	a.closers = append(a.closers, store)
	a.history = store
	a.log.Info("using sqlite negotiation store", zap.String("path", a.cfg.DBPath))
	return store, nil
}
