// Package listings normalizes marketplace search results into models.Listing.
//
// Three upstream shapes are supported, each behind the Source interface:
// the paginated JSON search API, the JSON blob embedded in the search page,
// and the raw HTML result list. The shape is chosen by configuration, not
// detected per call.
package listings

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/dyike/marktbot/consts"
	"github.com/dyike/marktbot/internal/logger"
	"github.com/dyike/marktbot/internal/models"
)

// MaxHTMLListings bounds the number of elements read from one HTML page.
const MaxHTMLListings = 100

// Query is a keyword search with optional condition filters.
type Query struct {
	Keyword    string
	Conditions []string
}

// Source produces listings in upstream order. No deduplication is done.
type Source interface {
	Listings(ctx context.Context, q Query) ([]models.Listing, error)
}

// Fetcher performs marketplace GETs. *marktplaats.Client satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, path string, query url.Values) ([]byte, error)
	ResolveURL(href string) string
}

type Options struct {
	PageSize int
	MaxPages int
	Logger   *zap.Logger
}

func NewSource(kind string, fetcher Fetcher, opts Options) (Source, error) {
	if opts.PageSize <= 0 {
		opts.PageSize = 30
	}
	opts.Logger = logger.OrNop(opts.Logger)

	switch kind {
	case consts.Strategy_API:
		return &APISource{fetcher: fetcher, opts: opts}, nil
	case consts.Strategy_Embedded:
		return &EmbeddedSource{fetcher: fetcher, log: opts.Logger}, nil
	case consts.Strategy_HTML:
		return &HTMLSource{fetcher: fetcher, log: opts.Logger, max: MaxHTMLListings}, nil
	default:
		return nil, fmt.Errorf("unknown search strategy %q", kind)
	}
}

func validate(q Query) error {
	if strings.TrimSpace(q.Keyword) == "" {
		return fmt.Errorf("search keyword cannot be empty")
	}
	return nil
}

// searchPagePath is the human search page used by the embedded and HTML
// strategies.
func searchPagePath(q Query) string {
	return "/q/" + url.PathEscape(strings.TrimSpace(q.Keyword)) + "/"
}

func conditionParams(q Query) url.Values {
	params := url.Values{}
	for _, c := range q.Conditions {
		if c = strings.TrimSpace(c); c != "" {
			params.Add("attributesByKey[]", "condition:"+c)
		}
	}
	return params
}
