package pipeline

import (
	"context"
	"net/url"

	"github.com/dyike/marktbot/internal/listings"
)

// RetryingFetcher retries search page GETs, which are idempotent.
type RetryingFetcher struct {
	listings.Fetcher
	Config RetryConfig
}

func (f RetryingFetcher) Fetch(ctx context.Context, path string, query url.Values) ([]byte, error) {
	var body []byte
	err := Retry(ctx, f.Config, func() error {
		var err error
		body, err = f.Fetcher.Fetch(ctx, path, query)
		return err
	})
	return body, err
}
