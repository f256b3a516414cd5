package listings

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

type fakeFetcher struct {
	pages map[string][]byte
	byOff map[string][]byte
	calls []url.Values
	paths []string
	err   error
}

func (f *fakeFetcher) Fetch(_ context.Context, path string, query url.Values) ([]byte, error) {
	f.paths = append(f.paths, path)
	f.calls = append(f.calls, query)
	if f.err != nil {
		return nil, f.err
	}
	if f.byOff != nil {
		return f.byOff[query.Get("offset")], nil
	}
	return f.pages[path], nil
}

func (f *fakeFetcher) ResolveURL(href string) string {
	if strings.HasPrefix(href, "http") {
		return href
	}
	return "https://www.marktplaats.nl" + href
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}
