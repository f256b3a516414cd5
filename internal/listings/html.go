package listings

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/dyike/marktbot/internal/models"
	"github.com/dyike/marktbot/internal/price"
)

const (
	itemSelector  = "li[data-item-id]"
	titleSelector = ".hz-Listing-title"
	priceSelector = ".hz-Listing-price"
)

// HTMLSource scrapes the rendered result list. Elements missing an id,
// title or price element are skipped, and at most max are returned.
type HTMLSource struct {
	fetcher Fetcher
	log     *zap.Logger
	max     int
}

func (s *HTMLSource) Listings(ctx context.Context, q Query) ([]models.Listing, error) {
	if err := validate(q); err != nil {
		return nil, err
	}
	body, err := s.fetcher.Fetch(ctx, searchPagePath(q), conditionParams(q))
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse search page: %w", err)
	}

	var out []models.Listing
	skipped := 0
	doc.Find(itemSelector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if len(out) >= s.max {
			return false
		}
		l, ok := s.parseItem(sel)
		if !ok {
			skipped++
			return true
		}
		out = append(out, l)
		return true
	})

	if skipped > 0 {
		s.log.Debug("skipped incomplete listing elements", zap.Int("count", skipped))
	}
	return out, nil
}

func (s *HTMLSource) parseItem(sel *goquery.Selection) (models.Listing, bool) {
	id, _ := sel.Attr("data-item-id")
	id = strings.TrimSpace(id)
	titleSel := sel.Find(titleSelector).First()
	priceSel := sel.Find(priceSelector).First()
	if id == "" || titleSel.Length() == 0 || priceSel.Length() == 0 {
		return models.Listing{}, false
	}
	title := strings.TrimSpace(titleSel.Text())
	if title == "" {
		return models.Listing{}, false
	}

	l := models.Listing{
		ID:    id,
		Title: title,
		Price: price.Parse(priceSel.Text()),
	}
	if href, ok := sel.Find("a[href]").First().Attr("href"); ok {
		l.Link = s.fetcher.ResolveURL(strings.TrimSpace(href))
	}
	return l, true
}
