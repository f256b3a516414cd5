package listings

import (
	"strings"

	"github.com/dyike/marktbot/internal/models"
	"github.com/dyike/marktbot/internal/price"
)

// apiItem is the listing shape shared by the search API and the embedded
// page payload. Every field is optional upstream.
type apiItem struct {
	ItemID    string `json:"itemId"`
	Title     string `json:"title"`
	VipURL    string `json:"vipUrl"`
	PriceInfo *struct {
		PriceCents int64  `json:"priceCents"`
		PriceType  string `json:"priceType"`
	} `json:"priceInfo"`
}

func (it apiItem) toListing(f Fetcher) (models.Listing, bool) {
	id := strings.TrimSpace(it.ItemID)
	if id == "" {
		return models.Listing{}, false
	}
	l := models.Listing{
		ID:    id,
		Title: strings.TrimSpace(it.Title),
	}
	if it.PriceInfo != nil {
		l.Price = price.FromCents(it.PriceInfo.PriceCents)
	}
	if it.VipURL != "" {
		l.Link = f.ResolveURL(it.VipURL)
	}
	return l, true
}
