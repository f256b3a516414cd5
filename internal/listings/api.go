package listings

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/dyike/marktbot/internal/models"
)

const searchAPIPath = "/lrp/api/search"

type searchResponse struct {
	Listings         []apiItem `json:"listings"`
	TotalResultCount int       `json:"totalResultCount"`
}

// APISource pages through the JSON search API with a fixed page size.
type APISource struct {
	fetcher Fetcher
	opts    Options
}

// Listings stops on an empty page, once the offset reaches the reported
// total, or after MaxPages pages when that guard is set.
func (s *APISource) Listings(ctx context.Context, q Query) ([]models.Listing, error) {
	if err := validate(q); err != nil {
		return nil, err
	}

	var out []models.Listing
	offset := 0
	for page := 0; s.opts.MaxPages == 0 || page < s.opts.MaxPages; page++ {
		params := conditionParams(q)
		params.Set("query", q.Keyword)
		params.Set("offset", strconv.Itoa(offset))
		params.Set("limit", strconv.Itoa(s.opts.PageSize))

		body, err := s.fetcher.Fetch(ctx, searchAPIPath, params)
		if err != nil {
			return out, err
		}
		var resp searchResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return out, fmt.Errorf("decode search page at offset %d: %w", offset, err)
		}
		if len(resp.Listings) == 0 {
			break
		}
		for _, item := range resp.Listings {
			if l, ok := item.toListing(s.fetcher); ok {
				out = append(out, l)
			}
		}

		offset += len(resp.Listings)
		s.opts.Logger.Debug("search page",
			zap.String("keyword", q.Keyword),
			zap.Int("offset", offset),
			zap.Int("total", resp.TotalResultCount))
		if offset >= resp.TotalResultCount {
			break
		}
	}
	return out, nil
}
