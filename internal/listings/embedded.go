package listings

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/dyike/marktbot/internal/models"
)

// embeddedAnchor selects the script that carries the page's JSON state.
const embeddedAnchor = "script#__NEXT_DATA__"

type nextData struct {
	Props struct {
		PageProps struct {
			SearchRequestAndResponse struct {
				Listings []apiItem `json:"listings"`
			} `json:"searchRequestAndResponse"`
		} `json:"pageProps"`
	} `json:"props"`
}

// EmbeddedSource reads listings from the JSON state embedded in the search
// page. A page without the anchor simply has no results block.
type EmbeddedSource struct {
	fetcher Fetcher
	log     *zap.Logger
}

func (s *EmbeddedSource) Listings(ctx context.Context, q Query) ([]models.Listing, error) {
	if err := validate(q); err != nil {
		return nil, err
	}
	body, err := s.fetcher.Fetch(ctx, searchPagePath(q), conditionParams(q))
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		s.log.Warn("search page is not parseable html", zap.Error(err))
		return []models.Listing{}, nil
	}
	script := doc.Find(embeddedAnchor).First()
	if script.Length() == 0 {
		return []models.Listing{}, nil
	}

	var data nextData
	if err := json.Unmarshal([]byte(strings.TrimSpace(script.Text())), &data); err != nil {
		s.log.Warn("embedded search payload undecodable", zap.Error(err))
		return []models.Listing{}, nil
	}

	items := data.Props.PageProps.SearchRequestAndResponse.Listings
	out := make([]models.Listing, 0, len(items))
	for _, item := range items {
		if l, ok := item.toListing(s.fetcher); ok {
			out = append(out, l)
		}
	}
	return out, nil
}
