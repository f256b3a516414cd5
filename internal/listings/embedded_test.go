package listings

import (
	"context"
	"testing"

	"github.com/dyike/marktbot/consts"
)

func TestEmbeddedSource(t *testing.T) {
	page := `<html><head></head><body><div id="__next"></div>
<script id="__NEXT_DATA__" type="application/json">{"props":{"pageProps":{"searchRequestAndResponse":{"listings":[
 {"itemId":"m10","title":"DeLonghi Magnifica","priceInfo":{"priceCents":2500},"vipUrl":"/v/m10"},
 {"title":"no id, skipped"},
 {"itemId":"m11","title":"Nespresso"}
]}}}}</script></body></html>`
	f := &fakeFetcher{pages: map[string][]byte{"/q/koffie/": []byte(page)}}
	src, _ := NewSource(consts.Strategy_Embedded, f, Options{})

	got, err := src.Listings(context.Background(), Query{Keyword: "koffie"})
	if err != nil {
		t.Fatalf("Listings: %v", err)
	}
	if len(got) != 2 || got[0].ID != "m10" || got[1].ID != "m11" {
		t.Fatalf("unexpected listings %+v", got)
	}
	if !got[0].Price.Equal(mustDecimal(t, "25")) {
		t.Fatalf("expected 25, got %s", got[0].Price)
	}
}

func TestEmbeddedSourceMissingAnchor(t *testing.T) {
	f := &fakeFetcher{pages: map[string][]byte{"/q/koffie/": []byte(`<html><body>Geen resultaten</body></html>`)}}
	src, _ := NewSource(consts.Strategy_Embedded, f, Options{})

	got, err := src.Listings(context.Background(), Query{Keyword: "koffie"})
	if err != nil {
		t.Fatalf("missing anchor must not fail: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}

func TestEmbeddedSourceBrokenPayload(t *testing.T) {
	page := `<script id="__NEXT_DATA__" type="application/json">{"props":</script>`
	f := &fakeFetcher{pages: map[string][]byte{"/q/koffie/": []byte(page)}}
	src, _ := NewSource(consts.Strategy_Embedded, f, Options{})

	got, err := src.Listings(context.Background(), Query{Keyword: "koffie"})
	if err != nil || len(got) != 0 {
		t.Fatalf("expected empty result, got %v / %v", got, err)
	}
}
