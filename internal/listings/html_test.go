package listings

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/dyike/marktbot/consts"
)

func TestHTMLSourceSkipsIncompleteElements(t *testing.T) {
	page := `<ul class="hz-Listings">
<li class="hz-Listing" data-item-id="m1"><a href="/v/m1"><h3 class="hz-Listing-title">Senseo Quadrante</h3></a><span class="hz-Listing-price">€ 45,50</span></li>
<li class="hz-Listing" data-item-id="m2"><h3 class="hz-Listing-title">Geen prijs</h3></li>
<li class="hz-Listing" data-item-id="m3"><span class="hz-Listing-price">€ 10,00</span></li>
<li class="hz-Listing"><h3 class="hz-Listing-title">Geen id</h3><span class="hz-Listing-price">€ 1</span></li>
<li class="hz-Listing" data-item-id="m4"><h3 class="hz-Listing-title">Jura</h3><span class="hz-Listing-price">Bieden</span></li>
</ul>`
	f := &fakeFetcher{pages: map[string][]byte{"/q/senseo/": []byte(page)}}
	src, _ := NewSource(consts.Strategy_HTML, f, Options{})

	got, err := src.Listings(context.Background(), Query{Keyword: "senseo"})
	if err != nil {
		t.Fatalf("Listings: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 listings, got %+v", got)
	}
	if got[0].ID != "m1" || !got[0].Price.Equal(mustDecimal(t, "45.50")) {
		t.Fatalf("unexpected first listing %+v", got[0])
	}
	if got[0].Link != "https://www.marktplaats.nl/v/m1" {
		t.Fatalf("unexpected link %q", got[0].Link)
	}
	if got[1].ID != "m4" || !got[1].Price.IsZero() {
		t.Fatalf("unparseable price should normalize to zero: %+v", got[1])
	}
}

func TestHTMLSourceCapsResultCount(t *testing.T) {
	var b strings.Builder
	for i := 0; i < MaxHTMLListings+25; i++ {
		fmt.Fprintf(&b, `<li data-item-id="m%d"><span class="hz-Listing-title">t</span><span class="hz-Listing-price">€ 1</span></li>`, i)
	}
	f := &fakeFetcher{pages: map[string][]byte{"/q/x/": []byte("<ul>" + b.String() + "</ul>")}}
	src, _ := NewSource(consts.Strategy_HTML, f, Options{})

	got, err := src.Listings(context.Background(), Query{Keyword: "x"})
	if err != nil {
		t.Fatalf("Listings: %v", err)
	}
	if len(got) != MaxHTMLListings {
		t.Fatalf("expected cap of %d, got %d", MaxHTMLListings, len(got))
	}
}
