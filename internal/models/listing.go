package models

import "github.com/shopspring/decimal"

// Listing is a single classified ad, normalized from any search strategy.
type Listing struct {
	ID    string          `json:"id"`
	Title string          `json:"title"`
	Price decimal.Decimal `json:"price"`
	Link  string          `json:"link"`
}

// InboxMessage is one inbound message pulled from the marketplace inbox.
type InboxMessage struct {
	AdID string `json:"adId"`
	Body string `json:"body"`
}
