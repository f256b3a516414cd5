package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Stage int

const (
	StageNone Stage = iota
	StageAsked
	StageCountered
	StageAccepted
)

var stageNames = map[Stage]string{
	StageNone:      "NONE",
	StageAsked:     "ASKED",
	StageCountered: "COUNTERED",
	StageAccepted:  "ACCEPTED",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// Next returns the only stage s may advance to. ACCEPTED has no successor.
func (s Stage) Next() (Stage, bool) {
	if s < StageNone || s >= StageAccepted {
		return s, false
	}
	return s + 1, true
}

func (s Stage) Terminal() bool {
	return s == StageAccepted
}

// CanAdvanceTo reports whether to is exactly one step after s.
func (s Stage) CanAdvanceTo(to Stage) bool {
	next, ok := s.Next()
	return ok && next == to
}

func ParseStage(v string) (Stage, error) {
	for stage, name := range stageNames {
		if strings.EqualFold(name, strings.TrimSpace(v)) {
			return stage, nil
		}
	}
	return StageNone, fmt.Errorf("unknown negotiation stage %q", v)
}

func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Stage) UnmarshalText(b []byte) error {
	parsed, err := ParseStage(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// NegotiationRecord tracks one listing's negotiation. There is at most one
// record per listing id.
type NegotiationRecord struct {
	ListingID    string          `json:"listing_id"`
	Title        string          `json:"title"`
	Link         string          `json:"link,omitempty"`
	AskPrice     decimal.Decimal `json:"ask_price"`
	CounterPrice decimal.Decimal `json:"counter_price"`
	Stage        Stage           `json:"stage"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Transition describes one applied state change. A transition into
// StageAccepted is the deal-confirmed signal.
type Transition struct {
	ID        string          `json:"id"`
	ListingID string          `json:"listing_id"`
	From      Stage           `json:"from"`
	To        Stage           `json:"to"`
	Counter   decimal.Decimal `json:"counter,omitempty"`
	Outbound  string          `json:"outbound,omitempty"`
	At        time.Time       `json:"at"`
}

func (t Transition) IsDeal() bool {
	return t.To == StageAccepted
}
