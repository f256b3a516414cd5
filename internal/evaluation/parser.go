// Package evaluation turns model output into models.Evaluation.
//
// Parse never fails. It runs an ordered chain of strategies, first success
// wins, and the last tier (regexFallback) always succeeds.
package evaluation

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/dyike/marktbot/internal/models"
)

const (
	maxRating = 5

	emptyResponseMessage = "(empty response)"
)

type strategy func(raw string) (models.Evaluation, bool)

var chain = []strategy{strictJSON, fencedJSON, looseJSON}

var (
	fencePattern   = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(\\{.*?\\})\\s*```")
	ratingPattern  = regexp.MustCompile(`(?i)rating["'*\s]*[:=]?["'\s]*(\d)`)
	messagePattern = regexp.MustCompile(`(?is)message["'*\s]*[:=]?\s*(.*)`)
	reasonPattern  = regexp.MustCompile(`(?is)reason["'*\s]*[:=]?\s*(.*)`)
)

// Parse extracts an Evaluation from raw model text. It returns a value for
// every input.
func Parse(raw string) (ev models.Evaluation) {
	defer func() {
		if r := recover(); r != nil {
			ev = regexFallback(raw)
		}
	}()

	for _, try := range chain {
		if ev, ok := try(raw); ok {
			return ev
		}
	}
	return regexFallback(raw)
}

type jsonPayload struct {
	Rating  json.RawMessage `json:"rating"`
	Reason  *string         `json:"reason"`
	Message *string         `json:"message"`
}

func decodePayload(raw string) (jsonPayload, bool) {
	var p jsonPayload
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &p); err != nil {
		return jsonPayload{}, false
	}
	return p, true
}

// strictJSON accepts only a single JSON object carrying all three keys and
// returns the values untouched. The rating may be a whole number written as
// 4, 4.0 or "4".
func strictJSON(raw string) (models.Evaluation, bool) {
	p, ok := decodePayload(raw)
	if !ok || p.Reason == nil || p.Message == nil {
		return models.Evaluation{}, false
	}
	f, ok := ratingValue(p.Rating)
	if !ok || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return models.Evaluation{}, false
	}
	return models.Evaluation{Rating: int(f), Reason: *p.Reason, Message: *p.Message}, true
}

// fencedJSON handles an object wrapped in a markdown code fence.
func fencedJSON(raw string) (models.Evaluation, bool) {
	m := fencePattern.FindStringSubmatch(raw)
	if m == nil {
		return models.Evaluation{}, false
	}
	ev, ok := strictJSON(m[1])
	if !ok {
		ev, ok = looseJSON(m[1])
	}
	if !ok {
		return models.Evaluation{}, false
	}
	ev.Rating = clampRating(ev.Rating)
	ev.Degraded = true
	return ev, true
}

// looseJSON takes a well-formed object whose rating is fractional, missing
// or not a number. The message must be present; the rating is rounded and
// clamped, or 0 when unusable.
func looseJSON(raw string) (models.Evaluation, bool) {
	p, ok := decodePayload(raw)
	if !ok || p.Message == nil || strings.TrimSpace(*p.Message) == "" {
		return models.Evaluation{}, false
	}
	ev := models.Evaluation{Message: strings.TrimSpace(*p.Message), Degraded: true}
	if p.Reason != nil {
		ev.Reason = strings.TrimSpace(*p.Reason)
	}
	if f, ok := ratingValue(p.Rating); ok && math.Abs(f) <= math.MaxInt32 {
		ev.Rating = clampRating(int(math.Round(f)))
	}
	return ev, true
}

// ratingValue reads a JSON number or a numeric string.
func ratingValue(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func regexFallback(raw string) models.Evaluation {
	text := strings.TrimSpace(raw)
	ev := models.Evaluation{Degraded: true}

	if m := ratingPattern.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		ev.Rating = clampRating(n)
	}
	if m := messagePattern.FindStringSubmatch(text); m != nil {
		ev.Message = cleanCapture(m[1])
	}
	if m := reasonPattern.FindStringSubmatch(text); m != nil {
		ev.Reason = cleanCapture(m[1])
	}

	if ev.Message == "" {
		ev.Message = text
	}
	if ev.Message == "" {
		ev.Message = emptyResponseMessage
	}
	return ev
}

// cleanCapture strips the quoting and object punctuation a capture picks up
// from JSON-like text.
func cleanCapture(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, `"'`)
	return strings.TrimRight(s, " \t\r\n\"',}")
}

func clampRating(n int) int {
	switch {
	case n < 0:
		return 0
	case n > maxRating:
		return maxRating
	default:
		return n
	}
}
