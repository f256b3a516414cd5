package negotiation

import (
	"regexp"

	"github.com/shopspring/decimal"

	"github.com/dyike/marktbot/internal/price"
)

var (
	counterPricePattern = regexp.MustCompile(`(?i)(?:€|\beur\b|\beuro\b)\s*(\d[\d.]*(?:,\d+)?)`)

	acceptancePattern = regexp.MustCompile(`(?i)\b(?:deal|akkoord|afgesproken|agreed|accepted|prima,?\s+doen\s+we)\b`)
	negationPattern   = regexp.MustCompile(`(?i)\b(?:geen|no|niet|not)\s+(?:deal|akkoord|afgesproken|agreed|accepted)\b`)
)

// ExtractCounterPrice returns the first currency-prefixed amount in body.
func ExtractCounterPrice(body string) (decimal.Decimal, bool) {
	m := counterPricePattern.FindStringSubmatch(body)
	if m == nil {
		return decimal.Zero, false
	}
	amount := price.Parse(m[1])
	if amount.IsZero() {
		return decimal.Zero, false
	}
	return amount, true
}

// IsAcceptance reports whether body agrees to the deal. Negated forms such
// as "geen deal" do not count.
func IsAcceptance(body string) bool {
	if negationPattern.MatchString(body) {
		return false
	}
	return acceptancePattern.MatchString(body)
}
