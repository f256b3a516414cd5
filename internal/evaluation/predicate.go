package evaluation

import (
	"strings"

	"github.com/dyike/marktbot/internal/models"
)

// Predicate decides whether an evaluation is favorable enough to open a
// negotiation.
type Predicate func(models.Evaluation) bool

// MinRating is favorable when the rating is at least n.
func MinRating(n int) Predicate {
	return func(ev models.Evaluation) bool {
		return ev.Rating >= n
	}
}

// MentionsAny is favorable when the reason or message contains one of the
// keywords, case-insensitively.
func MentionsAny(keywords ...string) Predicate {
	lowered := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			lowered = append(lowered, k)
		}
	}
	return func(ev models.Evaluation) bool {
		text := strings.ToLower(ev.Reason + "\n" + ev.Message)
		for _, k := range lowered {
			if strings.Contains(text, k) {
				return true
			}
		}
		return false
	}
}

func AnyOf(preds ...Predicate) Predicate {
	return func(ev models.Evaluation) bool {
		for _, p := range preds {
			if p != nil && p(ev) {
				return true
			}
		}
		return false
	}
}

// DefaultPredicate combines a rating threshold with a keyword match.
func DefaultPredicate(minRating int, keywords []string) Predicate {
	return AnyOf(MinRating(minRating), MentionsAny(keywords...))
}
