package evaluation

import (
	"strings"
	"testing"
)

func TestParseStrictJSON(t *testing.T) {
	cases := []struct {
		raw    string
		rating int
		reason string
		msg    string
	}{
		{`{"rating":4,"reason":"pomp vervangen","message":"Hoi! Is hij nog beschikbaar?"}`, 4, "pomp vervangen", "Hoi! Is hij nog beschikbaar?"},
		{"  \n{\"rating\": 1, \"reason\": \"\", \"message\": \"x\"}\n", 1, "", "x"},
		// out-of-range ratings pass through the strict path untouched
		{`{"rating":9,"reason":"r","message":"m"}`, 9, "r", "m"},
		{`{"rating": 4.0, "reason": "goed", "message": "Zou 25 euro kunnen?"}`, 4, "goed", "Zou 25 euro kunnen?"},
		{`{"rating": "4", "reason": "goed", "message": "Zou 25 euro kunnen?"}`, 4, "goed", "Zou 25 euro kunnen?"},
	}
	for _, tc := range cases {
		ev := Parse(tc.raw)
		if ev.Rating != tc.rating || ev.Reason != tc.reason || ev.Message != tc.msg {
			t.Fatalf("Parse(%q) = %+v", tc.raw, ev)
		}
		if ev.Degraded {
			t.Fatalf("strict parse must not be marked degraded: %q", tc.raw)
		}
	}
}

func TestParseStrictRequiresAllFields(t *testing.T) {
	ev := Parse(`{"rating":3,"reason":"ok"}`)
	if !ev.Degraded {
		t.Fatalf("missing message key must fall back, got %+v", ev)
	}
	if ev.Rating != 3 {
		t.Fatalf("fallback should still find the rating, got %d", ev.Rating)
	}
	if ev.Message == "" {
		t.Fatalf("message must never be empty")
	}
}

func TestParseLooseJSON(t *testing.T) {
	cases := []struct {
		raw    string
		rating int
		msg    string
	}{
		{`{"rating": 3.5, "reason": "pomp lekt", "message": "Zou 25 euro ook kunnen?"}`, 4, "Zou 25 euro ook kunnen?"},
		{`{"rating": "vier", "reason": "x", "message": "Hoi!"}`, 0, "Hoi!"},
		{`{"rating": null, "message": "Hoi!"}`, 0, "Hoi!"},
		{`{"rating": 12.7, "reason": "x", "message": "Hoi!"}`, 5, "Hoi!"},
	}
	for _, tc := range cases {
		ev := Parse(tc.raw)
		if ev.Rating != tc.rating || ev.Message != tc.msg || !ev.Degraded {
			t.Fatalf("Parse(%q) = %+v", tc.raw, ev)
		}
	}
}

func TestParseFallbackStripsJSONPunctuation(t *testing.T) {
	// trailing comma makes this invalid JSON
	raw := `{"rating": 4, "reason": "goed", "message": "Zou 25 euro kunnen?",}`
	ev := Parse(raw)
	if !ev.Degraded || ev.Rating != 4 {
		t.Fatalf("Parse(%q) = %+v", raw, ev)
	}
	if ev.Message != "Zou 25 euro kunnen?" {
		t.Fatalf("message = %q", ev.Message)
	}
}

func TestParseFencedJSON(t *testing.T) {
	raw := "Here you go:\n```json\n{\"rating\": 8, \"reason\": \"goede deal\", \"message\": \"Hallo!\"}\n```"
	ev := Parse(raw)
	if ev.Rating != 5 || ev.Reason != "goede deal" || ev.Message != "Hallo!" {
		t.Fatalf("unexpected fenced parse %+v", ev)
	}
	if !ev.Degraded {
		t.Fatalf("fenced parse should be marked degraded")
	}
}

func TestParseFallback(t *testing.T) {
	raw := "Rating: 4\nReason: needs a new gasket\nMessage: Hoi, is deze nog te koop?"
	ev := Parse(raw)
	if ev.Rating != 4 {
		t.Fatalf("expected rating 4, got %d", ev.Rating)
	}
	if ev.Message != "Hoi, is deze nog te koop?" {
		t.Fatalf("unexpected message %q", ev.Message)
	}
	if !strings.HasPrefix(ev.Reason, "needs a new gasket") {
		t.Fatalf("unexpected reason %q", ev.Reason)
	}
}

func TestParseFallbackNoMatches(t *testing.T) {
	raw := "  recommend: good condition for parts  "
	ev := Parse(raw)
	if ev.Rating != 0 {
		t.Fatalf("expected rating 0, got %d", ev.Rating)
	}
	if ev.Message != "recommend: good condition for parts" {
		t.Fatalf("expected whole trimmed text as message, got %q", ev.Message)
	}
	if ev.Reason != "" {
		t.Fatalf("expected empty reason, got %q", ev.Reason)
	}
}

func TestParseNeverFailsAndStaysInRange(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"{",
		"}{",
		`{"rating":"five","reason":1,"message":null}`,
		"rating: 7 stars!",
		"RATING=9",
		"message:",
		"\x00\xff\xfe",
		strings.Repeat("rating ", 10000),
		"```json\n{broken\n```",
		"null",
		"[1,2,3]",
	}
	for _, raw := range inputs {
		ev := Parse(raw)
		if ev.Rating < 0 || ev.Rating > 5 {
			t.Fatalf("Parse(%q): rating %d out of range", raw, ev.Rating)
		}
		if ev.Message == "" {
			t.Fatalf("Parse(%q): empty message", raw)
		}
	}
}
