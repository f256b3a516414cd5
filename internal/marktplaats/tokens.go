package marktplaats

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Tokens are the session-bootstrap artifacts embedded in the login page.
type Tokens struct {
	XSRFToken         string
	DeviceFingerprint map[string]any
}

var (
	xsrfPattern        = regexp.MustCompile(`"xsrfToken"\s*:\s*"([^"]+)"`)
	fingerprintPattern = regexp.MustCompile(`"threatMetrix"\s*:\s*\{`)
)

// ExtractTokens recovers the XSRF token and the device fingerprint from the
// login page. A missing XSRF token is a *MissingTokenError. The fingerprint
// is best effort: when absent or malformed it is an empty map.
func ExtractTokens(html string) (Tokens, error) {
	candidates := scriptBodies(html)
	candidates = append(candidates, html)

	tokens := Tokens{DeviceFingerprint: map[string]any{}}
	for _, text := range candidates {
		if m := xsrfPattern.FindStringSubmatch(text); m != nil {
			tokens.XSRFToken = m[1]
			break
		}
	}
	for _, text := range candidates {
		if fp, ok := decodeFingerprint(text); ok {
			tokens.DeviceFingerprint = fp
			break
		}
	}

	if tokens.XSRFToken == "" {
		return tokens, &MissingTokenError{Token: "xsrfToken"}
	}
	return tokens, nil
}

func scriptBodies(html string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	var bodies []string
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		if text := s.Text(); strings.TrimSpace(text) != "" {
			bodies = append(bodies, text)
		}
	})
	return bodies
}

// decodeFingerprint decodes the object that starts at the threatMetrix
// anchor. The decoder stops after one value, so trailing markup is ignored
// and nested objects survive.
func decodeFingerprint(text string) (map[string]any, bool) {
	loc := fingerprintPattern.FindStringIndex(text)
	if loc == nil {
		return nil, false
	}
	var fp map[string]any
	if err := json.NewDecoder(strings.NewReader(text[loc[1]-1:])).Decode(&fp); err != nil || fp == nil {
		return nil, false
	}
	return fp, true
}
