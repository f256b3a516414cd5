package marktplaats

import (
	"errors"
	"testing"
)

const loginPage = `<!doctype html>
<html><head>
<script>window.__CONFIG__ = {"xsrfToken":"tok-123","threatMetrix":{"orgId":"abc","sessionId":"s-1","profile":{"url":"https://h.example/fp"}},"locale":"nl-NL"};</script>
</head><body><form id="login"></form></body></html>`

func TestExtractTokens(t *testing.T) {
	tokens, err := ExtractTokens(loginPage)
	if err != nil {
		t.Fatalf("ExtractTokens: %v", err)
	}
	if tokens.XSRFToken != "tok-123" {
		t.Fatalf("expected tok-123, got %q", tokens.XSRFToken)
	}
	if tokens.DeviceFingerprint["orgId"] != "abc" {
		t.Fatalf("unexpected fingerprint %v", tokens.DeviceFingerprint)
	}
	profile, ok := tokens.DeviceFingerprint["profile"].(map[string]any)
	if !ok || profile["url"] != "https://h.example/fp" {
		t.Fatalf("nested fingerprint object lost: %v", tokens.DeviceFingerprint)
	}
}

func TestExtractTokensMissingXSRF(t *testing.T) {
	_, err := ExtractTokens(`<html><script>var x = {"threatMetrix":{"orgId":"abc"}}</script></html>`)
	var missing *MissingTokenError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingTokenError, got %v", err)
	}
	if missing.Token != "xsrfToken" {
		t.Fatalf("unexpected token name %q", missing.Token)
	}
}

func TestExtractTokensMalformedFingerprint(t *testing.T) {
	cases := map[string]string{
		"absent":    `<script>{"xsrfToken":"t"}</script>`,
		"truncated": `<script>{"xsrfToken":"t","threatMetrix":{"orgId":"abc",</script>`,
		"not json":  `<script>{"xsrfToken":"t","threatMetrix":{orgId: abc}}</script>`,
	}
	for name, html := range cases {
		tokens, err := ExtractTokens(html)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", name, err)
		}
		if tokens.DeviceFingerprint == nil || len(tokens.DeviceFingerprint) != 0 {
			t.Fatalf("%s: expected empty fingerprint, got %v", name, tokens.DeviceFingerprint)
		}
	}
}

func TestExtractTokensOutsideScript(t *testing.T) {
	tokens, err := ExtractTokens(`<div data-config='{"xsrfToken":"attr-tok"}'></div>`)
	if err != nil {
		t.Fatalf("ExtractTokens: %v", err)
	}
	if tokens.XSRFToken != "attr-tok" {
		t.Fatalf("expected attr-tok, got %q", tokens.XSRFToken)
	}
}
