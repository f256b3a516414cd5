package marktplaats

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/dyike/marktbot/internal/logger"
)

type loginRequest struct {
	Email        string         `json:"email"`
	Password     string         `json:"password"`
	RememberMe   bool           `json:"rememberMe"`
	ThreatMetrix map[string]any `json:"threatMetrix"`
}

// Authenticator performs the two-step login handshake. It never retries;
// retry policy belongs to the caller.
type Authenticator struct {
	opts Options
	log  *zap.Logger
}

func NewAuthenticator(opts Options) *Authenticator {
	return &Authenticator{opts: opts, log: logger.OrNop(opts.Logger)}
}

// Authenticate fetches the login page, extracts its tokens and posts the
// credentials with the same cookie jar. That jar backs the returned Session.
func (a *Authenticator) Authenticate(ctx context.Context, email, password string) (*Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	client, err := NewClient(a.opts)
	if err != nil {
		return nil, err
	}

	a.log.Info("fetching login page")
	page, err := client.Fetch(ctx, LoginPagePath, nil)
	if err != nil {
		return nil, err
	}

	tokens, err := ExtractTokens(string(page))
	if err != nil {
		return nil, err
	}
	a.log.Debug("login tokens extracted", zap.Int("fingerprint_fields", len(tokens.DeviceFingerprint)))

	a.log.Info("submitting credentials")
	resp, err := client.rc.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-XSRF-TOKEN", tokens.XSRFToken).
		SetHeader("Referer", client.resolve(LoginPagePath)).
		SetHeader("Origin", client.BaseURL()).
		SetBody(loginRequest{
			Email:        email,
			Password:     password,
			RememberMe:   true,
			ThreatMetrix: tokens.DeviceFingerprint,
		}).
		Post(LoginAPIPath)
	if err != nil {
		return nil, &TransportError{Op: "POST", URL: client.resolve(LoginAPIPath), Err: err}
	}
	if !resp.IsSuccess() {
		return nil, &AuthError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	a.log.Info("login accepted", zap.Int("status", resp.StatusCode()))
	return &Session{
		client:    client,
		xsrfToken: tokens.XSRFToken,
	}, nil
}
