package marktplaats

import (
	"errors"
	"fmt"
	"net/http"
)

var ErrMissingCredentials = errors.New("marktplaats: email and password are required")

// TransportError reports a failed request to the marketplace: either the
// request never completed (Err set) or it returned a non-success status.
type TransportError struct {
	Op         string
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("marktplaats: %s %s: %v", e.Op, e.URL, e.Err)
	}
	return fmt.Sprintf("marktplaats: %s %s: unexpected status %d", e.Op, e.URL, e.StatusCode)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Unauthorized reports whether the marketplace rejected the session.
func (e *TransportError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// MissingTokenError means the login page did not carry a token that the
// login request cannot be made without.
type MissingTokenError struct {
	Token string
}

func (e *MissingTokenError) Error() string {
	return fmt.Sprintf("marktplaats: %s not found on login page", e.Token)
}

// AuthError is a non-success response to the credential POST. The upstream
// has no structured error contract, so only the raw status and body are kept.
type AuthError struct {
	StatusCode int
	Body       string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("marktplaats: login rejected with status %d", e.StatusCode)
}

// IsUnauthorized reports whether err is a TransportError for a rejected session.
func IsUnauthorized(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Unauthorized()
}
