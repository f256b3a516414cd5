package marktplaats

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/dyike/marktbot/internal/models"
)

// Session is an authenticated identity with the marketplace. It is never
// mutated after Authenticate returns it and may be shared between goroutines.
type Session struct {
	client    *Client
	xsrfToken string
}

func (s *Session) Client() *Client { return s.client }

func (s *Session) XSRFToken() string { return s.xsrfToken }

type sendRequest struct {
	AdID string `json:"adId"`
	Body string `json:"body"`
}

type inboxResponse struct {
	Messages []models.InboxMessage `json:"messages"`
}

// SendMessage posts body to the conversation thread of the given ad.
func (s *Session) SendMessage(ctx context.Context, adID, body string) error {
	if strings.TrimSpace(adID) == "" {
		return fmt.Errorf("marktplaats: ad id is required")
	}
	resp, err := s.client.rc.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-XSRF-TOKEN", s.xsrfToken).
		SetBody(sendRequest{AdID: adID, Body: body}).
		Post(SendPath)
	if err != nil {
		return &TransportError{Op: "POST", URL: s.client.resolve(SendPath), Err: err}
	}
	if !resp.IsSuccess() {
		return &TransportError{Op: "POST", URL: s.client.resolve(SendPath), StatusCode: resp.StatusCode()}
	}
	s.client.log.Info("message sent", zap.String("ad_id", adID))
	return nil
}

// Inbox returns inbound messages in upstream order. Entries without an ad
// id cannot be routed and are dropped.
func (s *Session) Inbox(ctx context.Context) ([]models.InboxMessage, error) {
	body, err := s.client.Fetch(ctx, InboxPath, nil)
	if err != nil {
		return nil, err
	}
	var payload inboxResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &TransportError{Op: "GET", URL: s.client.resolve(InboxPath), Err: fmt.Errorf("decode inbox: %w", err)}
	}
	messages := make([]models.InboxMessage, 0, len(payload.Messages))
	for _, m := range payload.Messages {
		if strings.TrimSpace(m.AdID) == "" {
			continue
		}
		messages = append(messages, m)
	}
	return messages, nil
}
