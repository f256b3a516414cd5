package marktplaats

import (
	"context"
	"net/http"
	"testing"
)

func loggedIn(t *testing.T, f *fakeMarket) *Session {
	t.Helper()
	if f.page == "" {
		f.page = loginPage
	}
	srv := newFakeMarket(t, f)
	session, err := NewAuthenticator(Options{BaseURL: srv.URL}).Authenticate(context.Background(), "me@example.nl", "secret")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	return session
}

func TestSessionSendMessage(t *testing.T) {
	f := &fakeMarket{}
	session := loggedIn(t, f)

	if err := session.SendMessage(context.Background(), "m123", "Is deze nog beschikbaar?"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if len(f.sent) != 1 || f.sent[0].AdID != "m123" {
		t.Fatalf("unexpected sent messages %+v", f.sent)
	}
}

func TestSessionInboxKeepsOrderAndDropsUnroutable(t *testing.T) {
	f := &fakeMarket{inbox: `{"messages":[{"adId":"m2","body":"€ 30"},{"adId":"","body":"spam"},{"adId":"m1","body":"deal"}]}`}
	session := loggedIn(t, f)

	msgs, err := session.Inbox(context.Background())
	if err != nil {
		t.Fatalf("Inbox: %v", err)
	}
	if len(msgs) != 2 || msgs[0].AdID != "m2" || msgs[1].AdID != "m1" {
		t.Fatalf("unexpected inbox %+v", msgs)
	}
}

func TestSessionInboxUnauthorized(t *testing.T) {
	f := &fakeMarket{inboxCode: http.StatusUnauthorized}
	session := loggedIn(t, f)

	_, err := session.Inbox(context.Background())
	if !IsUnauthorized(err) {
		t.Fatalf("expected unauthorized transport error, got %v", err)
	}
}
