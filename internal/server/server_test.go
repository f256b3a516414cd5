package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/dyike/marktbot/internal/marktplaats"
	"github.com/dyike/marktbot/internal/models"
	"github.com/dyike/marktbot/internal/pipeline"
)

type fakeService struct {
	keyword   string
	results   []pipeline.Result
	searchErr error
	summary   pipeline.Summary
	pollErr   error
	records   []models.NegotiationRecord
}

func (f *fakeService) Search(_ context.Context, keyword string) ([]pipeline.Result, error) {
	f.keyword = keyword
	return f.results, f.searchErr
}

func (f *fakeService) PollInbox(context.Context) (pipeline.Summary, error) {
	return f.summary, f.pollErr
}

func (f *fakeService) Negotiations(context.Context) ([]models.NegotiationRecord, error) {
	return f.records, nil
}

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func do(t *testing.T, h http.Handler, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return rec, env
}

func TestSearchRequiresKeyword(t *testing.T) {
	svc := &fakeService{}
	h := New(svc, nil).Handler()

	req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader("keyword=+"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec, env := do(t, h, req)
	if rec.Code != http.StatusBadRequest || env.Msg != "keyword required" {
		t.Fatalf("status=%d env=%+v", rec.Code, env)
	}
	if svc.keyword != "" {
		t.Fatalf("search must not run without keyword")
	}
}

func TestSearchFormAndJSON(t *testing.T) {
	svc := &fakeService{results: []pipeline.Result{{
		Listing: models.Listing{ID: "m1", Title: "Senseo defect", Price: decimal.NewFromInt(15)},
		Outcome: pipeline.OutcomeOpened,
	}}}
	h := New(svc, nil).Handler()

	form := url.Values{"keyword": {"senseo"}}
	req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec, env := do(t, h, req)
	if rec.Code != http.StatusOK || env.Code != http.StatusOK || svc.keyword != "senseo" {
		t.Fatalf("status=%d env=%+v keyword=%q", rec.Code, env, svc.keyword)
	}
	var results []pipeline.Result
	if err := json.Unmarshal(env.Data, &results); err != nil || len(results) != 1 || results[0].Outcome != pipeline.OutcomeOpened {
		t.Fatalf("data=%s err=%v", env.Data, err)
	}

	req = httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(`{"keyword":"koffiemachine"}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	rec, _ = do(t, h, req)
	if rec.Code != http.StatusOK || svc.keyword != "koffiemachine" {
		t.Fatalf("status=%d keyword=%q", rec.Code, svc.keyword)
	}
}

func TestSearchErrorStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{&marktplaats.TransportError{Op: "search", StatusCode: http.StatusBadGateway}, http.StatusBadGateway},
		{&marktplaats.AuthError{StatusCode: http.StatusUnauthorized}, http.StatusUnauthorized},
		{marktplaats.ErrMissingCredentials, http.StatusUnauthorized},
		{context.Canceled, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		h := New(&fakeService{searchErr: tc.err}, nil).Handler()
		req := httptest.NewRequest(http.MethodPost, "/search?keyword=senseo", nil)
		rec, env := do(t, h, req)
		if rec.Code != tc.want || env.Code != tc.want {
			t.Fatalf("%v: status=%d, want %d", tc.err, rec.Code, tc.want)
		}
	}
}

func TestCheckReturnsSummary(t *testing.T) {
	svc := &fakeService{summary: pipeline.Summary{Processed: 2, Ignored: 1, Deals: 1}}
	rec, env := do(t, New(svc, nil).Handler(), httptest.NewRequest(http.MethodGet, "/check", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var sum pipeline.Summary
	if err := json.Unmarshal(env.Data, &sum); err != nil || sum.Processed != 2 || sum.Deals != 1 {
		t.Fatalf("summary=%+v err=%v", sum, err)
	}
}

func TestNegotiationsListsRecords(t *testing.T) {
	svc := &fakeService{records: []models.NegotiationRecord{{ListingID: "m1", Stage: models.StageCountered}}}
	rec, env := do(t, New(svc, nil).Handler(), httptest.NewRequest(http.MethodGet, "/negotiations", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var recs []models.NegotiationRecord
	if err := json.Unmarshal(env.Data, &recs); err != nil || len(recs) != 1 || recs[0].Stage != models.StageCountered {
		t.Fatalf("records=%+v err=%v data=%s", recs, err, env.Data)
	}
}

func TestSearchRejectsGet(t *testing.T) {
	rec := httptest.NewRecorder()
	New(&fakeService{}, nil).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/search", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", rec.Code)
	}
}
