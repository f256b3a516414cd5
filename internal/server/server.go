// Package server exposes the bot over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/dyike/marktbot/internal/logger"
	"github.com/dyike/marktbot/internal/marktplaats"
	"github.com/dyike/marktbot/internal/models"
	"github.com/dyike/marktbot/internal/pipeline"
)

// Service is the part of pipeline.Bot the HTTP front-end drives.
type Service interface {
	Search(ctx context.Context, keyword string) ([]pipeline.Result, error)
	PollInbox(ctx context.Context) (pipeline.Summary, error)
	Negotiations(ctx context.Context) ([]models.NegotiationRecord, error)
}

type Response struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data any    `json:"data,omitempty"`
}

type Server struct {
	svc    Service
	log    *zap.Logger
	router *mux.Router
}

func New(svc Service, log *zap.Logger) *Server {
	s := &Server{svc: svc, log: logger.OrNop(log), router: mux.NewRouter()}
	s.router.Use(s.logRequests)
	s.router.HandleFunc("/search", s.handleSearch).Methods(http.MethodPost)
	s.router.HandleFunc("/check", s.handleCheck).Methods(http.MethodGet)
	s.router.HandleFunc("/negotiations", s.handleNegotiations).Methods(http.MethodGet)
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type searchRequest struct {
	Keyword string `json:"keyword"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	keyword, err := readKeyword(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if keyword == "" {
		writeJSON(w, http.StatusBadRequest, "keyword required", nil)
		return
	}

	results, err := s.svc.Search(r.Context(), keyword)
	if err != nil {
		s.log.Error("search failed", zap.String("keyword", keyword), zap.Error(err))
		writeJSON(w, statusFor(err), err.Error(), results)
		return
	}
	writeJSON(w, http.StatusOK, "Ok", results)
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	sum, err := s.svc.PollInbox(r.Context())
	if err != nil {
		s.log.Error("inbox poll failed", zap.Error(err))
		writeJSON(w, statusFor(err), err.Error(), sum)
		return
	}
	writeJSON(w, http.StatusOK, "Ok", sum)
}

func (s *Server) handleNegotiations(w http.ResponseWriter, r *http.Request) {
	recs, err := s.svc.Negotiations(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	if recs == nil {
		recs = []models.NegotiationRecord{}
	}
	writeJSON(w, http.StatusOK, "Ok", recs)
}

// readKeyword accepts both a form field and a JSON body.
func readKeyword(r *http.Request) (string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var req searchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return "", err
		}
		return strings.TrimSpace(req.Keyword), nil
	}
	return strings.TrimSpace(r.FormValue("keyword")), nil
}

func statusFor(err error) int {
	var (
		te *marktplaats.TransportError
		ae *marktplaats.AuthError
		me *marktplaats.MissingTokenError
	)
	switch {
	case errors.As(err, &ae), errors.As(err, &me), errors.Is(err, marktplaats.ErrMissingCredentials):
		return http.StatusUnauthorized
	case errors.As(err, &te):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, msg string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(Response{Code: code, Msg: msg, Data: data})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("took", time.Since(start)))
	})
}
