// Package api exposes the scrape service over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/aluiziolira/books-scrape-api/models"
	"github.com/aluiziolira/books-scrape-api/scraper"
)

const maxBodyBytes = 1 << 20

// Scraper runs one scrape request.
type Scraper interface {
	Scrape(ctx context.Context, req scraper.Request) (*models.ScrapeResult, error)
}

// Server wires HTTP handlers to the scrape service.
type Server struct {
	router        chi.Router
	scraper       Scraper
	allowedDomain string
	logger        *slog.Logger
}

// NewServer constructs a Server with middleware and routes. metrics may be
// nil, in which case /metrics serves the default registry.
func NewServer(svc Scraper, allowedDomain string, metrics *scraper.Metrics, corsOrigins []string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		scraper:       svc,
		allowedDomain: allowedDomain,
		logger:        logger.With("component", "api"),
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Endpoint not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
	})

	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Get("/popular-sites", s.popularSites)
	r.Post("/scrape", s.scrape)

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) popularSites(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"sites":   scraper.SiteMap(),
		"message": fmt.Sprintf("Use these shortcuts or provide full %s URLs", s.allowedDomain),
	})
}

func (s *Server) scrape(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeScrapeRequest(r.Body)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:    "Invalid request format",
			Category: scraper.CategoryInvalidInput,
		})
		return
	}

	result, err := s.scraper.Scrape(r.Context(), req)
	if err != nil {
		status, body := errorBody(err)
		s.logger.Warn("scrape failed",
			slog.String("request_id", RequestID(r.Context())),
			slog.String("category", body.Category),
			slog.Any("error", err),
		)
		writeJSON(w, status, body)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// decodeScrapeRequest rejects bodies that are not a JSON object carrying a
// url key. A blank url is left for the service to report.
func decodeScrapeRequest(body io.Reader) (scraper.Request, bool) {
	raw, err := io.ReadAll(io.LimitReader(body, maxBodyBytes))
	if err != nil {
		return scraper.Request{}, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return scraper.Request{}, false
	}
	if _, ok := fields["url"]; !ok {
		return scraper.Request{}, false
	}
	var req scraper.Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return scraper.Request{}, false
	}
	return req, true
}

type errorResponse struct {
	Error          string   `json:"error"`
	Category       string   `json:"category"`
	SupportedSites []string `json:"supported_sites,omitempty"`
	Suggestion     string   `json:"suggestion,omitempty"`
	Details        string   `json:"details,omitempty"`
}

func errorBody(err error) (int, errorResponse) {
	var invalid scraper.ErrInvalidInput
	if errors.As(err, &invalid) {
		return http.StatusBadRequest, errorResponse{
			Error:          invalid.Error(),
			Category:       scraper.CategoryInvalidInput,
			SupportedSites: invalid.SupportedSites,
		}
	}
	var fetch scraper.ErrFetch
	if errors.As(err, &fetch) {
		return http.StatusBadRequest, errorResponse{
			Error:      fetch.Error(),
			Category:   scraper.CategoryFetch,
			Suggestion: fetch.Suggestion(),
		}
	}
	var noData scraper.ErrNoData
	if errors.As(err, &noData) {
		return http.StatusNotFound, errorResponse{
			Error:      noData.Error(),
			Category:   scraper.CategoryNoData,
			Suggestion: noData.Suggestion(),
		}
	}
	var unexpected scraper.ErrUnexpected
	if !errors.As(err, &unexpected) {
		unexpected = scraper.ErrUnexpected{Err: err}
	}
	return http.StatusInternalServerError, errorResponse{
		Error:    unexpected.Error(),
		Category: scraper.CategoryUnexpected,
		Details:  unexpected.Details(),
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Default().Error("write JSON failed", "error", err)
	}
}
