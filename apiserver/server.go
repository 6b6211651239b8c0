// Package apiserver is the blog-side plugin endpoint: the HTTP surface
// the relay's API client talks to. It authenticates by API key and
// persists cards and annotations through the SQLite store.
package apiserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/marginote/marginote/apiserver/store"
	"github.com/marginote/marginote/envelope"
)

// Server serves the /api/plugin routes.
type Server struct {
	store  *store.Store
	logger *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New creates a Server over a store.
func New(st *store.Store, opts ...Option) *Server {
	s := &Server{store: st, logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/plugin", func(r chi.Router) {
		r.Use(s.requireKey)
		r.Post("/submit", s.handleSubmit)
		r.Post("/sync-annotations", s.handleSyncAnnotations)
		r.Get("/annotations", s.handleAnnotations)
		r.Get("/recent", s.handleRecent)
	})

	return r
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var rec envelope.CaptureRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("malformed payload"))
		return
	}
	if strings.TrimSpace(rec.Content) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("content is required"))
		return
	}

	id, err := s.store.InsertCard(r.Context(), rec)
	if err != nil {
		s.logger.Error("submit failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}

	s.logger.Info("capture stored", "card_id", id, "source_url", rec.SourceURL)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"card_id": id,
		"message": "Capture saved",
	})
}

func (s *Server) handleSyncAnnotations(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL         string                `json:"url"`
		Annotations []envelope.Annotation `json:"annotations"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("malformed payload"))
		return
	}
	if req.URL == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("url is required"))
		return
	}

	ids, err := s.store.ReplaceAnnotations(r.Context(), req.URL, req.Annotations)
	if err != nil {
		s.logger.Error("sync annotations failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"annotation_ids": ids,
		"count":          len(ids),
	})
}

func (s *Server) handleAnnotations(w http.ResponseWriter, r *http.Request) {
	pageURL := r.URL.Query().Get("url")
	if pageURL == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("url is required"))
		return
	}

	anns, err := s.store.AnnotationsByURL(r.Context(), pageURL)
	if err != nil {
		s.logger.Error("annotations fetch failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"annotations": anns,
		"count":       len(anns),
	})
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 10)

	cards, err := s.store.RecentCards(r.Context(), limit)
	if err != nil {
		s.logger.Error("recent fetch failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}

	summaries := make([]envelope.CardSummary, len(cards))
	for i, c := range cards {
		summaries[i] = envelope.CardSummary{
			ID:        c.ID,
			Title:     c.Title,
			SourceURL: c.SourceURL,
			Tags:      c.Tags,
			CreatedAt: c.CreatedAt.Unix(),
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"cards":   summaries,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func errorBody(msg string) map[string]any {
	return map[string]any{"success": false, "error": msg}
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
