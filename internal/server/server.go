// Package server exposes the read-only JSON API over the store.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/tokyo3/bestwines/internal/model"
	"github.com/tokyo3/bestwines/internal/store"
)

// Server serves the query API. All endpoints are read-only; mutations go
// through the CLI.
type Server struct {
	store store.Store
}

// New creates a Server over the store.
func New(st store.Store) *Server {
	return &Server{store: st}
}

// Router builds the HTTP handler with middleware and routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/toplists", s.handleListToplists)
		r.Get("/toplists/{id}", s.handleGetToplist)
		r.Get("/toplists/{id}/matches", s.handleListMatches)
		r.Get("/updates", s.handleListUpdates)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// toplistSummary is the list view of a toplist.
type toplistSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	Category  string    `json:"category,omitempty"`
	WineCount int       `json:"wine_count"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Server) handleListToplists(w http.ResponseWriter, r *http.Request) {
	toplists, err := s.store.ListToplists(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]toplistSummary, 0, len(toplists))
	for _, tl := range toplists {
		out = append(out, toplistSummary{
			ID:        tl.ID,
			Name:      tl.Name,
			URL:       tl.URL,
			Category:  tl.Category,
			WineCount: len(tl.WineIDs),
			UpdatedAt: tl.UpdatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"toplists": out})
}

// wineEntry merges a wine with its match and matched product for the
// detail view.
type wineEntry struct {
	Wine    model.VivinoWine       `json:"wine"`
	Match   *model.WineMatch       `json:"match,omitempty"`
	Product *model.RetailerProduct `json:"product,omitempty"`
}

func (s *Server) handleGetToplist(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	tl, err := s.store.GetToplist(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if tl == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "toplist not found"})
		return
	}

	wines, err := s.store.ListWinesByToplist(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	entries := make([]wineEntry, 0, len(wines))
	for _, wine := range wines {
		entry := wineEntry{Wine: wine}
		entry.Match, entry.Product, err = s.matchWithProduct(r.Context(), wine.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		entries = append(entries, entry)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"toplist": tl,
		"wines":   entries,
	})
}

func (s *Server) handleListMatches(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	tl, err := s.store.GetToplist(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if tl == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "toplist not found"})
		return
	}

	matches, err := s.store.ListMatchesByToplist(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"matches": matches})
}

func (s *Server) handleListUpdates(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if q := r.URL.Query().Get("limit"); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n > 0 {
			limit = n
		}
	}

	updates, err := s.store.ListUpdateLog(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"updates": updates})
}

func (s *Server) matchWithProduct(ctx context.Context, wineID string) (*model.WineMatch, *model.RetailerProduct, error) {
	m, err := s.store.GetMatch(ctx, wineID)
	if err != nil || m == nil {
		return nil, nil, err
	}
	p, err := s.store.GetProduct(ctx, m.ProductNumber)
	if err != nil {
		return nil, nil, err
	}
	return m, p, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("response encode failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, err error) {
	zap.L().Error("request failed", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

// requestLogger logs each request with structured fields.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
