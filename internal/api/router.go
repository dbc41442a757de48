// Package api exposes the diary proxy over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/rbright/ringbell/internal/diary"
	"github.com/rbright/ringbell/internal/sentiment"
)

// Service is the diary behavior the handlers need.
type Service interface {
	Classify(ctx context.Context, text string) (sentiment.Label, error)
	Feedback(ctx context.Context, text, label string) (string, error)
	Analyze(ctx context.Context, text string) (diary.Analysis, error)
	Recent(ctx context.Context, limit int) ([]diary.Entry, error)
}

// NewRouter builds the HTTP handler for the diary proxy.
func NewRouter(svc Service, allowedOrigins []string, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	mw := NewMiddleware(logger)
	h := &handler{svc: svc, logger: logger.Named("api")}

	router := chi.NewRouter()
	router.Use(mw.RequestID)
	router.Use(mw.Logger)
	router.Use(mw.Recoverer)
	router.Use(mw.CORS(allowedOrigins))

	router.Route("/api", func(r chi.Router) {
		r.Get("/health", h.health)
		r.Post("/sentiment", h.sentiment)
		r.Post("/feedback", h.feedback)
		r.Post("/analyze", h.analyze)
		r.Get("/diary", h.diary)
	})

	router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "route not found"})
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed"})
	})
	return router
}
