package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type ServerOptions struct {
	CORSOrigins []string
	RateLimit   float64
	RateBurst   int
}

// NewServer builds the router with its middleware chain.
func NewServer(log *slog.Logger, h *Handler, opts ServerOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(loggingMiddleware(log))
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware(opts.CORSOrigins))
	r.Use(rateLimitMiddleware(opts.RateLimit, opts.RateBurst))

	r.Get("/feed.rss", h.getFeed)
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.healthCheck)
		r.Get("/fetches", h.getFetches)
	})
	return r
}
