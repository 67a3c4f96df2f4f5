package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mangafeed/internal/domain"
	"mangafeed/internal/usecase"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"
)

const rssContentType = "application/rss+xml; charset=utf-8"

type feedBuilder interface {
	BuildFeed(ctx context.Context) ([]byte, error)
}

type fetchLogGetter interface {
	RecentFetches(ctx context.Context, limit int) ([]domain.FetchRecord, error)
}

type Handler struct {
	log      *slog.Logger
	feed     feedBuilder
	fetchLog fetchLogGetter
}

// NewHandler wires the endpoints. fetchLog may be nil when no database is
// configured; /api/fetches then answers 404.
func NewHandler(log *slog.Logger, feed feedBuilder, fetchLog fetchLogGetter) *Handler {
	return &Handler{
		log:      log.With(slog.String("component", "http")),
		feed:     feed,
		fetchLog: fetchLog,
	}
}

// getFeed serves GET /feed.rss
func (h *Handler) getFeed(w http.ResponseWriter, r *http.Request) {
	const op = "transport.http.getFeed"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
	body, err := h.feed.BuildFeed(r.Context())
	if err != nil {
		if domain.IsAggregation(err) {
			log.Warn("Feed aggregation aborted", slog.Any("error", err))
			respondWithError(w, http.StatusBadGateway, err.Error())
			return
		}
		log.Error("Failed to build feed", slog.Any("error", err))
		respondWithError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	w.Header().Set("Content-Type", rssContentType)
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// getFetches serves GET /api/fetches?limit=N
func (h *Handler) getFetches(w http.ResponseWriter, r *http.Request) {
	const op = "transport.http.getFetches"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
	if h.fetchLog == nil {
		respondWithError(w, http.StatusNotFound, "Fetch log is disabled")
		return
	}
	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		var err error
		limit, err = strconv.Atoi(limitStr)
		if err != nil || limit <= 0 {
			log.Warn("Invalid limit parameter", slog.String("limit", limitStr))
			respondWithError(w, http.StatusBadRequest, "Invalid 'limit' parameter")
			return
		}
	}
	records, err := h.fetchLog.RecentFetches(r.Context(), limit)
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidLimit) {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Error("Failed to read fetch log", slog.Any("error", err))
		respondWithError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	respondWithJSON(w, http.StatusOK, records)
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
