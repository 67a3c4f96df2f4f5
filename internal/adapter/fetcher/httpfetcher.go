package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mangafeed/internal/domain"
	"net/http"
	"time"
)

const userAgent = "mangafeed/1.0 (+https://mangarock.com/g)"

// HTTPFetcher downloads upstream documents with a single GET per call.
// Network failures and non-2xx statuses come back as *domain.TransportError.
type HTTPFetcher struct {
	client *http.Client
	log    *slog.Logger
}

// NewHTTPFetcher builds a fetcher whose requests are bounded by timeout.
// A zero timeout leaves requests bounded only by the caller's context.
func NewHTTPFetcher(log *slog.Logger, timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{Timeout: timeout},
		log:    log,
	}
}

// Fetch performs the GET and returns the response body, which the caller must close.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	log := f.log.With(slog.String("component", "fetcher"), slog.String("url", url))
	log.Debug("Fetching URL")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		log.Error("Failed to create HTTP request", slog.Any("error", err))
		return nil, &domain.TransportError{URL: url, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	resp, err := f.client.Do(req)
	if err != nil {
		log.Error("HTTP request failed", slog.Any("error", err))
		return nil, &domain.TransportError{URL: url, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		log.Error("Unexpected status code", slog.Int("status_code", resp.StatusCode))
		return nil, &domain.TransportError{URL: url, StatusCode: resp.StatusCode}
	}
	log.Debug("Successfully fetched URL", slog.Int("status_code", resp.StatusCode))
	return resp.Body, nil
}
