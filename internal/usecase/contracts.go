package usecase

import (
	"context"
	"mangafeed/internal/domain"
	"time"
)

// SeriesSource resolves one series identifier with a single upstream call.
type SeriesSource interface {
	SeriesInfo(ctx context.Context, id domain.SeriesID) (domain.Series, error)
}

// FeedRenderer projects aggregated series into the feed document.
type FeedRenderer interface {
	Render(series []domain.Series, now time.Time) ([]byte, error)
}

// FetchRecorder persists the per-series outcomes of an aggregation cycle.
type FetchRecorder interface {
	SaveFetches(ctx context.Context, records []domain.FetchRecord) (int, error)
}

// FetchLogStorage reads back recorded outcomes, newest first.
type FetchLogStorage interface {
	RecentFetches(ctx context.Context, limit int) ([]domain.FetchRecord, error)
}
