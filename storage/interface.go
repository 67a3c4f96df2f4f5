package storage

import (
	"context"
	"mangafeed/internal/domain"
)

// FetchLog stores the outcome of every upstream series fetch.
type FetchLog interface {
	SaveFetches(ctx context.Context, records []domain.FetchRecord) (int, error)
	RecentFetches(ctx context.Context, limit int) ([]domain.FetchRecord, error)
	Close()
}
