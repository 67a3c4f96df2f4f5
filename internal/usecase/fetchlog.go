package usecase

import (
	"context"
	"errors"
	"fmt"
	"mangafeed/internal/domain"
)

// MaxFetchLimit caps a single fetch log page.
const MaxFetchLimit = 500

var ErrInvalidLimit = errors.New("limit must be between 1 and 500")

// FetchLogGetter reads recent upstream fetch outcomes.
type FetchLogGetter struct {
	storage      FetchLogStorage
	defaultLimit int
}

func NewFetchLogGetter(storage FetchLogStorage, defaultLimit int) *FetchLogGetter {
	if defaultLimit <= 0 || defaultLimit > MaxFetchLimit {
		defaultLimit = 20
	}
	return &FetchLogGetter{storage: storage, defaultLimit: defaultLimit}
}

// RecentFetches returns at most limit records, newest first. A zero limit
// selects the default page size.
func (g *FetchLogGetter) RecentFetches(ctx context.Context, limit int) ([]domain.FetchRecord, error) {
	if limit == 0 {
		limit = g.defaultLimit
	}
	if limit < 0 || limit > MaxFetchLimit {
		return nil, ErrInvalidLimit
	}
	records, err := g.storage.RecentFetches(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read fetch log: %w", err)
	}
	if records == nil {
		records = []domain.FetchRecord{}
	}
	return records, nil
}
