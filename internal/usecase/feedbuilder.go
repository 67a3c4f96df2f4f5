package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"mangafeed/internal/domain"
	"time"
)

// FeedBuilder produces the feed document for the configured series.
type FeedBuilder struct {
	aggregator *Aggregator
	renderer   FeedRenderer
	ids        []domain.SeriesID
	clock      func() time.Time
	log        *slog.Logger
}

type FeedBuilderOption func(*FeedBuilder)

// WithBuildClock replaces the source of lastBuildDate.
func WithBuildClock(clock func() time.Time) FeedBuilderOption {
	return func(b *FeedBuilder) { b.clock = clock }
}

func NewFeedBuilder(
	aggregator *Aggregator,
	renderer FeedRenderer,
	ids []domain.SeriesID,
	log *slog.Logger,
	opts ...FeedBuilderOption,
) *FeedBuilder {
	b := &FeedBuilder{
		aggregator: aggregator,
		renderer:   renderer,
		ids:        ids,
		clock:      time.Now,
		log:        log,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// BuildFeed aggregates the series and renders them. Errors come only from a
// strict aggregation or from the renderer.
func (b *FeedBuilder) BuildFeed(ctx context.Context) ([]byte, error) {
	series, err := b.aggregator.Aggregate(ctx, b.ids)
	if err != nil {
		return nil, err
	}
	body, err := b.renderer.Render(series, b.clock())
	if err != nil {
		b.log.Error("Feed rendering failed",
			slog.String("component", "feed-builder"),
			slog.Any("error", err),
		)
		return nil, fmt.Errorf("render failed: %w", err)
	}
	b.log.Debug("Feed built",
		slog.String("component", "feed-builder"),
		slog.Int("series", len(series)),
		slog.Int("bytes", len(body)),
	)
	return body, nil
}
