package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mangafeed/internal/domain"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// Mode selects how the aggregator reacts to a failing series.
type Mode int

const (
	// ModeLenient drops failing series and keeps going.
	ModeLenient Mode = iota
	// ModeStrict aborts on the first failure and returns no series.
	ModeStrict
)

func (m Mode) String() string {
	switch m {
	case ModeStrict:
		return "strict"
	default:
		return "lenient"
	}
}

// ParseMode accepts "lenient" or "strict" (case-insensitive).
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lenient":
		return ModeLenient, nil
	case "strict":
		return ModeStrict, nil
	default:
		return ModeLenient, fmt.Errorf("unknown aggregation mode %q", s)
	}
}

// FetchResult is the outcome of one series fetch: either Series or Err is set.
type FetchResult struct {
	SeriesID domain.SeriesID
	Series   domain.Series
	Err      error
}

// Aggregator fetches a fixed list of series and applies the fault policy.
type Aggregator struct {
	source      SeriesSource
	recorder    FetchRecorder
	mode        Mode
	concurrency int
	log         *slog.Logger
	now         func() time.Time
}

type AggregatorOption func(*Aggregator)

func WithMode(m Mode) AggregatorOption {
	return func(a *Aggregator) { a.mode = m }
}

// WithConcurrency bounds how many series are fetched at once. Values below 2
// keep fetches strictly sequential.
func WithConcurrency(n int) AggregatorOption {
	return func(a *Aggregator) {
		if n < 1 {
			n = 1
		}
		a.concurrency = n
	}
}

// WithRecorder stores every cycle's outcomes in the fetch log.
func WithRecorder(r FetchRecorder) AggregatorOption {
	return func(a *Aggregator) { a.recorder = r }
}

func WithClock(now func() time.Time) AggregatorOption {
	return func(a *Aggregator) { a.now = now }
}

func NewAggregator(source SeriesSource, log *slog.Logger, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		source:      source,
		mode:        ModeLenient,
		concurrency: 1,
		log:         log,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate returns the series for ids in input order. In lenient mode it
// never fails; in strict mode the first failing id, in input order, aborts
// the whole batch with a *domain.AggregationError.
func (a *Aggregator) Aggregate(ctx context.Context, ids []domain.SeriesID) ([]domain.Series, error) {
	start := time.Now()
	log := a.log.With(
		slog.String("component", "aggregator"),
		slog.String("mode", a.mode.String()),
	)
	results := a.fetchAll(ctx, ids)
	a.record(ctx, log, results)

	series := make([]domain.Series, 0, len(results))
	errorCount := 0
	for _, r := range results {
		if r.Err == nil {
			series = append(series, r.Series)
			continue
		}
		errorCount++
		if a.mode == ModeStrict {
			log.Error("Series fetch failed, aborting aggregation",
				slog.String("series_id", string(r.SeriesID)),
				slog.Any("error", r.Err),
			)
			return nil, &domain.AggregationError{SeriesID: r.SeriesID, Err: r.Err}
		}
		log.Warn("Series fetch failed, skipping",
			slog.String("series_id", string(r.SeriesID)),
			slog.Any("error", r.Err),
		)
	}

	log.Info("Aggregation completed",
		slog.Int("successful", len(series)),
		slog.Int("errors", errorCount),
		slog.Int("total", len(ids)),
		slog.Duration("duration", time.Since(start)),
	)
	return series, nil
}

// fetchAll returns one result per attempted id, in input order. A strict
// pass stops at the first failure: sequentially by not fetching the rest,
// concurrently by cancelling the fetches still in flight.
func (a *Aggregator) fetchAll(ctx context.Context, ids []domain.SeriesID) []FetchResult {
	if a.concurrency <= 1 || len(ids) <= 1 {
		results := make([]FetchResult, 0, len(ids))
		for _, id := range ids {
			r := a.fetchOne(ctx, id)
			results = append(results, r)
			if r.Err != nil && a.mode == ModeStrict {
				break
			}
		}
		return results
	}

	results := make([]FetchResult, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = FetchResult{SeriesID: id, Err: err}
				return nil
			}
			results[i] = a.fetchOne(gctx, id)
			if a.mode == ModeStrict {
				return results[i].Err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return dropAborted(ctx, results)
	}
	return results
}

// dropAborted removes the fetches cancelled because a sibling failed. When
// ctx itself is done every result is kept.
func dropAborted(ctx context.Context, results []FetchResult) []FetchResult {
	if ctx.Err() != nil {
		return results
	}
	kept := results[:0]
	for _, r := range results {
		if r.Err != nil && errors.Is(r.Err, context.Canceled) {
			continue
		}
		kept = append(kept, r)
	}
	return kept
}

func (a *Aggregator) fetchOne(ctx context.Context, id domain.SeriesID) FetchResult {
	series, err := a.source.SeriesInfo(ctx, id)
	if err != nil {
		return FetchResult{SeriesID: id, Err: err}
	}
	return FetchResult{SeriesID: id, Series: series}
}

func (a *Aggregator) record(ctx context.Context, log *slog.Logger, results []FetchResult) {
	if a.recorder == nil || len(results) == 0 {
		return
	}
	fetchedAt := a.now().UTC()
	records := make([]domain.FetchRecord, 0, len(results))
	for _, r := range results {
		rec := domain.FetchRecord{SeriesID: r.SeriesID, OK: r.Err == nil, FetchedAt: fetchedAt}
		if r.Err != nil {
			rec.Error = r.Err.Error()
		} else {
			rec.Chapters = len(r.Series.Chapters)
		}
		records = append(records, rec)
	}
	if _, err := a.recorder.SaveFetches(ctx, records); err != nil {
		log.Error("Failed to record fetch log", slog.Any("error", err))
	}
}
