package worker

import (
	"context"
	"log/slog"
	"mangafeed/internal/domain"
	"sync"
	"time"
)

// Aggregator is the part of the feed pipeline the probe drives.
type Aggregator interface {
	Aggregate(ctx context.Context, ids []domain.SeriesID) ([]domain.Series, error)
}

// Worker periodically aggregates the configured series so the fetch log
// tracks upstream health between feed requests.
type Worker struct {
	aggregator Aggregator
	ids        []domain.SeriesID
	interval   time.Duration
	timeout    time.Duration
	log        *slog.Logger
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

func New(aggregator Aggregator, ids []domain.SeriesID, interval, timeout time.Duration, log *slog.Logger) *Worker {
	return &Worker{
		aggregator: aggregator,
		ids:        ids,
		interval:   interval,
		timeout:    timeout,
		log:        log.With(slog.String("component", "worker")),
	}
}

// Start runs the first cycle immediately, then one per interval, until Stop.
func (w *Worker) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()
}

// Stop cancels the running cycle and waits for the loop to exit.
func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context) {
	w.log.Info("Upstream probe worker started",
		slog.String("interval", w.interval.String()),
		slog.Int("series_count", len(w.ids)),
	)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	w.probe(ctx)
	for {
		select {
		case <-ticker.C:
			w.probe(ctx)
		case <-ctx.Done():
			w.log.Info("Worker stopping")
			return
		}
	}
}

func (w *Worker) probe(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	opCtx := ctx
	if w.timeout > 0 {
		var cancel context.CancelFunc
		opCtx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}
	series, err := w.aggregator.Aggregate(opCtx, w.ids)
	if err != nil {
		w.log.Error("Probe cycle failed", slog.Any("error", err))
		return
	}
	w.log.Info("Probe cycle completed",
		slog.Int("successful", len(series)),
		slog.Int("errors", len(w.ids)-len(series)),
		slog.Int("total", len(w.ids)),
		slog.Duration("duration", time.Since(start)),
	)
}

func (w *Worker) Interval() time.Duration { return w.interval }
