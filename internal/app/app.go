package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mangafeed/internal/adapter/fetcher"
	"mangafeed/internal/adapter/mangarock"
	"mangafeed/internal/adapter/parser"
	"mangafeed/internal/adapter/rss"
	"mangafeed/internal/config"
	"mangafeed/internal/domain"
	"mangafeed/internal/logger"
	"mangafeed/internal/migrations"
	server "mangafeed/internal/transport/http"
	"mangafeed/internal/usecase"
	"mangafeed/internal/worker"
	"mangafeed/storage"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// App owns the HTTP server, the optional probe worker and the optional
// fetch log database.
type App struct {
	config    *config.Config
	logger    *slog.Logger
	logCloser io.Closer
	server    *http.Server
	worker    *worker.Worker
	fetchLog  storage.FetchLog
	stopChan  chan os.Signal
	wg        sync.WaitGroup
}

var newLogger = logger.New

// New validates cfg and builds every component. The log files are closed
// again when a later step fails.
func New(cfg *config.Config) (_ *App, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	appLogger, logCloser, err := newLogger(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to setup logger: %w", err)
	}
	defer func() {
		if err != nil && logCloser != nil {
			logCloser.Close()
		}
	}()
	slog.SetDefault(appLogger)

	mode, err := usecase.ParseMode(cfg.App.Mode)
	if err != nil {
		return nil, err
	}
	ids := make([]domain.SeriesID, 0, len(cfg.App.Series))
	for _, id := range cfg.App.Series {
		ids = append(ids, domain.SeriesID(id))
	}

	a := &App{
		config:    cfg,
		logger:    appLogger,
		logCloser: logCloser,
		stopChan:  make(chan os.Signal, 1),
	}

	aggOpts := []usecase.AggregatorOption{
		usecase.WithMode(mode),
		usecase.WithConcurrency(cfg.App.Concurrency),
	}
	var fetchLogGetter *usecase.FetchLogGetter
	if cfg.Database.Enabled {
		fetchLog, err := openFetchLog(context.Background(), cfg.Database, appLogger)
		if err != nil {
			return nil, err
		}
		a.fetchLog = fetchLog
		aggOpts = append(aggOpts, usecase.WithRecorder(fetchLog))
		fetchLogGetter = usecase.NewFetchLogGetter(fetchLog, cfg.App.DefaultFetchLimit)
	}

	httpFetcher := fetcher.NewHTTPFetcher(appLogger, cfg.UpstreamTimeout())
	jsonParser := parser.NewJSONParser(appLogger)
	client := mangarock.NewClient(cfg.Upstream.BaseURL, httpFetcher, jsonParser, appLogger)
	aggregator := usecase.NewAggregator(client, appLogger, aggOpts...)
	feedBuilder := usecase.NewFeedBuilder(aggregator, rss.NewRenderer(rss.WithWindow(cfg.App.Window)), ids, appLogger)

	// A nil *FetchLogGetter must not reach the handler as a non-nil interface.
	var handler *server.Handler
	if fetchLogGetter != nil {
		handler = server.NewHandler(appLogger, feedBuilder, fetchLogGetter)
	} else {
		handler = server.NewHandler(appLogger, feedBuilder, nil)
	}
	router := server.NewServer(appLogger, handler, server.ServerOptions{
		CORSOrigins: cfg.App.CORSOrigins,
		RateLimit:   cfg.App.RateLimit.RPS,
		RateBurst:   cfg.App.RateLimit.Burst,
	})
	a.server = &http.Server{
		Addr:    cfg.Server.Address(),
		Handler: router,
	}

	if interval, _ := cfg.ProbeInterval(); interval > 0 {
		// Probes always run lenient so one broken series never hides the others.
		probe := usecase.NewAggregator(client, appLogger,
			usecase.WithConcurrency(cfg.App.Concurrency),
			usecase.WithRecorder(a.recorder()),
		)
		a.worker = worker.New(probe, ids, interval, cfg.UpstreamTimeout()*time.Duration(len(ids)), appLogger)
	}

	appLogger.Info("Application initialized",
		slog.String("component", "app"),
		slog.Int("series_count", len(ids)),
		slog.String("mode", mode.String()),
		slog.Bool("fetch_log", cfg.Database.Enabled),
	)
	return a, nil
}

func openFetchLog(ctx context.Context, cfg config.DatabaseConfig, log *slog.Logger) (*storage.PostgresFetchLog, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	if err := migrations.Apply(ctx, log, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrations failed: %w", err)
	}
	return storage.NewPostgresFetchLog(pool, log), nil
}

// recorder returns the fetch log as a recorder, or nil when disabled.
func (a *App) recorder() usecase.FetchRecorder {
	if a.fetchLog == nil {
		return nil
	}
	return a.fetchLog
}

// Run serves until SIGINT or SIGTERM, then shuts down.
func (a *App) Run() error {
	listener, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}
	a.logger.Info("HTTP server ready",
		slog.String("component", "server"),
		slog.String("address", listener.Addr().String()),
	)
	if a.worker != nil {
		a.worker.Start()
	}

	serveErr := make(chan error, 1)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("HTTP server failed", slog.String("component", "server"), slog.Any("error", err))
			serveErr <- err
		}
	}()

	signal.Notify(a.stopChan, syscall.SIGINT, syscall.SIGTERM)
	var runErr error
	select {
	case sig := <-a.stopChan:
		a.logger.Info("Shutdown signal received",
			slog.String("component", "app"),
			slog.String("signal", sig.String()),
		)
	case runErr = <-serveErr:
	}
	if err := a.Shutdown(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// Shutdown stops the worker, drains the HTTP server and closes the database.
func (a *App) Shutdown() error {
	a.logger.Info("Starting graceful shutdown", slog.String("component", "app"))
	if a.worker != nil {
		a.worker.Stop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), a.config.ShutdownTimeout())
	defer cancel()
	var shutdownErr error
	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.Error("HTTP server shutdown failed", slog.String("component", "server"), slog.Any("error", err))
		shutdownErr = err
	}
	if a.fetchLog != nil {
		a.fetchLog.Close()
	}
	a.wg.Wait()
	a.logger.Info("Application stopped gracefully", slog.String("component", "app"))
	if a.logCloser != nil {
		a.logCloser.Close()
	}
	return shutdownErr
}
