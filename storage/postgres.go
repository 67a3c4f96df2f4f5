package storage

import (
	"context"
	"fmt"
	"log/slog"
	"mangafeed/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	insertFetchQuery = `
	INSERT INTO fetch_log (series_id, ok, chapters, error, fetched_at)
	VALUES ($1, $2, $3, $4, $5);
	`
	recentFetchesQuery = `
	SELECT series_id, ok, chapters, error, fetched_at
	FROM fetch_log
	ORDER BY fetched_at DESC, id DESC
	LIMIT $1;
	`
)

type PostgresFetchLog struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewPostgresFetchLog(pool *pgxpool.Pool, log *slog.Logger) *PostgresFetchLog {
	log = log.With(slog.String("component", "storage"))
	log.Info("Initializing Postgres fetch log")
	return &PostgresFetchLog{pool: pool, log: log}
}

func (db *PostgresFetchLog) Close() {
	db.log.Info("Closing database connection pool")
	db.pool.Close()
}

// SaveFetches inserts all records in one transaction.
func (db *PostgresFetchLog) SaveFetches(ctx context.Context, records []domain.FetchRecord) (saved int, err error) {
	const op = "storage.postgres.SaveFetches"
	if len(records) == 0 {
		return 0, nil
	}
	log := db.log.With(slog.String("op", op))

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		log.Error("Failed to begin transaction", slog.Any("error", err))
		return 0, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(context.Background()); rollbackErr != nil {
				log.Error("Failed to rollback transaction", slog.Any("error", rollbackErr))
			}
		}
	}()

	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(insertFetchQuery,
			string(r.SeriesID),
			r.OK,
			r.Chapters,
			nullableText(r.Error),
			r.FetchedAt,
		)
	}
	if err = tx.SendBatch(ctx, batch).Close(); err != nil {
		log.Error("Failed to execute batch", slog.Any("error", err))
		return 0, fmt.Errorf("%s: failed to execute batch: %w", op, err)
	}
	if err = tx.Commit(ctx); err != nil {
		log.Error("Failed to commit transaction", slog.Any("error", err))
		return 0, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}
	log.Debug("Fetch outcomes recorded", slog.Int("count", len(records)))
	return len(records), nil
}

// RecentFetches returns up to limit records, newest first.
func (db *PostgresFetchLog) RecentFetches(ctx context.Context, limit int) ([]domain.FetchRecord, error) {
	const op = "storage.postgres.RecentFetches"
	log := db.log.With(slog.String("op", op), slog.Int("limit", limit))

	rows, err := db.pool.Query(ctx, recentFetchesQuery, limit)
	if err != nil {
		log.Error("Database query failed", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to execute query: %w", op, err)
	}
	defer rows.Close()

	records, err := pgx.CollectRows(rows, scanFetchRecord)
	if err != nil {
		log.Error("Failed to collect rows", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to scan row: %w", op, err)
	}
	log.Debug("Fetch log read", slog.Int("count", len(records)))
	return records, nil
}

func scanFetchRecord(row pgx.CollectableRow) (domain.FetchRecord, error) {
	var (
		r        domain.FetchRecord
		seriesID string
		errText  *string
	)
	if err := row.Scan(&seriesID, &r.OK, &r.Chapters, &errText, &r.FetchedAt); err != nil {
		return domain.FetchRecord{}, err
	}
	r.SeriesID = domain.SeriesID(seriesID)
	if errText != nil {
		r.Error = *errText
	}
	r.FetchedAt = r.FetchedAt.UTC()
	return r, nil
}

// nullableText stores empty strings as NULL.
func nullableText(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
