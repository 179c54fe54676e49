package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"vintage-stats/internal/db"

	"github.com/rs/zerolog"
)

type SyncRun struct {
	RunID          string
	StartedAt      time.Time
	FinishedAt     time.Time
	LiveRequests   int64
	AccountsOK     int
	AccountsFailed int
}

// RequestLogRepository keeps the cumulative live-request counter and one row
// per run.
type RequestLogRepository struct {
	queries *db.Queries
	db      *sql.DB
	logger  zerolog.Logger
}

func NewRequestLogRepository(sqlDB *sql.DB, queries *db.Queries, logger zerolog.Logger) *RequestLogRepository {
	return &RequestLogRepository{
		queries: queries,
		db:      sqlDB,
		logger:  logger,
	}
}

// Total is 0 before the first recorded run.
func (r *RequestLogRepository) Total(ctx context.Context) (int64, error) {
	total, err := r.queries.GetRequestCounter(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read request counter: %w", err)
	}
	return total, nil
}

// Record adds the run's live requests to the counter and stores the run row in
// one transaction. It returns the new cumulative total.
func (r *RequestLogRepository) Record(ctx context.Context, run SyncRun) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := r.queries.WithTx(tx)

	if err := qtx.AddRequestCount(ctx, db.AddRequestCountParams{
		Total:     run.LiveRequests,
		UpdatedAt: run.FinishedAt,
	}); err != nil {
		return 0, fmt.Errorf("failed to add request count: %w", err)
	}

	if err := qtx.InsertSyncRun(ctx, db.InsertSyncRunParams{
		RunID:          run.RunID,
		StartedAt:      run.StartedAt,
		FinishedAt:     run.FinishedAt,
		LiveRequests:   run.LiveRequests,
		AccountsOk:     int64(run.AccountsOK),
		AccountsFailed: int64(run.AccountsFailed),
	}); err != nil {
		return 0, fmt.Errorf("failed to insert sync run %s: %w", run.RunID, err)
	}

	total, err := qtx.GetRequestCounter(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read request counter: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit request log: %w", err)
	}

	r.logger.Debug().
		Str("run_id", run.RunID).
		Int64("live_requests", run.LiveRequests).
		Int64("total_requests", total).
		Msg("request log recorded")

	return total, nil
}

func (r *RequestLogRepository) Recent(ctx context.Context, limit int) ([]SyncRun, error) {
	rows, err := r.queries.ListSyncRuns(ctx, int64(limit))
	if err != nil {
		return nil, err
	}

	result := make([]SyncRun, len(rows))
	for i, row := range rows {
		result[i] = SyncRun{
			RunID:          row.RunID,
			StartedAt:      row.StartedAt,
			FinishedAt:     row.FinishedAt,
			LiveRequests:   row.LiveRequests,
			AccountsOK:     int(row.AccountsOk),
			AccountsFailed: int(row.AccountsFailed),
		}
	}
	return result, nil
}
