package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"vintage-stats/internal/db"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

type ParseLedgerEntry struct {
	ID              string
	MatchID         int64
	Attempts        int
	LastRequestedAt time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type ParseLedgerRepository struct {
	queries *db.Queries
	db      *sql.DB
	logger  zerolog.Logger
}

func NewParseLedgerRepository(sqlDB *sql.DB, queries *db.Queries, logger zerolog.Logger) *ParseLedgerRepository {
	return &ParseLedgerRepository{
		queries: queries,
		db:      sqlDB,
		logger:  logger,
	}
}

// Attempts returns 0 for matches that were never requested.
func (r *ParseLedgerRepository) Attempts(ctx context.Context, matchID int64) (int, error) {
	entry, err := r.queries.GetParseLedgerEntry(ctx, matchID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get parse ledger entry %d: %w", matchID, err)
	}
	return int(entry.Attempts), nil
}

// SetAttempts creates the entry on first use.
func (r *ParseLedgerRepository) SetAttempts(ctx context.Context, matchID int64, attempts int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := r.queries.WithTx(tx)

	now := time.Now().UTC()
	existing, err := qtx.GetParseLedgerEntry(ctx, matchID)
	id := existing.ID
	createdAt := existing.CreatedAt
	switch {
	case errors.Is(err, sql.ErrNoRows):
		id, err = gonanoid.New()
		if err != nil {
			return fmt.Errorf("failed to generate nanoid: %w", err)
		}
		createdAt = now
	case err != nil:
		return fmt.Errorf("failed to get parse ledger entry %d: %w", matchID, err)
	}

	err = qtx.UpsertParseLedgerEntry(ctx, db.UpsertParseLedgerEntryParams{
		ID:              id,
		MatchID:         matchID,
		Attempts:        int64(attempts),
		LastRequestedAt: now,
		CreatedAt:       createdAt,
		UpdatedAt:       now,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert parse ledger entry %d: %w", matchID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit parse ledger entry %d: %w", matchID, err)
	}

	r.logger.Debug().Int64("match_id", matchID).Int("attempts", attempts).Msg("parse ledger updated")
	return nil
}

// Saturate rewrites the attempt count of an existing entry without touching
// last_requested_at, since no request goes out.
func (r *ParseLedgerRepository) Saturate(ctx context.Context, matchID int64, attempts int) error {
	err := r.queries.SetParseAttempts(ctx, db.SetParseAttemptsParams{
		Attempts:  int64(attempts),
		UpdatedAt: time.Now().UTC(),
		MatchID:   matchID,
	})
	if err != nil {
		return fmt.Errorf("failed to saturate parse ledger entry %d: %w", matchID, err)
	}
	return nil
}

func (r *ParseLedgerRepository) list(ctx context.Context) ([]ParseLedgerEntry, error) {
	rows, err := r.queries.ListParseLedger(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]ParseLedgerEntry, len(rows))
	for i, row := range rows {
		result[i] = ParseLedgerEntry{
			ID:              row.ID,
			MatchID:         row.MatchID,
			Attempts:        int(row.Attempts),
			LastRequestedAt: row.LastRequestedAt,
			CreatedAt:       row.CreatedAt,
			UpdatedAt:       row.UpdatedAt,
		}
	}
	return result, nil
}
