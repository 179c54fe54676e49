package service

import (
	"context"
	"fmt"

	"vintage-stats/internal/api"
	"vintage-stats/internal/domain"
	"vintage-stats/internal/filestore"

	"github.com/rs/zerolog"
)

type RecentFetcher interface {
	GetRecentMatches(ctx context.Context, accountID int64) ([]domain.MatchSummary, []byte, error)
}

type HistoryStore interface {
	Load(ctx context.Context, account domain.Account) (domain.AccountHistory, error)
	Save(account domain.Account, history domain.AccountHistory) (filestore.Result, error)
	SaveRecent(account domain.Account, raw []byte) (filestore.Result, error)
}

type ParseRequester interface {
	RequestParse(ctx context.Context, matchID int64) (domain.ParseOutcome, *api.Response, error)
}

// AccountResult summarizes one account's sync. Err is set when the account
// was skipped or degraded.
type AccountResult struct {
	Account      domain.Account
	Overlap      OverlapKind
	NewMatches   []domain.MatchSummary
	Backfilled   int
	Upgraded     int
	Submitted    int
	Skipped      int
	ParseErrors  int
	Saved        bool
	SaveOutcome  filestore.Outcome
	Mismatch     *BackfillMismatch
	HistoryCount int
	Err          error
}

type SyncService struct {
	fetcher RecentFetcher
	history HistoryStore
	parser  ParseRequester
	grouper *Grouper
	opts    ReconcileOptions
	logger  zerolog.Logger
}

func NewSyncService(fetcher RecentFetcher, history HistoryStore, parser ParseRequester, grouper *Grouper, opts ReconcileOptions, logger zerolog.Logger) *SyncService {
	return &SyncService{
		fetcher: fetcher,
		history: history,
		parser:  parser,
		grouper: grouper,
		opts:    opts,
		logger:  logger,
	}
}

// SyncAccount merges the account's recent feed into its stored history,
// requests parses for unresolved matches and persists the history when it
// changed. New matches are handed to the run's grouper.
func (s *SyncService) SyncAccount(ctx context.Context, account domain.Account) (*AccountResult, error) {
	result := &AccountResult{Account: account}
	log := s.logger.With().Int64("account_id", account.ID).Str("nick", account.Nick).Logger()

	recent, raw, err := s.fetcher.GetRecentMatches(ctx, account.ID)
	if err != nil {
		return result, fmt.Errorf("failed to fetch recent matches for %s: %w", account, err)
	}

	if _, err := s.history.SaveRecent(account, raw); err != nil {
		return result, err
	}

	stored, err := s.history.Load(ctx, account)
	if err != nil {
		return result, err
	}

	rec := Reconcile(recent, stored, s.opts)
	result.Overlap = rec.Overlap
	result.NewMatches = rec.New
	result.Backfilled = rec.Backfilled
	result.Upgraded = rec.Upgraded
	result.Mismatch = rec.Mismatch

	if rec.Overlap == OverlapNone {
		log.Warn().Str("policy", string(s.opts.ZeroOverlap)).Int("spliced", len(rec.New)).Msg("stored history does not overlap recent matches")
	}
	if rec.Mismatch != nil {
		log.Warn().Err(rec.Mismatch).Int("backfilled", rec.Backfilled).Msg("backfill stopped early")
	}

	for _, matchID := range rec.Pending() {
		outcome, _, err := s.parser.RequestParse(ctx, matchID)
		if err != nil {
			result.ParseErrors++
			log.Warn().Err(err).Int64("match_id", matchID).Msg("parse request failed")
			continue
		}
		switch outcome {
		case domain.ParseSubmitted:
			result.Submitted++
			rec.MarkRequested(matchID)
		case domain.ParseSkipped:
			result.Skipped++
		}
	}

	result.HistoryCount = len(rec.History)
	if rec.Changed() {
		saved, err := s.history.Save(account, rec.History)
		if err != nil {
			return result, err
		}
		result.Saved = true
		result.SaveOutcome = saved.Outcome
	}

	if s.grouper != nil {
		s.grouper.Add(account, rec.New)
	}

	log.Info().
		Str("overlap", rec.Overlap.String()).
		Int("new", len(rec.New)).
		Int("backfilled", rec.Backfilled).
		Int("upgraded", rec.Upgraded).
		Int("parse_submitted", result.Submitted).
		Int("parse_skipped", result.Skipped).
		Bool("saved", result.Saved).
		Msg("account synced")

	if rec.Mismatch != nil && s.opts.FailOnMismatch {
		return result, rec.Mismatch
	}
	return result, nil
}
