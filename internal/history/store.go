package history

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"vintage-stats/internal/config"
	"vintage-stats/internal/constants"
	"vintage-stats/internal/domain"
	"vintage-stats/internal/filestore"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// ErrCorrupt marks a history file that is not a JSON array of matches or
// whose first element carries no match id.
var ErrCorrupt = errors.New("corrupt history file")

type MatchFetcher interface {
	GetPlayerMatches(ctx context.Context, accountID int64, limit int) ([]domain.MatchSummary, error)
}

type Store struct {
	dir     string
	files   *filestore.Store
	fetcher MatchFetcher
	logger  zerolog.Logger
}

func NewStore(cfg *config.Config, files *filestore.Store, fetcher MatchFetcher, logger zerolog.Logger) *Store {
	return &Store{
		dir:     cfg.DataDir,
		files:   files,
		fetcher: fetcher,
		logger:  logger,
	}
}

func (s *Store) Path(accountID int64) string {
	return filepath.Join(s.dir, "history", fmt.Sprintf("%d_history.json", accountID))
}

func (s *Store) RecentPath(accountID int64) string {
	return filepath.Join(s.dir, "recent", fmt.Sprintf("%d_recent.json", accountID))
}

// Load returns the stored history. A missing or corrupt file is replaced by a
// fresh fetch of the newest matches, which is persisted before returning.
func (s *Store) Load(ctx context.Context, account domain.Account) (domain.AccountHistory, error) {
	path := s.Path(account.ID)
	data, err := s.files.Read(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.logger.Info().Int64("account_id", account.ID).Msg("no stored history, fetching")
	case err != nil:
		return nil, fmt.Errorf("failed to read history for %d: %w", account.ID, err)
	default:
		history, decodeErr := Decode(data)
		if decodeErr == nil {
			return history, nil
		}
		s.logger.Warn().Err(decodeErr).Int64("account_id", account.ID).Msg("discarding unreadable history, refetching")
	}

	return s.refetch(ctx, account)
}

func (s *Store) refetch(ctx context.Context, account domain.Account) (domain.AccountHistory, error) {
	matches, err := s.fetcher.GetPlayerMatches(ctx, account.ID, constants.HistoryFetchLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history for %d: %w", account.ID, err)
	}

	history := dedupe(matches).Truncate(constants.HistoryCap)
	if _, err := s.Save(account, history); err != nil {
		return nil, err
	}

	s.logger.Info().Int64("account_id", account.ID).Int("matches", len(history)).Msg("history bootstrapped")
	return history, nil
}

// Save writes the newest HistoryCap entries, archiving the previous file when
// its content differs.
func (s *Store) Save(account domain.Account, history domain.AccountHistory) (filestore.Result, error) {
	data, err := Encode(history.Truncate(constants.HistoryCap))
	if err != nil {
		return filestore.Result{}, fmt.Errorf("failed to encode history for %d: %w", account.ID, err)
	}

	result, err := s.files.Save(s.Path(account.ID), data)
	if err != nil {
		return result, fmt.Errorf("failed to save history for %d: %w", account.ID, err)
	}

	s.logger.Debug().
		Int64("account_id", account.ID).
		Str("outcome", result.Outcome.String()).
		Str("archived_to", result.ArchivedTo).
		Msg("history saved")
	return result, nil
}

// SaveRecent keeps the raw recent-matches body exactly as the API returned it.
func (s *Store) SaveRecent(account domain.Account, raw []byte) (filestore.Result, error) {
	result, err := s.files.Save(s.RecentPath(account.ID), raw)
	if err != nil {
		return result, fmt.Errorf("failed to save recent matches for %d: %w", account.ID, err)
	}
	return result, nil
}

func Decode(data []byte) (domain.AccountHistory, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, ErrCorrupt
	}
	var history domain.AccountHistory
	if err := json.Unmarshal(trimmed, &history); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if len(history) > 0 && history[0].MatchID == 0 {
		return nil, fmt.Errorf("%w: first entry has no match_id", ErrCorrupt)
	}
	return history, nil
}

func Encode(history domain.AccountHistory) ([]byte, error) {
	if history == nil {
		history = domain.AccountHistory{}
	}
	return json.MarshalIndent(history, "", "  ")
}

func dedupe(matches []domain.MatchSummary) domain.AccountHistory {
	seen := make(map[int64]bool, len(matches))
	out := make(domain.AccountHistory, 0, len(matches))
	for _, m := range matches {
		if seen[m.MatchID] {
			continue
		}
		seen[m.MatchID] = true
		out = append(out, m)
	}
	return out
}
