package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"

	"vintage-stats/internal/config"
	"vintage-stats/internal/constants"
	"vintage-stats/internal/domain"
	"vintage-stats/internal/filestore"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

type LastMatchFetcher interface {
	GetPlayerMatches(ctx context.Context, accountID int64, limit int) ([]domain.MatchSummary, error)
}

// Snapshots maps account id to the last match seen for it.
type Snapshots map[int64]domain.LastMatchSnapshot

// New lists the snapshots flagged as new, ordered by account id.
func (s Snapshots) New() []domain.LastMatchSnapshot {
	var out []domain.LastMatchSnapshot
	for _, snap := range s {
		if snap.IsNew {
			out = append(out, snap)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountID < out[j].AccountID })
	return out
}

type Store struct {
	path              string
	files             *filestore.Store
	fetcher           LastMatchFetcher
	bootstrapMarksNew bool
	logger            zerolog.Logger
}

func NewStore(cfg *config.Config, files *filestore.Store, fetcher LastMatchFetcher, logger zerolog.Logger) *Store {
	return &Store{
		path:              filepath.Join(cfg.DataDir, "lastmatches.json"),
		files:             files,
		fetcher:           fetcher,
		bootstrapMarksNew: cfg.BootstrapMarksNew,
		logger:            logger,
	}
}

func (s *Store) Path() string {
	return s.path
}

// LoadAll fetches every account's most recent match and flags it as new when
// it differs from the previously recorded one. Accounts whose fetch fails keep
// their previous snapshot, flagged not new.
func (s *Store) LoadAll(ctx context.Context, accounts []domain.Account) (Snapshots, error) {
	previous, err := s.loadPrevious()
	if err != nil {
		return nil, err
	}
	bootstrap := previous == nil

	current := make(Snapshots, len(accounts))
	for _, account := range accounts {
		prev, hadPrev := previous[account.ID]

		matches, err := s.fetcher.GetPlayerMatches(ctx, account.ID, constants.SnapshotFetchLimit)
		if err != nil || len(matches) == 0 {
			s.logger.Warn().Err(err).Int64("account_id", account.ID).Bool("has_previous", hadPrev).Msg("last match unavailable, keeping previous snapshot")
			if hadPrev {
				prev.IsNew = false
				current[account.ID] = prev
			}
			continue
		}

		latest := matches[0]
		isNew := s.bootstrapMarksNew
		if !bootstrap && hadPrev {
			isNew = prev.Match.MatchID != latest.MatchID
		}

		current[account.ID] = domain.LastMatchSnapshot{
			AccountID: account.ID,
			Nick:      account.Nick,
			Match:     latest,
			Won:       latest.Won(),
			MMRChange: domain.EstimateMMRChange(latest.Won(), latest.IsParty()),
			IsNew:     isNew,
		}

		s.logger.Debug().
			Int64("account_id", account.ID).
			Int64("match_id", latest.MatchID).
			Bool("is_new", isNew).
			Bool("bootstrap", bootstrap || !hadPrev).
			Msg("last match checked")
	}

	return current, nil
}

func (s *Store) SaveAll(snapshots Snapshots) (filestore.Result, error) {
	data, err := Encode(snapshots)
	if err != nil {
		return filestore.Result{}, fmt.Errorf("failed to encode snapshots: %w", err)
	}
	result, err := s.files.Save(s.path, data)
	if err != nil {
		return result, fmt.Errorf("failed to save snapshots: %w", err)
	}
	s.logger.Debug().Str("outcome", result.Outcome.String()).Str("archived_to", result.ArchivedTo).Msg("snapshots saved")
	return result, nil
}

// loadPrevious returns nil when no usable snapshot file exists.
func (s *Store) loadPrevious() (Snapshots, error) {
	data, err := s.files.Read(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Info().Str("path", s.path).Msg("no previous snapshot, bootstrap run")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshots: %w", err)
	}
	previous, err := Decode(data)
	if err != nil {
		s.logger.Warn().Err(err).Str("path", s.path).Msg("discarding unreadable snapshot, treating as bootstrap run")
		return nil, nil
	}
	return previous, nil
}

func Decode(data []byte) (Snapshots, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, errors.New("snapshot file is not a JSON object")
	}
	snapshots := Snapshots{}
	if err := json.Unmarshal(trimmed, &snapshots); err != nil {
		return nil, err
	}
	return snapshots, nil
}

func Encode(snapshots Snapshots) ([]byte, error) {
	if snapshots == nil {
		snapshots = Snapshots{}
	}
	return json.MarshalIndent(snapshots, "", "  ")
}
