package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"vintage-stats/internal/config"
	"vintage-stats/internal/filestore"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

type MatchDetailClient interface {
	GetMatch(ctx context.Context, matchID int64) ([]byte, error)
	MatchURL(matchID int64) string
	GetPlayer(ctx context.Context, accountID int64) ([]byte, error)
	PlayerURL(accountID int64) string
	Seed(rawURL string, body []byte)
}

// MatchDetailService keeps full match and player payloads on disk so they are
// fetched at most once across runs.
type MatchDetailService struct {
	dir       string
	playerDir string
	files     *filestore.Store
	client    MatchDetailClient
	logger    zerolog.Logger
}

func NewMatchDetailService(cfg *config.Config, files *filestore.Store, client MatchDetailClient, logger zerolog.Logger) *MatchDetailService {
	return &MatchDetailService{
		dir:       filepath.Join(cfg.DataDir, "matches"),
		playerDir: filepath.Join(cfg.DataDir, "players"),
		files:     files,
		client:    client,
		logger:    logger,
	}
}

func (s *MatchDetailService) Path(matchID int64) string {
	return filepath.Join(s.dir, fmt.Sprintf("%d_data.json", matchID))
}

func (s *MatchDetailService) PlayerPath(accountID int64) string {
	return filepath.Join(s.playerDir, fmt.Sprintf("%d_data.json", accountID))
}

// Get serves the file copy when present and seeds the request cache with it.
// Otherwise it fetches the match and writes the file.
func (s *MatchDetailService) Get(ctx context.Context, matchID int64) ([]byte, error) {
	return s.cached(ctx, cachedPayload{
		kind:  "match",
		id:    matchID,
		path:  s.Path(matchID),
		url:   s.client.MatchURL(matchID),
		fetch: s.client.GetMatch,
	})
}

// Player does the same for an account's profile.
func (s *MatchDetailService) Player(ctx context.Context, accountID int64) ([]byte, error) {
	return s.cached(ctx, cachedPayload{
		kind:  "player",
		id:    accountID,
		path:  s.PlayerPath(accountID),
		url:   s.client.PlayerURL(accountID),
		fetch: s.client.GetPlayer,
	})
}

type cachedPayload struct {
	kind  string
	id    int64
	path  string
	url   string
	fetch func(ctx context.Context, id int64) ([]byte, error)
}

func (s *MatchDetailService) cached(ctx context.Context, p cachedPayload) ([]byte, error) {
	log := s.logger.With().Str("kind", p.kind).Int64("id", p.id).Logger()

	data, err := s.files.Read(p.path)
	switch {
	case err == nil && json.Valid(data):
		s.client.Seed(p.url, data)
		log.Debug().Msg("detail found on disk")
		return data, nil
	case err == nil:
		log.Warn().Msg("discarding unreadable detail, refetching")
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("failed to read %s detail %d: %w", p.kind, p.id, err)
	}

	body, err := p.fetch(ctx, p.id)
	if err != nil {
		return nil, err
	}
	if _, err := s.files.Save(p.path, body); err != nil {
		return nil, fmt.Errorf("failed to store %s detail %d: %w", p.kind, p.id, err)
	}

	log.Info().Msg("detail fetched")
	return body, nil
}
