package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"vintage-stats/internal/api"
	"vintage-stats/internal/constants"
	"vintage-stats/internal/domain"

	"github.com/rs/zerolog"
)

type ParseLedger interface {
	Attempts(ctx context.Context, matchID int64) (int, error)
	SetAttempts(ctx context.Context, matchID int64, attempts int) error
	Saturate(ctx context.Context, matchID int64, attempts int) error
}

type ParseEndpoint interface {
	RequestParse(ctx context.Context, matchID int64) (*api.Response, error)
}

// ParseService gates parse requests on a per-match retry budget.
type ParseService struct {
	mu       sync.Mutex
	ledger   ParseLedger
	endpoint ParseEndpoint
	logger   zerolog.Logger
}

func NewParseService(ledger ParseLedger, endpoint ParseEndpoint, logger zerolog.Logger) *ParseService {
	return &ParseService{ledger: ledger, endpoint: endpoint, logger: logger}
}

// RequestParse asks the remote side to parse matchID unless the match already
// used ParseRetryCap requests. Every request that reached the network counts
// against the budget, failed ones included.
func (s *ParseService) RequestParse(ctx context.Context, matchID int64) (domain.ParseOutcome, *api.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	attempts, err := s.ledger.Attempts(ctx, matchID)
	if err != nil {
		return domain.ParseSkipped, nil, fmt.Errorf("failed to read parse ledger: %w", err)
	}

	if attempts >= constants.ParseRetryCap {
		if attempts == constants.ParseRetryCap {
			// saturate past the cap so the ledger shows the budget is spent
			if err := s.ledger.Saturate(ctx, matchID, constants.ParseRetryCap+1); err != nil {
				s.logger.Warn().Err(err).Int64("match_id", matchID).Msg("failed to saturate parse ledger")
			}
		}
		s.logger.Debug().Int64("match_id", matchID).Int("attempts", attempts).Msg("parse retry budget exhausted")
		return domain.ParseSkipped, nil, nil
	}

	resp, err := s.endpoint.RequestParse(ctx, matchID)
	if err != nil && errors.Is(err, api.ErrNotSent) {
		return domain.ParseSkipped, nil, err
	}

	if setErr := s.ledger.SetAttempts(ctx, matchID, attempts+1); setErr != nil {
		s.logger.Error().Err(setErr).Int64("match_id", matchID).Msg("parse attempt not persisted to ledger")
	}

	if err != nil {
		s.logger.Debug().Err(err).Int64("match_id", matchID).Int("attempt", attempts+1).Msg("parse request failed, attempt counted")
		return domain.ParseSkipped, nil, err
	}

	s.logger.Info().Int64("match_id", matchID).Int("attempt", attempts+1).Msg("parse requested")
	return domain.ParseSubmitted, resp, nil
}
