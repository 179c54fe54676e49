package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vintage-stats/internal/config"
	"vintage-stats/internal/constants"
	"vintage-stats/internal/domain"
	"vintage-stats/internal/filestore"
	"vintage-stats/internal/metrics"
	"vintage-stats/internal/repository"
	"vintage-stats/internal/snapshot"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type AccountSyncer interface {
	SyncAccount(ctx context.Context, account domain.Account) (*AccountResult, error)
}

type SnapshotStore interface {
	LoadAll(ctx context.Context, accounts []domain.Account) (snapshot.Snapshots, error)
	SaveAll(snapshots snapshot.Snapshots) (filestore.Result, error)
}

type RunRecorder interface {
	Record(ctx context.Context, run repository.SyncRun) (int64, error)
	Recent(ctx context.Context, limit int) ([]repository.SyncRun, error)
	Total(ctx context.Context) (int64, error)
}

type LiveCounter interface {
	LiveRequests() int64
}

type MatchDetailFetcher interface {
	Get(ctx context.Context, matchID int64) ([]byte, error)
	Player(ctx context.Context, accountID int64) ([]byte, error)
}

type RunReport struct {
	RunID         string
	PreviousRunID string
	StartedAt     time.Time
	FinishedAt    time.Time
	Accounts      []AccountResult
	Groups        []MatchGroup
	Snapshots     snapshot.Snapshots
	LiveRequests  int64
	TotalRequests int64
}

func (r *RunReport) Failed() int {
	n := 0
	for _, a := range r.Accounts {
		if a.Err != nil {
			n++
		}
	}
	return n
}

func (r *RunReport) Parties() []MatchGroup {
	var out []MatchGroup
	for _, g := range r.Groups {
		if g.IsParty() {
			out = append(out, g)
		}
	}
	return out
}

// Runner drives one sync pass over every tracked account.
type Runner struct {
	cfg       *config.Config
	syncer    AccountSyncer
	grouper   *Grouper
	snapshots SnapshotStore
	recorder  RunRecorder
	counter   LiveCounter
	details   MatchDetailFetcher
	metrics   *metrics.SyncMetrics
	logger    zerolog.Logger
}

func NewRunner(
	cfg *config.Config,
	syncer AccountSyncer,
	grouper *Grouper,
	snapshots SnapshotStore,
	recorder RunRecorder,
	counter LiveCounter,
	details MatchDetailFetcher,
	metrics *metrics.SyncMetrics,
	logger zerolog.Logger,
) *Runner {
	return &Runner{
		cfg:       cfg,
		syncer:    syncer,
		grouper:   grouper,
		snapshots: snapshots,
		recorder:  recorder,
		counter:   counter,
		details:   details,
		metrics:   metrics,
		logger:    logger,
	}
}

// Run syncs all accounts, refreshes the last-match snapshots and records the
// run. Account failures are reported per account; the returned error covers
// only run-level bookkeeping that could not be written.
func (r *Runner) Run(ctx context.Context) (*RunReport, error) {
	report := &RunReport{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
	log := r.logger.With().Str("run_id", report.RunID).Logger()
	log.Info().Int("accounts", len(r.cfg.Accounts)).Int("concurrency", r.cfg.SyncConcurrency).Msg("sync run starting")

	if r.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.RunTimeout)
		defer cancel()
	}

	report.PreviousRunID = r.logPreviousRun(ctx, log)

	r.grouper.Reset()
	baseline := r.counter.LiveRequests()

	report.Accounts = r.syncAccounts(ctx, log)
	report.Groups = r.grouper.Groups()

	if r.cfg.FetchPartyDetails {
		r.fetchPartyDetails(ctx, report.Parties(), log)
	}
	if r.cfg.FetchPlayerProfiles {
		r.fetchPlayerProfiles(ctx, log)
	}

	var errs []error

	snaps, err := r.snapshots.LoadAll(ctx, r.cfg.Accounts)
	if err != nil {
		log.Error().Err(err).Msg("failed to load snapshots")
		errs = append(errs, err)
	} else {
		report.Snapshots = snaps
		if _, err := r.snapshots.SaveAll(snaps); err != nil {
			log.Error().Err(err).Msg("failed to save snapshots")
			errs = append(errs, err)
		}
	}

	report.FinishedAt = time.Now().UTC()
	report.LiveRequests = r.counter.LiveRequests() - baseline

	// bookkeeping must land even when the run deadline already passed
	dbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.DatabaseTimeout)
	defer cancel()
	total, err := r.recorder.Record(dbCtx, repository.SyncRun{
		RunID:          report.RunID,
		StartedAt:      report.StartedAt,
		FinishedAt:     report.FinishedAt,
		LiveRequests:   report.LiveRequests,
		AccountsOK:     len(report.Accounts) - report.Failed(),
		AccountsFailed: report.Failed(),
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to record request log")
		errs = append(errs, fmt.Errorf("failed to record run %s: %w", report.RunID, err))
	}
	report.TotalRequests = total

	r.exportMetrics(report, log)

	log.Info().
		Int("failed_accounts", report.Failed()).
		Int("groups", len(report.Groups)).
		Int("new_snapshots", len(report.Snapshots.New())).
		Int64("live_requests", report.LiveRequests).
		Int64("total_requests", report.TotalRequests).
		Dur("duration", report.FinishedAt.Sub(report.StartedAt)).
		Msg("sync run finished")

	return report, errors.Join(errs...)
}

// logPreviousRun returns the id of the last recorded run, or "" when there is
// none or the lookup fails.
func (r *Runner) logPreviousRun(ctx context.Context, log zerolog.Logger) string {
	dbCtx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	runs, err := r.recorder.Recent(dbCtx, 1)
	if err != nil {
		log.Warn().Err(err).Msg("failed to read previous run")
		return ""
	}
	if len(runs) == 0 {
		log.Info().Msg("no previous run recorded")
		return ""
	}
	prev := runs[0]
	total, err := r.recorder.Total(dbCtx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to read request counter")
	}
	log.Info().
		Int64("total_requests", total).
		Str("previous_run_id", prev.RunID).
		Time("previous_finished_at", prev.FinishedAt).
		Int64("previous_live_requests", prev.LiveRequests).
		Int("previous_failed_accounts", prev.AccountsFailed).
		Msg("previous run")
	return prev.RunID
}

func (r *Runner) syncAccounts(ctx context.Context, log zerolog.Logger) []AccountResult {
	accounts := r.cfg.Accounts
	results := make([]AccountResult, len(accounts))

	var g errgroup.Group
	g.SetLimit(max(1, r.cfg.SyncConcurrency))

	for i, account := range accounts {
		g.Go(func() error {
			res, err := r.syncer.SyncAccount(ctx, account)
			if res == nil {
				res = &AccountResult{Account: account}
			}
			res.Err = err
			if err != nil {
				log.Error().Err(err).Int64("account_id", account.ID).Str("nick", account.Nick).Msg("account sync failed")
			}
			results[i] = *res
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (r *Runner) fetchPartyDetails(ctx context.Context, parties []MatchGroup, log zerolog.Logger) {
	for _, group := range parties {
		if _, err := r.details.Get(ctx, group.MatchID); err != nil {
			log.Warn().Err(err).Int64("match_id", group.MatchID).Msg("failed to fetch party match detail")
		}
	}
}

func (r *Runner) fetchPlayerProfiles(ctx context.Context, log zerolog.Logger) {
	for _, account := range r.cfg.Accounts {
		if _, err := r.details.Player(ctx, account.ID); err != nil {
			log.Warn().Err(err).Int64("account_id", account.ID).Msg("failed to fetch player profile")
		}
	}
}

func (r *Runner) exportMetrics(report *RunReport, log zerolog.Logger) {
	if r.metrics == nil {
		return
	}

	for _, a := range report.Accounts {
		result := "ok"
		if a.Err != nil {
			result = "failed"
		}
		r.metrics.AccountsSynced.WithLabelValues(result).Inc()
		r.metrics.NewMatches.WithLabelValues(a.Account.Nick).Add(float64(len(a.NewMatches)))
		r.metrics.ParseOutcomes.WithLabelValues(domain.ParseSubmitted.String()).Add(float64(a.Submitted))
		r.metrics.ParseOutcomes.WithLabelValues(domain.ParseSkipped.String()).Add(float64(a.Skipped))
		r.metrics.ParseErrors.Add(float64(a.ParseErrors))
	}
	r.metrics.PartyMatches.Set(float64(len(report.Parties())))
	r.metrics.ObserveRun(report.StartedAt, report.FinishedAt, report.LiveRequests, report.TotalRequests)

	if r.cfg.MetricsTextfile == "" {
		return
	}
	if err := r.metrics.WriteTextfile(r.cfg.MetricsTextfile); err != nil {
		log.Warn().Err(err).Str("path", r.cfg.MetricsTextfile).Msg("failed to write metrics textfile")
	}
}
