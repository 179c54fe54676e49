package fx

import (
	"database/sql"

	"vintage-stats/internal/api"
	"vintage-stats/internal/config"
	"vintage-stats/internal/database"
	"vintage-stats/internal/db"
	"vintage-stats/internal/filestore"
	"vintage-stats/internal/history"
	"vintage-stats/internal/logger"
	"vintage-stats/internal/metrics"
	"vintage-stats/internal/repository"
	"vintage-stats/internal/service"
	"vintage-stats/internal/snapshot"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

func ProvideQueries(sqlDB *sql.DB) *db.Queries {
	return db.New(sqlDB)
}

func ProvideMetrics() *metrics.SyncMetrics {
	return metrics.NewSyncMetrics(prometheus.NewRegistry())
}

func ProvideReconcileOptions(cfg *config.Config) service.ReconcileOptions {
	return service.ReconcileOptionsFromConfig(cfg)
}

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Provide(database.New),
	fx.Provide(ProvideQueries),
	fx.Provide(filestore.New),
	fx.Provide(ProvideMetrics),
	// repos
	fx.Provide(
		fx.Annotate(repository.NewParseLedgerRepository, fx.As(fx.Self()), fx.As(new(service.ParseLedger))),
		fx.Annotate(repository.NewRequestLogRepository, fx.As(fx.Self()), fx.As(new(service.RunRecorder))),
	),
	// api client
	fx.Provide(
		fx.Annotate(
			api.NewClient,
			fx.As(fx.Self()),
			fx.As(new(history.MatchFetcher)),
			fx.As(new(snapshot.LastMatchFetcher)),
			fx.As(new(service.RecentFetcher)),
			fx.As(new(service.ParseEndpoint)),
			fx.As(new(service.MatchDetailClient)),
			fx.As(new(service.LiveCounter)),
		),
	),
	// stores
	fx.Provide(fx.Annotate(history.NewStore, fx.As(fx.Self()), fx.As(new(service.HistoryStore)))),
	fx.Provide(fx.Annotate(snapshot.NewStore, fx.As(fx.Self()), fx.As(new(service.SnapshotStore)))),
	// svc
	fx.Provide(ProvideReconcileOptions),
	fx.Provide(service.NewGrouper),
	fx.Provide(fx.Annotate(service.NewParseService, fx.As(fx.Self()), fx.As(new(service.ParseRequester)))),
	fx.Provide(fx.Annotate(service.NewMatchDetailService, fx.As(fx.Self()), fx.As(new(service.MatchDetailFetcher)))),
	fx.Provide(fx.Annotate(service.NewSyncService, fx.As(fx.Self()), fx.As(new(service.AccountSyncer)))),
	fx.Provide(service.NewRunner),
)
