package constants

import "time"

const (
	HistoryCap         = 40
	BackfillWindow     = 20
	ParseRetryCap      = 3
	SnapshotFetchLimit = 1
	HistoryFetchLimit  = HistoryCap
)

const (
	ExternalAPITimeout = 10 * time.Second
	DatabaseTimeout    = 5 * time.Second
	RunTimeout         = 5 * time.Minute
)

const (
	DBMaxOpenConns    = 1
	DBMaxIdleConns    = 1
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

const (
	DefaultRequestsPerMinute = 60
	DefaultSyncConcurrency   = 1
)

const (
	ShutdownTimeout = 5 * time.Second
)

// Combined (K+A)/D thresholds used to rate grouped matches.
const (
	DominantKDA = 5.0
	RoughKDA    = 1.0
)

const (
	FileMode = 0o644
	DirMode  = 0o755
)
