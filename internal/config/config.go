package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"vintage-stats/internal/constants"
	"vintage-stats/internal/domain"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// ZeroOverlapPolicy decides what a sync does when the stored history head is
// missing from the freshly fetched feed.
type ZeroOverlapPolicy string

const (
	ZeroOverlapIgnore    ZeroOverlapPolicy = "ignore"
	ZeroOverlapSpliceAll ZeroOverlapPolicy = "splice_all"
)

type Config struct {
	OpenDotaBaseURL   string
	OpenDotaAPIKey    string
	Accounts          []domain.Account
	DataDir           string
	DBPath            string
	LogLevel          string
	RequestsPerMinute int
	SyncConcurrency   int
	RunTimeout        time.Duration
	MetricsTextfile   string

	BootstrapMarksNew bool
	ZeroOverlap       ZeroOverlapPolicy
	FailOnMismatch    bool

	FetchPartyDetails   bool
	FetchPlayerProfiles bool
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	dataDir := getEnv("DATA_DIR", "data")
	cfg := &Config{
		OpenDotaBaseURL:     strings.TrimRight(getEnv("OPENDOTA_BASE_URL", "https://api.opendota.com/api"), "/"),
		OpenDotaAPIKey:      getEnv("OPENDOTA_API_KEY", ""),
		DataDir:             dataDir,
		DBPath:              getEnv("DB_PATH", filepath.Join(dataDir, "vintage.db")),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		RequestsPerMinute:   getEnvInt("REQUESTS_PER_MINUTE", constants.DefaultRequestsPerMinute),
		SyncConcurrency:     getEnvInt("SYNC_CONCURRENCY", constants.DefaultSyncConcurrency),
		RunTimeout:          getEnvDuration("RUN_TIMEOUT", constants.RunTimeout),
		MetricsTextfile:     getEnv("METRICS_TEXTFILE", ""),
		BootstrapMarksNew:   getEnvBool("SNAPSHOT_BOOTSTRAP_IS_NEW", false),
		ZeroOverlap:         ZeroOverlapPolicy(getEnv("RECONCILE_ZERO_OVERLAP", string(ZeroOverlapIgnore))),
		FailOnMismatch:      getEnvBool("RECONCILE_FAIL_ON_MISMATCH", false),
		FetchPartyDetails:   getEnvBool("FETCH_PARTY_DETAILS", false),
		FetchPlayerProfiles: getEnvBool("FETCH_PLAYER_PROFILES", false),
	}

	accounts, err := ParseAccounts(getEnv("TRACKED_ACCOUNTS", ""))
	if err != nil {
		return nil, err
	}
	cfg.Accounts = accounts

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.Info().
		Str("base_url", cfg.OpenDotaBaseURL).
		Str("data_dir", cfg.DataDir).
		Str("db_path", cfg.DBPath).
		Str("log_level", cfg.LogLevel).
		Int("accounts", len(cfg.Accounts)).
		Int("requests_per_minute", cfg.RequestsPerMinute).
		Int("sync_concurrency", cfg.SyncConcurrency).
		Bool("bootstrap_marks_new", cfg.BootstrapMarksNew).
		Str("zero_overlap", string(cfg.ZeroOverlap)).
		Bool("fail_on_mismatch", cfg.FailOnMismatch).
		Msg("configuration loaded")

	return cfg, nil
}

func (c *Config) Validate() error {
	if len(c.Accounts) == 0 {
		return fmt.Errorf("TRACKED_ACCOUNTS is required")
	}
	if c.RequestsPerMinute <= 0 {
		return fmt.Errorf("REQUESTS_PER_MINUTE must be positive, got %d", c.RequestsPerMinute)
	}
	if c.SyncConcurrency <= 0 {
		return fmt.Errorf("SYNC_CONCURRENCY must be positive, got %d", c.SyncConcurrency)
	}
	switch c.ZeroOverlap {
	case ZeroOverlapIgnore, ZeroOverlapSpliceAll:
	default:
		return fmt.Errorf("RECONCILE_ZERO_OVERLAP must be %q or %q, got %q", ZeroOverlapIgnore, ZeroOverlapSpliceAll, c.ZeroOverlap)
	}
	return nil
}

// ParseAccounts reads a roster of the form "67712324:Fazy,100117588:Grumpy".
// The nickname is optional and defaults to the account id.
func ParseAccounts(raw string) ([]domain.Account, error) {
	var accounts []domain.Account
	seen := make(map[int64]bool)
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		idPart, nick, _ := strings.Cut(item, ":")
		id, err := strconv.ParseInt(strings.TrimSpace(idPart), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid account id %q in TRACKED_ACCOUNTS", idPart)
		}
		if seen[id] {
			return nil, fmt.Errorf("duplicate account id %d in TRACKED_ACCOUNTS", id)
		}
		seen[id] = true
		nick = strings.TrimSpace(nick)
		if nick == "" {
			nick = strconv.FormatInt(id, 10)
		}
		accounts = append(accounts, domain.Account{ID: id, Nick: nick})
	}
	return accounts, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
