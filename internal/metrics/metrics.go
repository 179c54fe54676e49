package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "vintage_stats"

// SyncMetrics holds per-process run counters. Each run is a short-lived
// process, so the values are exported to a textfile instead of served.
type SyncMetrics struct {
	registry *prometheus.Registry

	LiveRequests   prometheus.Counter
	ParseOutcomes  *prometheus.CounterVec
	ParseErrors    prometheus.Counter
	NewMatches     *prometheus.CounterVec
	AccountsSynced *prometheus.CounterVec
	PartyMatches   prometheus.Gauge
	RunDuration    prometheus.Gauge
	LastRun        prometheus.Gauge
	RequestsTotal  prometheus.Gauge
}

func NewSyncMetrics(reg *prometheus.Registry) *SyncMetrics {
	m := &SyncMetrics{
		registry: reg,
		LiveRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_requests_total",
			Help:      "Outbound requests that were not served from the request cache.",
		}),
		ParseOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_requests_total",
			Help:      "Parse requests by outcome.",
		}, []string{"outcome"}),
		ParseErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_request_errors_total",
			Help:      "Parse requests that failed in transport.",
		}),
		NewMatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "new_matches_total",
			Help:      "Matches spliced into history, by account.",
		}, []string{"account"}),
		AccountsSynced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "accounts_synced_total",
			Help:      "Account syncs by result.",
		}, []string{"result"}),
		PartyMatches: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "party_matches",
			Help:      "New matches shared by two or more tracked accounts in the last run.",
		}),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run.",
		}),
		LastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
		RequestsTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "requests_cumulative",
			Help:      "Live requests across all recorded runs.",
		}),
	}

	reg.MustRegister(
		m.LiveRequests,
		m.ParseOutcomes,
		m.ParseErrors,
		m.NewMatches,
		m.AccountsSynced,
		m.PartyMatches,
		m.RunDuration,
		m.LastRun,
		m.RequestsTotal,
	)
	return m
}

func (m *SyncMetrics) ObserveRun(started, finished time.Time, liveRequests, cumulative int64) {
	m.LiveRequests.Add(float64(liveRequests))
	m.RunDuration.Set(finished.Sub(started).Seconds())
	m.LastRun.Set(float64(finished.Unix()))
	m.RequestsTotal.Set(float64(cumulative))
}

// WriteTextfile writes the registry in node-exporter textfile format.
func (m *SyncMetrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
