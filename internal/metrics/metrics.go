// Package metrics exposes the Prometheus metrics of the station repository.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Metrics holds all Prometheus metrics for the repository. A nil *Metrics
// records nothing.
type Metrics struct {
	FetchTotal          *prometheus.CounterVec
	FetchDuration       *prometheus.HistogramVec
	SnapshotStations    *prometheus.GaugeVec
	LastUpdateTimestamp *prometheus.GaugeVec
}

// New creates the metrics and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		FetchTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gasfinder_fetch_total",
				Help: "Total number of feed fetches by country and status",
			},
			[]string{"country", "status"},
		),
		FetchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gasfinder_fetch_duration_seconds",
				Help:    "Feed fetch and parse duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"country"},
		),
		SnapshotStations: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gasfinder_snapshot_stations",
				Help: "Number of stations in the current snapshot",
			},
			[]string{"country"},
		),
		LastUpdateTimestamp: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gasfinder_last_update_timestamp",
				Help: "Timestamp of the last committed snapshot",
			},
			[]string{"country"},
		),
	}
}

// RecordFetch records a finished fetch.
func (m *Metrics) RecordFetch(country, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.FetchTotal.WithLabelValues(country, status).Inc()
	m.FetchDuration.WithLabelValues(country).Observe(duration.Seconds())
}

// RecordSnapshot records a committed snapshot.
func (m *Metrics) RecordSnapshot(country string, stations int, at time.Time) {
	if m == nil {
		return
	}
	m.SnapshotStations.WithLabelValues(country).Set(float64(stations))
	m.LastUpdateTimestamp.WithLabelValues(country).Set(float64(at.Unix()))
}
