package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordFetch(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.RecordFetch("ES", StatusOK, time.Second)
	m.RecordFetch("ES", StatusOK, time.Second)
	m.RecordFetch("ES", StatusFailed, time.Second)

	if got := testutil.ToFloat64(m.FetchTotal.WithLabelValues("ES", StatusOK)); got != 2 {
		t.Errorf("ok fetches = %v, expected 2", got)
	}
	if got := testutil.ToFloat64(m.FetchTotal.WithLabelValues("ES", StatusFailed)); got != 1 {
		t.Errorf("failed fetches = %v, expected 1", got)
	}
	if got := testutil.CollectAndCount(m.FetchDuration); got != 1 {
		t.Errorf("duration series = %d, expected 1", got)
	}
}

func TestRecordSnapshot(t *testing.T) {
	m := New(prometheus.NewRegistry())
	at := time.Date(2025, time.September, 1, 10, 0, 0, 0, time.UTC)
	m.RecordSnapshot("FR", 12000, at)

	if got := testutil.ToFloat64(m.SnapshotStations.WithLabelValues("FR")); got != 12000 {
		t.Errorf("stations = %v, expected 12000", got)
	}
	if got := testutil.ToFloat64(m.LastUpdateTimestamp.WithLabelValues("FR")); got != float64(at.Unix()) {
		t.Errorf("last update = %v, expected %v", got, at.Unix())
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.RecordFetch("ES", StatusOK, time.Second)
	m.RecordSnapshot("ES", 1, time.Now())
}

func TestNewRegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	defer func() {
		if recover() == nil {
			t.Error("registering twice on the same registry should panic")
		}
	}()
	New(reg)
}
