package metrics

import (
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"trade-alerts/internal/alert"
	"trade-alerts/internal/database"
	"trade-alerts/internal/hash"
	"trade-alerts/internal/types"
)

var _ alert.Recorder = (*Metrics)(nil)

func TestPassCompleted(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.PassCompleted([]types.Alert{hash.NewAlert(1, "btc", "u1"), hash.NewAlert(2, "btc", "u2")})
	m.PassCompleted(nil)
	m.PassFailed()
	m.NotificationFailed()

	checks := map[string]struct {
		c        prometheus.Collector
		expected float64
	}{
		"passes":        {m.Passes, 2},
		"failures":      {m.PassFailures, 1},
		"triggered":     {m.Triggered, 2},
		"notifications": {m.NotificationsFailed, 1},
		"last pass":     {m.LastPassTriggered, 0},
		"btc":           {m.TriggeredPerSymbol.WithLabelValues("btc"), 2},
	}
	for name, c := range checks {
		if got := GetMetricValue(c.c); got != c.expected {
			t.Errorf("%s: expected %v, got %v", name, c.expected, got)
		}
	}
}

func TestSaveAndLoad(t *testing.T) {
	store, err := database.InitDB(filepath.Join(t.TempDir(), "metrics.db"), types.DefaultTableConfig())
	if err != nil {
		t.Fatalf("init db: %v", err)
	}
	defer store.CloseDB()

	m := NewMetrics(prometheus.NewRegistry())
	m.PassCompleted([]types.Alert{hash.NewAlert(1, "eth", "u1")})
	m.AlertCreated()
	m.MessageHandled()
	m.CommandProcessed()
	m.SaveToDB(store)

	restored := NewMetrics(prometheus.NewRegistry())
	restored.LoadFromDB(store)

	if got := GetMetricValue(restored.Passes); got != 1 {
		t.Errorf("expected 1 pass, got %v", got)
	}
	if got := GetMetricValue(restored.AlertsCreated); got != 1 {
		t.Errorf("expected 1 created alert, got %v", got)
	}
	if got := GetMetricValue(restored.CommandsProcessed); got != 1 {
		t.Errorf("expected 1 processed command, got %v", got)
	}
	if got := GetMetricValue(restored.TriggeredPerSymbol.WithLabelValues("eth")); got != 1 {
		t.Errorf("expected eth=1, got %v", got)
	}
}
