package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	log "github.com/sirupsen/logrus"

	"trade-alerts/internal/types"
)

const (
	namespace = "trade_alerts"
	subsystem = "reconciler"
)

// Store persists metric values between restarts.
type Store interface {
	SaveMetric(metricName string, value float64) error
	GetMetric(metricName string) (float64, error)
	SaveMetricWithLabels(metricName, labelKey, labelValue string, value float64) error
	GetMetricsWithLabels(metricName string) (map[string]map[string]float64, error)
}

// Metrics holds the collectors of the alert service.
type Metrics struct {
	Passes              prometheus.Counter
	PassFailures        prometheus.Counter
	Triggered           prometheus.Counter
	NotificationsFailed prometheus.Counter
	AlertsCreated       prometheus.Counter
	CommandsProcessed   prometheus.Counter
	MessagesHandled     prometheus.Counter
	LastPassTriggered   prometheus.Gauge
	TriggeredPerSymbol  *prometheus.CounterVec

	Mutex sync.Mutex
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Passes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "passes_total",
			Help:      "The total number of completed reconciliation passes",
		}),
		PassFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "pass_failures_total",
			Help:      "The total number of passes aborted by an oracle or repository error",
		}),
		Triggered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "triggered_total",
			Help:      "The total number of alerts triggered and deleted",
		}),
		NotificationsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "notifications_failed_total",
			Help:      "The total number of triggered alerts whose owner could not be notified",
		}),
		AlertsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "telegram_bot",
			Name:      "alerts_created_total",
			Help:      "The total number of alerts created by users",
		}),
		CommandsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "telegram_bot",
			Name:      "commands_processed",
			Help:      "The total number of processed commands",
		}),
		MessagesHandled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "telegram_bot",
			Name:      "messages_handled",
			Help:      "The total number of handled messages",
		}),
		LastPassTriggered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "last_pass_triggered",
			Help:      "The number of alerts triggered by the most recent pass",
		}),
		TriggeredPerSymbol: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "triggered_per_symbol_total",
				Help:      "The total number of triggered alerts per symbol",
			},
			[]string{"symbol"},
		),
	}

	reg.MustRegister(
		m.Passes,
		m.PassFailures,
		m.Triggered,
		m.NotificationsFailed,
		m.AlertsCreated,
		m.CommandsProcessed,
		m.MessagesHandled,
		m.LastPassTriggered,
		m.TriggeredPerSymbol,
	)
	return m
}

func (m *Metrics) PassCompleted(triggered []types.Alert) {
	m.Passes.Inc()
	m.Triggered.Add(float64(len(triggered)))
	m.LastPassTriggered.Set(float64(len(triggered)))
	for _, a := range triggered {
		m.TriggeredPerSymbol.WithLabelValues(a.Symbol).Inc()
	}
}

func (m *Metrics) PassFailed() {
	m.PassFailures.Inc()
}

func (m *Metrics) NotificationFailed() {
	m.NotificationsFailed.Inc()
}

func (m *Metrics) AlertCreated() {
	m.AlertsCreated.Inc()
}

func (m *Metrics) CommandProcessed() {
	m.CommandsProcessed.Inc()
}

func (m *Metrics) MessageHandled() {
	m.MessagesHandled.Inc()
}

func (m *Metrics) counters() map[string]prometheus.Counter {
	return map[string]prometheus.Counter{
		"passes_total":               m.Passes,
		"pass_failures_total":        m.PassFailures,
		"triggered_total":            m.Triggered,
		"notifications_failed_total": m.NotificationsFailed,
		"alerts_created_total":       m.AlertsCreated,
		"commands_processed":         m.CommandsProcessed,
		"messages_handled":           m.MessagesHandled,
	}
}

// LoadFromDB restores counters saved by SaveToDB.
func (m *Metrics) LoadFromDB(store Store) {
	m.Mutex.Lock()
	defer m.Mutex.Unlock()

	for name, counter := range m.counters() {
		value, err := store.GetMetric(name)
		if err != nil {
			log.Errorf("Failed to load metric %s: %v", name, err)
			continue
		}
		counter.Add(value)
	}

	perSymbol, err := store.GetMetricsWithLabels("triggered_per_symbol_total")
	if err != nil {
		log.Errorf("Failed to load metric triggered_per_symbol_total: %v", err)
	}
	for symbol, value := range perSymbol["symbol"] {
		m.TriggeredPerSymbol.WithLabelValues(symbol).Add(value)
	}

	log.Debug("Metrics loaded from database.")
}

// SaveToDB writes the current counter values.
func (m *Metrics) SaveToDB(store Store) {
	m.Mutex.Lock()
	defer m.Mutex.Unlock()

	for name, counter := range m.counters() {
		if err := store.SaveMetric(name, GetMetricValue(counter)); err != nil {
			log.Errorf("Failed to save metric %s: %v", name, err)
		}
	}

	metricChan := make(chan prometheus.Metric, 1)
	go func() {
		m.TriggeredPerSymbol.Collect(metricChan)
		close(metricChan)
	}()

	for metric := range metricChan {
		metricProto := &dto.Metric{}
		if err := metric.Write(metricProto); err != nil {
			log.Errorf("Failed to read triggered_per_symbol_total: %v", err)
			continue
		}
		var symbol string
		for _, label := range metricProto.Label {
			if label.GetName() == "symbol" {
				symbol = label.GetValue()
			}
		}
		if err := store.SaveMetricWithLabels("triggered_per_symbol_total", "symbol", symbol, metricProto.Counter.GetValue()); err != nil {
			log.Errorf("Failed to save triggered_per_symbol_total for %s: %v", symbol, err)
		}
	}

	log.Debug("Metrics saved to database.")
}

// GetMetricValue reads the current value of a counter or gauge.
func GetMetricValue(metric prometheus.Collector) float64 {
	var metricValue float64
	metricChan := make(chan prometheus.Metric, 1)
	metric.Collect(metricChan)
	close(metricChan)

	metricProto := &dto.Metric{}
	if err := (<-metricChan).Write(metricProto); err != nil {
		log.Errorf("Failed to read metric value: %v", err)
		return 0
	}

	if metricProto.Counter != nil {
		metricValue = metricProto.Counter.GetValue()
	} else if metricProto.Gauge != nil {
		metricValue = metricProto.Gauge.GetValue()
	}
	return metricValue
}
