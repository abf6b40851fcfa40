package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/lattice/internal/logging"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
)

const namespace = "lattice"

// Metrics holds the Prometheus collectors fed by engine events.
type Metrics struct {
	nodeRuns     *prometheus.CounterVec
	nodeErrors   *prometheus.CounterVec
	nodeDuration *prometheus.HistogramVec
	scripts      *prometheus.CounterVec
	logs         *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		nodeRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "node_executions_total",
			Help:      "Nodes that finished executing, by script and node.",
		}, []string{"script", "node"}),
		nodeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "node_errors_total",
			Help:      "Node failures, by script and node.",
		}, []string{"script", "node"}),
		nodeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "node_duration_seconds",
			Help:      "Node execution time.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
		}, []string{"script"}),
		scripts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "script_runs_total",
			Help:      "Completed script runs, by outcome.",
		}, []string{"script", "outcome"}),
		logs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "log_messages_total",
			Help:      "Messages logged by nodes and the engine, by level.",
		}, []string{"script", "level"}),
	}
	for _, c := range []prometheus.Collector{m.nodeRuns, m.nodeErrors, m.nodeDuration, m.scripts, m.logs} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Listener returns an EventListener recording events of one script.
func (m *Metrics) Listener(scriptID string) ports.EventListener {
	return &metricsListener{m: m, script: scriptID}
}

type metricsListener struct {
	m      *Metrics
	script string
}

func (l *metricsListener) OnNodeStarted(string) {}

func (l *metricsListener) OnNodeCompleted(nodeID string, _ map[string]domain.Value, elapsed time.Duration) {
	l.m.nodeRuns.WithLabelValues(l.script, nodeID).Inc()
	l.m.nodeDuration.WithLabelValues(l.script).Observe(elapsed.Seconds())
}

func (l *metricsListener) OnNodeError(nodeID, _ string) {
	l.m.nodeErrors.WithLabelValues(l.script, nodeID).Inc()
}

func (l *metricsListener) OnScriptCompleted(success bool) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	l.m.scripts.WithLabelValues(l.script, outcome).Inc()
}

func (l *metricsListener) OnScriptCancelled() {
	l.m.scripts.WithLabelValues(l.script, "cancelled").Inc()
}

func (l *metricsListener) OnLog(level, _ string) {
	l.m.logs.WithLabelValues(l.script, logging.ParseLevel(level).String()).Inc()
}
