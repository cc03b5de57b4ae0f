package flow

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the engine's Prometheus collectors, adapted from the
// teacher's graph-run metrics: counts and latencies per node visit, plus
// run-level outcome counts.
type Metrics struct {
	nodeVisits   *prometheus.CounterVec
	nodeFailures *prometheus.CounterVec
	nodeRetries  *prometheus.CounterVec
	nodeDuration *prometheus.HistogramVec
	runOutcomes  *prometheus.CounterVec
}

// NewMetrics creates and registers the engine's collectors against reg.
// Passing prometheus.NewRegistry() (rather than the global
// DefaultRegisterer) keeps concurrent test runs from colliding on metric
// names.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		nodeVisits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wfcore",
			Name:      "node_visits_total",
			Help:      "Number of times a node was dequeued for execution.",
		}, []string{"node_id", "node_type"}),
		nodeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wfcore",
			Name:      "node_failures_total",
			Help:      "Number of terminal (post-retry) exec failures per node.",
		}, []string{"node_id", "node_type"}),
		nodeRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wfcore",
			Name:      "node_retries_total",
			Help:      "Number of exec retry attempts per node.",
		}, []string{"node_id", "node_type"}),
		nodeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "wfcore",
			Name:      "node_exec_duration_seconds",
			Help:      "Exec phase duration per node visit.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"node_id", "node_type"}),
		runOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wfcore",
			Name:      "run_outcomes_total",
			Help:      "Completed run outcomes by terminal status.",
		}, []string{"status"}),
	}

	for _, c := range []prometheus.Collector{m.nodeVisits, m.nodeFailures, m.nodeRetries, m.nodeDuration, m.runOutcomes} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observeVisit(nodeID, nodeType string) {
	if m == nil {
		return
	}
	m.nodeVisits.WithLabelValues(nodeID, nodeType).Inc()
}

func (m *Metrics) observeRetry(nodeID, nodeType string) {
	if m == nil {
		return
	}
	m.nodeRetries.WithLabelValues(nodeID, nodeType).Inc()
}

func (m *Metrics) observeFailure(nodeID, nodeType string) {
	if m == nil {
		return
	}
	m.nodeFailures.WithLabelValues(nodeID, nodeType).Inc()
}

func (m *Metrics) observeDuration(nodeID, nodeType string, seconds float64) {
	if m == nil {
		return
	}
	m.nodeDuration.WithLabelValues(nodeID, nodeType).Observe(seconds)
}

func (m *Metrics) observeOutcome(status Status) {
	if m == nil {
		return
	}
	m.runOutcomes.WithLabelValues(string(status)).Inc()
}
