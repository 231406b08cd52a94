package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics tracks the outcome of engine operations.
type EngineMetrics struct {
	operations   *prometheus.CounterVec
	failures     *prometheus.CounterVec
	liquidations prometheus.Counter
	debtMinted   prometheus.Counter
	debtBurned   prometheus.Counter
}

var (
	engineOnce     sync.Once
	engineRegistry *EngineMetrics
)

// Engine returns the process-wide engine metrics, registering them on first
// use.
func Engine() *EngineMetrics {
	engineOnce.Do(func() {
		engineRegistry = &EngineMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "stablecoin_operations_total",
				Help: "Count of committed engine operations by name.",
			}, []string{"op"}),
			failures: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "stablecoin_operation_failures_total",
				Help: "Count of aborted engine operations by name and failure kind.",
			}, []string{"op", "kind"}),
			liquidations: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "stablecoin_liquidations_total",
				Help: "Count of committed liquidations.",
			}),
			debtMinted: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "stablecoin_debt_mint_operations_total",
				Help: "Count of committed debt mint operations.",
			}),
			debtBurned: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "stablecoin_debt_burn_operations_total",
				Help: "Count of committed debt burn operations.",
			}),
		}
		prometheus.MustRegister(
			engineRegistry.operations,
			engineRegistry.failures,
			engineRegistry.liquidations,
			engineRegistry.debtMinted,
			engineRegistry.debtBurned,
		)
	})
	return engineRegistry
}

// Committed records a successful operation.
func (m *EngineMetrics) Committed(op string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op).Inc()
	switch op {
	case "liquidate":
		m.liquidations.Inc()
	case "mint_debt":
		m.debtMinted.Inc()
	case "burn_debt":
		m.debtBurned.Inc()
	}
}

// Aborted records a failed operation with its failure kind.
func (m *EngineMetrics) Aborted(op, kind string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(op, kind).Inc()
}
