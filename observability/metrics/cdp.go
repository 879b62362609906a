// Package metrics exposes Prometheus instrumentation for the CDP engine.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// CdpMetrics is the singleton set of counters and gauges the engine's
// operations update. Retrieve it with Cdp().
type CdpMetrics struct {
	OperationsTotal    *prometheus.CounterVec
	OperationsFailed   *prometheus.CounterVec
	Liquidations       *prometheus.CounterVec
	HealthFactor       *prometheus.GaugeVec
	TotalDscSupply     prometheus.Gauge
	ProtocolCollateral prometheus.Gauge
	OracleStale        *prometheus.CounterVec
}

var (
	cdpOnce     sync.Once
	cdpRegistry *CdpMetrics
)

// Cdp returns the process-wide CDP metrics registry, registering it with
// the default Prometheus registerer on first use.
func Cdp() *CdpMetrics {
	cdpOnce.Do(func() {
		cdpRegistry = &CdpMetrics{
			OperationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "cdp_operations_total",
				Help: "Count of completed engine operations by kind and outcome.",
			}, []string{"operation", "outcome"}),
			OperationsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "cdp_operations_failed_total",
				Help: "Count of engine operations that failed, by kind and error kind.",
			}, []string{"operation", "error"}),
			Liquidations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "cdp_liquidations_total",
				Help: "Count of completed liquidations by collateral asset.",
			}, []string{"asset"}),
			HealthFactor: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "cdp_last_health_factor",
				Help: "Health factor observed for the most recently touched user, by asset.",
			}, []string{"asset"}),
			TotalDscSupply: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "cdp_total_dsc_supply",
				Help: "Total DSC issued by the engine's pool.",
			}),
			ProtocolCollateral: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "cdp_protocol_collateral_usd",
				Help: "USD value of collateral currently held by the engine.",
			}),
			OracleStale: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "cdp_oracle_stale_total",
				Help: "Count of operations aborted by a stale oracle read, by asset.",
			}, []string{"asset"}),
		}
		prometheus.MustRegister(
			cdpRegistry.OperationsTotal,
			cdpRegistry.OperationsFailed,
			cdpRegistry.Liquidations,
			cdpRegistry.HealthFactor,
			cdpRegistry.TotalDscSupply,
			cdpRegistry.ProtocolCollateral,
			cdpRegistry.OracleStale,
		)
	})
	return cdpRegistry
}
