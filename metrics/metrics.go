package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "guardian"

type Metrics struct {
	// transactions executed in finalized blocks, by type and result code
	TxTotal *prometheus.CounterVec

	// time spent in FinalizeBlock
	BlockDuration prometheus.Histogram

	Height prometheus.Gauge

	EmergencyPauses *prometheus.CounterVec
	EmergencyLifts  *prometheus.CounterVec

	// outbound alert deliveries by destination chain and outcome
	RelayDeliveries *prometheus.CounterVec

	// 0 closed, 1 half-open, 2 open
	RelayBreakerState prometheus.Gauge
}

// NewMetrics registers the collectors on reg. A nil reg uses a private
// registry that is never exported.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	return &Metrics{
		TxTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "abci",
			Name:      "tx_total",
			Help:      "Transactions executed by type and result code.",
		}, []string{"type", "code"}),

		BlockDuration: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "abci",
			Name:      "finalize_block_duration_seconds",
			Help:      "Histogram of FinalizeBlock latencies.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}),

		Height: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "abci",
			Name:      "height",
			Help:      "Last finalized block height.",
		}),

		EmergencyPauses: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "emergency",
			Name:      "pauses_total",
			Help:      "Emergency pauses by origin.",
		}, []string{"origin"}),

		EmergencyLifts: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "emergency",
			Name:      "lifts_total",
			Help:      "Emergency lifts by origin.",
		}, []string{"origin"}),

		RelayDeliveries: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "deliveries_total",
			Help:      "Outbound alert deliveries by destination chain and outcome.",
		}, []string{"dest_chain", "outcome"}),

		RelayBreakerState: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "circuit_breaker_state",
			Help:      "Router circuit breaker state (0=closed, 1=half-open, 2=open).",
		}),
	}
}

func (m *Metrics) RecordTx(txType string, code uint32) {
	m.TxTotal.WithLabelValues(txType, strconv.FormatUint(uint64(code), 10)).Inc()
}

func (m *Metrics) RecordBlock(height int64, d time.Duration) {
	m.Height.Set(float64(height))
	m.BlockDuration.Observe(d.Seconds())
}

// RecordPause counts a pause; origin is "local" or "relay".
func (m *Metrics) RecordPause(origin string) {
	m.EmergencyPauses.WithLabelValues(origin).Inc()
}

func (m *Metrics) RecordLift(origin string) {
	m.EmergencyLifts.WithLabelValues(origin).Inc()
}

func (m *Metrics) RecordDelivery(destChain uint64, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.RelayDeliveries.WithLabelValues(strconv.FormatUint(destChain, 10), outcome).Inc()
}
