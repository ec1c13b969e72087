package metrics

import (
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MarketMetrics tracks marketplace activity.
type MarketMetrics struct {
	offersCreated   *prometheus.CounterVec
	offersSold      *prometheus.CounterVec
	offersCancelled *prometheus.CounterVec
	failures        *prometheus.CounterVec
	commission      prometheus.Gauge
	volume          prometheus.Counter
	latency         *prometheus.HistogramVec
}

var (
	marketOnce     sync.Once
	marketRegistry *MarketMetrics
)

// Market returns the process-wide marketplace metrics registry.
func Market() *MarketMetrics {
	marketOnce.Do(func() {
		marketRegistry = &MarketMetrics{
			offersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "market_offers_created_total",
				Help: "Count of offers listed by asset kind.",
			}, []string{"kind"}),
			offersSold: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "market_offers_sold_total",
				Help: "Count of offers bought by asset kind.",
			}, []string{"kind"}),
			offersCancelled: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "market_offers_cancelled_total",
				Help: "Count of offers cancelled by asset kind.",
			}, []string{"kind"}),
			failures: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "market_operation_failures_total",
				Help: "Rejected or rolled back operations by operation and reason.",
			}, []string{"op", "reason"}),
			commission: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "market_commission_balance",
				Help: "Undistributed commission held by the marketplace vault.",
			}),
			volume: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "market_settled_volume_total",
				Help: "Total native amount paid for settled offers.",
			}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "market_operation_duration_seconds",
				Help:    "Latency of state-changing node operations.",
				Buckets: prometheus.DefBuckets,
			}, []string{"op"}),
		}
		prometheus.MustRegister(
			marketRegistry.offersCreated,
			marketRegistry.offersSold,
			marketRegistry.offersCancelled,
			marketRegistry.failures,
			marketRegistry.commission,
			marketRegistry.volume,
			marketRegistry.latency,
		)
	})
	return marketRegistry
}

func label(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return value
}

func (m *MarketMetrics) ObserveOfferCreated(kind string) {
	if m == nil {
		return
	}
	m.offersCreated.WithLabelValues(label(kind)).Inc()
}

// ObserveOfferSold records a settlement and the amount paid for it.
func (m *MarketMetrics) ObserveOfferSold(kind string, paid *big.Int) {
	if m == nil {
		return
	}
	m.offersSold.WithLabelValues(label(kind)).Inc()
	if paid != nil && paid.Sign() > 0 {
		value, _ := new(big.Float).SetInt(paid).Float64()
		m.volume.Add(value)
	}
}

func (m *MarketMetrics) ObserveOfferCancelled(kind string) {
	if m == nil {
		return
	}
	m.offersCancelled.WithLabelValues(label(kind)).Inc()
}

// ObserveFailure counts a rejected operation. Reason should be a short, bounded
// label such as the sentinel error name.
func (m *MarketMetrics) ObserveFailure(op, reason string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(label(op), label(reason)).Inc()
}

// SetCommission publishes the current commission balance.
func (m *MarketMetrics) SetCommission(balance *big.Int) {
	if m == nil || balance == nil {
		return
	}
	value, _ := new(big.Float).SetInt(balance).Float64()
	m.commission.Set(value)
}

func (m *MarketMetrics) ObserveLatency(op string, d time.Duration) {
	if m == nil {
		return
	}
	m.latency.WithLabelValues(label(op)).Observe(d.Seconds())
}
