package metrics

import (
	"math/big"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMarketMetricsCounters(t *testing.T) {
	m := Market()
	require.Same(t, m, Market())

	before := testutil.ToFloat64(m.offersCreated.WithLabelValues("single"))
	m.ObserveOfferCreated("single")
	require.Equal(t, before+1, testutil.ToFloat64(m.offersCreated.WithLabelValues("single")))

	volume := testutil.ToFloat64(m.volume)
	m.ObserveOfferSold("multi", big.NewInt(500))
	require.Equal(t, volume+500, testutil.ToFloat64(m.volume))

	failures := testutil.ToFloat64(m.failures.WithLabelValues("buy", "unknown"))
	m.ObserveFailure("buy", "")
	require.Equal(t, failures+1, testutil.ToFloat64(m.failures.WithLabelValues("buy", "unknown")))

	m.SetCommission(big.NewInt(5))
	require.Equal(t, float64(5), testutil.ToFloat64(m.commission))

	m.ObserveLatency("buy", 10*time.Millisecond)
	require.Equal(t, 1, testutil.CollectAndCount(m.latency))
}

func TestNilMarketMetricsIsSafe(t *testing.T) {
	var m *MarketMetrics
	m.ObserveOfferCreated("single")
	m.ObserveOfferSold("single", big.NewInt(1))
	m.ObserveOfferCancelled("single")
	m.ObserveFailure("buy", "x")
	m.SetCommission(big.NewInt(1))
	m.ObserveLatency("buy", time.Second)
}
