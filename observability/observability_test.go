package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

type namedEvent string

func (e namedEvent) EventType() string { return string(e) }

func TestEventsCountsByType(t *testing.T) {
	reg := Events()
	before := testutil.ToFloat64(reg.emitted.WithLabelValues("market.offer.sold"))
	reg.Emit(namedEvent("market.offer.sold"))
	reg.Emit(nil)
	require.Equal(t, before+1, testutil.ToFloat64(reg.emitted.WithLabelValues("market.offer.sold")))
}

func TestModuleMetricsObserve(t *testing.T) {
	m := ModuleMetrics()
	m.Observe("market", "market_buy", 0, time.Millisecond)
	m.Observe("market", "market_buy", -32021, time.Millisecond)
	require.Equal(t, float64(1), testutil.ToFloat64(m.errors.WithLabelValues("market", "market_buy", "-32021")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.requests.WithLabelValues("market", "market_buy", "success")))

	m.RecordThrottle("", "")
	require.Equal(t, float64(1), testutil.ToFloat64(m.throttles.WithLabelValues("unknown", "unspecified")))
}
