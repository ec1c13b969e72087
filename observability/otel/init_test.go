package otel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

func TestInitRequiresServiceName(t *testing.T) {
	_, err := Init(context.Background(), Config{})
	require.Error(t, err)
}

func TestInitWithoutExportersShutsDownCleanly(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{ServiceName: "marketd"})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestParseHeaders(t *testing.T) {
	headers := ParseHeaders(" api-key = abc ,bogus,=x, tenant=market ")
	require.Equal(t, map[string]string{"api-key": "abc", "tenant": "market"}, headers)
}

func TestResourceAttributesDescribeMarketplace(t *testing.T) {
	set := attribute.NewSet(resourceAttributes(Config{
		ServiceName:   "marketd",
		Environment:   "prod",
		Operator:      "0x00000000000000000000000000000000000000AA",
		CommissionBps: 250,
		StateBackend:  "leveldb",
		IndexDriver:   "postgres",
	})...)

	value, ok := set.Value(semconv.ServiceNameKey)
	require.True(t, ok)
	require.Equal(t, "marketd", value.AsString())
	value, ok = set.Value(semconv.DeploymentEnvironmentKey)
	require.True(t, ok)
	require.Equal(t, "prod", value.AsString())
	value, ok = set.Value(attrMarketOperator)
	require.True(t, ok)
	require.Equal(t, "0x00000000000000000000000000000000000000aa", value.AsString())
	value, ok = set.Value(attrMarketCommission)
	require.True(t, ok)
	require.Equal(t, int64(250), value.AsInt64())
	value, ok = set.Value(attrMarketBackend)
	require.True(t, ok)
	require.Equal(t, "leveldb", value.AsString())
	value, ok = set.Value(attrMarketIndex)
	require.True(t, ok)
	require.Equal(t, "postgres", value.AsString())

	minimal := attribute.NewSet(resourceAttributes(Config{ServiceName: "marketd"})...)
	_, ok = minimal.Value(attrMarketOperator)
	require.False(t, ok)
	_, ok = minimal.Value(semconv.DeploymentEnvironmentKey)
	require.False(t, ok)
}
