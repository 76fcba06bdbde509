package otel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestParseHeaders(t *testing.T) {
	headers := ParseHeaders(" api-key = abc ,broken, =x,tenant=peer ")
	require.Equal(t, map[string]string{"api-key": "abc", "tenant": "peer"}, headers)
}

func TestInitDisabledIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{ServiceName: "peerswapd"})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))

	_, err = Init(context.Background(), Config{})
	require.Error(t, err)
}

func TestSamplerRatio(t *testing.T) {
	require.Equal(t, sdktrace.AlwaysSample().Description(), sampler(0).Description())
	require.Equal(t, sdktrace.AlwaysSample().Description(), sampler(1).Description())
	require.Equal(t, sdktrace.TraceIDRatioBased(0.25).Description(), sampler(0.25).Description())
}

func TestResourceCarriesServiceIdentity(t *testing.T) {
	res, err := newResource(Config{ServiceName: "peerswapd", ServiceVersion: "0.3.0", Environment: "test"})
	require.NoError(t, err)
	values := map[string]string{}
	for _, kv := range res.Attributes() {
		values[string(kv.Key)] = kv.Value.Emit()
	}
	require.Equal(t, "peerswapd", values["service.name"])
	require.Equal(t, "0.3.0", values["service.version"])
	require.Equal(t, "test", values["deployment.environment"])
}
