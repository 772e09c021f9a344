package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/holmberd/go-objpool"
)

func TestDefaultConfig(t *testing.T) {
	t.Run("Disabled without endpoint", func(t *testing.T) {
		t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
		t.Setenv("OTEL_SERVICE_NAME", "")
		cfg := DefaultConfig()
		assert.False(t, cfg.Enabled)
		assert.Equal(t, serviceName, cfg.ServiceName)
	})

	t.Run("Enabled with endpoint", func(t *testing.T) {
		t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://collector:4318")
		t.Setenv("OTEL_METRICS_ENABLED", "")
		t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "true")
		cfg := DefaultConfig()
		assert.True(t, cfg.Enabled)
		assert.True(t, cfg.OTLPInsecure)
		assert.Equal(t, "collector:4318", stripScheme(cfg.OTLPEndpoint))
	})
}

func TestDisabledProvider(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{})
	require.NoError(t, err)
	assert.NotNil(t, p.Meter("objpool"))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestObservePool(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	provider, err := NewProviderWithReader(ctx, DefaultConfig(), reader)
	require.NoError(t, err)
	defer provider.Shutdown(ctx)

	pool, err := objpool.NewBuffered[*objpool.Element](objpool.ElementPolicy{}, nil, objpool.Config{
		Capacity:    2,
		BufferWidth: 1,
	})
	require.NoError(t, err)

	reg, err := ObservePool(provider.Meter("objpool"), "elements", pool)
	require.NoError(t, err)
	defer reg.Unregister()

	elements := []*objpool.Element{pool.Get(), pool.Get(), pool.Get(), pool.Get()}
	for _, e := range elements {
		pool.Return(e)
	}
	pool.Get()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	want := map[string]int64{
		"objpool.gets":        5,
		"objpool.creates":     4,
		"objpool.prewarmed":   0,
		"objpool.returns":     4,
		"objpool.dropped":     1,
		"objpool.buffer.hits": 1,
		"objpool.idle":        2,
		"objpool.buffered":    0,
	}
	got := make(map[string]int64)
	poolAttr := attribute.String("pool", "elements")
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				require.Len(t, data.DataPoints, 1, m.Name)
				assert.True(t, data.DataPoints[0].Attributes.HasValue(poolAttr.Key), m.Name)
				got[m.Name] = data.DataPoints[0].Value
			case metricdata.Gauge[int64]:
				require.Len(t, data.DataPoints, 1, m.Name)
				got[m.Name] = data.DataPoints[0].Value
			}
		}
	}
	for name, value := range want {
		assert.Equal(t, value, got[name], name)
	}
}
