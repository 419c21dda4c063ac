package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("plan", "basic"),
		attribute.String("user_id", "uid-1"),
		attribute.String("outcome", "expired"),
	)
	require.Len(t, attrs, 2)
	assert.Equal(t, attribute.Key("plan"), attrs[0].Key)
	assert.Equal(t, attribute.Key("outcome"), attrs[1].Key)
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	m.RecordEntitlementCheck(context.Background(), "free", "free")
	m.RecordPlanDowngrade(context.Background(), "basic", "read")
	m.RecordRateLimitDenied(context.Background(), "/api", "bucket")

	var h *HTTPMetrics
	h.Observe("GET", "/health", 200, time.Millisecond)
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{ServiceName: "test"}, noop.NewMeterProvider())
	require.NoError(t, err)
	m.RecordEntitlementCheck(context.Background(), "premium", "active")
	m.RecordPlanUpdate(context.Background(), "premium")
}

func TestHTTPMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	h, err := NewHTTPMetrics(reg)
	require.NoError(t, err)

	h.Observe("GET", "/api/pricing", 200, 5*time.Millisecond)
	h.Observe("GET", "/api/pricing", 200, 5*time.Millisecond)
	h.Observe("GET", "", 404, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(h.requests.WithLabelValues("GET", "/api/pricing", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.requests.WithLabelValues("GET", "unknown", "404")))

	_, err = NewHTTPMetrics(reg)
	assert.Error(t, err, "duplicate registration")
}
