package planstats

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang/snappy"
	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/prometheus/prometheus/prompb"
	businessdomain "github.com/smallbiznis/bizplannaija/internal/business/domain"
	"github.com/smallbiznis/bizplannaija/internal/config"
	subscriptiondomain "github.com/smallbiznis/bizplannaija/internal/subscription/domain"
	"github.com/smallbiznis/bizplannaija/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func strPtr(s string) *string { return &s }

func TestCollectorRefresh(t *testing.T) {
	db := testutil.NewDB(t, &subscriptiondomain.User{}, &businessdomain.Business{})
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	users := []subscriptiondomain.User{
		{ID: "u1", Plan: strPtr("premium"), CreatedAt: now, UpdatedAt: now},
		{ID: "u2", Plan: strPtr("basic"), CreatedAt: now, UpdatedAt: now},
		{ID: "u3", Plan: strPtr("free"), CreatedAt: now, UpdatedAt: now},
		{ID: "u4", Plan: strPtr("gold"), CreatedAt: now, UpdatedAt: now},
		{ID: "u5", CreatedAt: now, UpdatedAt: now},
	}
	require.NoError(t, db.Create(&users).Error)
	require.NoError(t, db.Create(&businessdomain.Business{ID: 1, OwnerID: "u1", Name: "Shop", Slug: "shop", PlanAtCreation: "premium", CreatedAt: now, UpdatedAt: now}).Error)

	c := NewCollector()
	require.NoError(t, c.Refresh(context.Background(), db))

	assert.Equal(t, 1.0, promtestutil.ToFloat64(c.usersByPlan.WithLabelValues("premium")))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(c.usersByPlan.WithLabelValues("basic")))
	assert.Equal(t, 3.0, promtestutil.ToFloat64(c.usersByPlan.WithLabelValues("free")))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(c.businesses))
}

func TestCollectorRefresh_MissingTable(t *testing.T) {
	db := testutil.NewDB(t)
	c := NewCollector()
	assert.Error(t, c.Refresh(context.Background(), db))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(c.refreshError))
}

func TestRemoteWritePusher(t *testing.T) {
	var got prompb.WriteRequest
	var headers http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		raw, err := snappy.Decode(nil, body)
		require.NoError(t, err)
		require.NoError(t, got.Unmarshal(raw))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	registry := prometheus.NewRegistry()
	gauge := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "users_by_plan"}, []string{"plan"})
	gauge.WithLabelValues("basic").Set(4)
	histogram := prometheus.NewHistogram(prometheus.HistogramOpts{Name: "skipped_seconds"})
	histogram.Observe(1)
	registry.MustRegister(gauge, histogram)

	pusher := NewRemoteWritePusher(srv.URL, "token-1")
	pusher.now = func() time.Time { return time.UnixMilli(1700000000000) }
	require.NoError(t, pusher.Push(context.Background(), registry))

	assert.Equal(t, "snappy", headers.Get("Content-Encoding"))
	assert.Equal(t, "Bearer token-1", headers.Get("Authorization"))
	require.Len(t, got.Timeseries, 1)
	series := got.Timeseries[0]
	assert.Equal(t, []prompb.Label{
		{Name: "__name__", Value: "users_by_plan"},
		{Name: "plan", Value: "basic"},
	}, series.Labels)
	require.Len(t, series.Samples, 1)
	assert.Equal(t, 4.0, series.Samples[0].Value)
	assert.Equal(t, int64(1700000000000), series.Samples[0].Timestamp)
}

func TestRemoteWritePusher_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	registry := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "pushes_total"})
	counter.Inc()
	registry.MustRegister(counter)

	err := NewRemoteWritePusher(srv.URL, "").Push(context.Background(), registry)
	assert.ErrorContains(t, err, "502")
}

func TestPushgatewayPusher(t *testing.T) {
	var path, method string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path, method = r.URL.Path, r.Method
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewCollector()
	c.businesses.Set(2)
	pusher := NewPushgatewayPusher(srv.URL, "bizplannaija", map[string]string{"environment": "test", "": "skipped"})
	require.NoError(t, pusher.Push(context.Background(), c.Registry()))
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/metrics/job/bizplannaija/environment/test", path)

	assert.Error(t, NewPushgatewayPusher(srv.URL, " ", nil).Push(context.Background(), c.Registry()))
}

func TestNewPusher(t *testing.T) {
	log := zap.NewNop()
	tests := []struct {
		name  string
		stats config.PlanStatsConfig
		want  any
	}{
		{"disabled", config.PlanStatsConfig{}, nil},
		{"no endpoint", config.PlanStatsConfig{Enabled: true, Exporter: ExporterPushgateway}, nil},
		{"bad remote write url", config.PlanStatsConfig{Enabled: true, Exporter: ExporterRemoteWrite, Endpoint: "not a url"}, nil},
		{"unknown exporter", config.PlanStatsConfig{Enabled: true, Exporter: "statsd", Endpoint: "http://x"}, nil},
		{"remote write", config.PlanStatsConfig{Enabled: true, Exporter: ExporterRemoteWrite, Endpoint: "http://prom/api/v1/write"}, &RemoteWritePusher{}},
		{"pushgateway", config.PlanStatsConfig{Enabled: true, Exporter: ExporterPushgateway, Endpoint: "http://gateway:9091"}, &PushgatewayPusher{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewPusher(config.Config{AppName: "bizplannaija", PlanStats: tt.stats}, log)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			assert.IsType(t, tt.want, got)
		})
	}
}

func TestWorkerRunOnce(t *testing.T) {
	db := testutil.NewDB(t, &subscriptiondomain.User{}, &businessdomain.Business{})
	pushed := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pushed++
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	worker := NewWorker(db, NewCollector(), NewPushgatewayPusher(srv.URL, "bizplannaija", nil), zap.NewNop())
	require.NoError(t, worker.RunOnce(context.Background()))
	assert.Equal(t, 1, pushed)

	assert.NoError(t, NewWorker(db, NewCollector(), nil, zap.NewNop()).RunOnce(context.Background()))
}
