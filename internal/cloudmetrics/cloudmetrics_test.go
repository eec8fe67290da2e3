package cloudmetrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang/snappy"
	"github.com/guildpoint/merit/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/prometheus/prompb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/protoadapt"
)

func TestRecorderWritesCuratedRegistry(t *testing.T) {
	registry := prometheus.NewRegistry()
	rec := &recorder{metrics: newMetrics(registry, "comm-1", "Guild")}

	rec.RecordAward("reaction_plus")
	rec.RecordAward("reaction_plus")
	rec.RecordReconcileAction("grant")
	rec.RecordEngineError("internal_error")
	rec.UpdateActiveTenants(3)

	families, err := registry.Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	labels := map[string]map[string]string{}
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			name := family.GetName()
			if metric.GetCounter() != nil {
				values[name] = metric.GetCounter().GetValue()
			} else if metric.GetGauge() != nil {
				values[name] = metric.GetGauge().GetValue()
			}
			labelSet := map[string]string{}
			for _, pair := range metric.GetLabel() {
				labelSet[pair.GetName()] = pair.GetValue()
			}
			labels[name] = labelSet
		}
	}

	assert.Equal(t, float64(2), values["merit_cloud_awards_total"])
	assert.Equal(t, float64(1), values["merit_cloud_reconcile_actions_total"])
	assert.Equal(t, float64(1), values["merit_cloud_engine_errors_total"])
	assert.Equal(t, float64(3), values["merit_cloud_active_tenants"])

	awardLabels := labels["merit_cloud_awards_total"]
	assert.Equal(t, "comm-1", awardLabels["community"])
	assert.Equal(t, "Guild", awardLabels["community_name"])
	assert.Equal(t, "reaction_plus", awardLabels["source"])
}

func TestRecorderNormalizesEmptyLabels(t *testing.T) {
	registry := prometheus.NewRegistry()
	rec := &recorder{metrics: newMetrics(registry, "comm-1", "")}

	rec.RecordAward("   ")
	rec.UpdateActiveTenants(-5)

	families, err := registry.Gather()
	require.NoError(t, err)

	for _, family := range families {
		switch family.GetName() {
		case "merit_cloud_awards_total":
			require.Len(t, family.GetMetric(), 1)
			found := false
			for _, pair := range family.GetMetric()[0].GetLabel() {
				if pair.GetName() == "source" {
					assert.Equal(t, "unknown", pair.GetValue())
					found = true
				}
			}
			assert.True(t, found)
		case "merit_cloud_active_tenants":
			assert.Equal(t, float64(0), family.GetMetric()[0].GetGauge().GetValue())
		}
	}
}

func TestPackageFuncsAreSafeWithoutRegister(t *testing.T) {
	RecordAward("reaction_plus")
	RecordReconcileAction("grant")
	RecordEngineError("internal_error")
	UpdateActiveTenants(1)
}

func TestRemoteWritePusherSendsSnappyProto(t *testing.T) {
	var gotBody []byte
	var gotHeaders http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		gotBody = body
		gotHeaders = r.Header.Clone()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	registry := prometheus.NewRegistry()
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "merit_cloud_awards_total",
	}, []string{"source"})
	registry.MustRegister(counter)
	counter.WithLabelValues("daily_bonus").Add(4)

	pusher := NewRemoteWritePusher(server.URL, "secret-token")
	require.NoError(t, pusher.Push(context.Background(), registry))

	assert.Equal(t, "snappy", gotHeaders.Get("Content-Encoding"))
	assert.Equal(t, "application/x-protobuf", gotHeaders.Get("Content-Type"))
	assert.Equal(t, "0.1.0", gotHeaders.Get("X-Prometheus-Remote-Write-Version"))
	assert.Equal(t, "Bearer secret-token", gotHeaders.Get("Authorization"))

	raw, err := snappy.Decode(nil, gotBody)
	require.NoError(t, err)
	var req prompb.WriteRequest
	require.NoError(t, proto.Unmarshal(raw, protoadapt.MessageV2Of(&req)))

	require.Len(t, req.Timeseries, 1)
	series := req.Timeseries[0]
	labelValues := map[string]string{}
	for _, label := range series.Labels {
		labelValues[label.Name] = label.Value
	}
	assert.Equal(t, "merit_cloud_awards_total", labelValues["__name__"])
	assert.Equal(t, "daily_bonus", labelValues["source"])
	require.Len(t, series.Samples, 1)
	assert.Equal(t, float64(4), series.Samples[0].Value)
}

func TestRemoteWritePusherRejectsErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	registry := prometheus.NewRegistry()
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "merit_cloud_active_tenants"})
	registry.MustRegister(gauge)
	gauge.Set(1)

	pusher := NewRemoteWritePusher(server.URL, "")
	err := pusher.Push(context.Background(), registry)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestNewPusherRequiresCloudMode(t *testing.T) {
	cfg := config.Config{
		Mode: config.ModeOSS,
	}
	cfg.Cloud.Metrics.Enabled = true
	cfg.Cloud.Metrics.Exporter = "prometheus_remote_write"
	cfg.Cloud.Metrics.Endpoint = "https://stats.example.com/write"

	assert.Nil(t, NewPusher(cfg, zap.NewNop()))

	cfg.Mode = config.ModeCloud
	pusher := NewPusher(cfg, zap.NewNop())
	require.NotNil(t, pusher)
	_, ok := pusher.(*RemoteWritePusher)
	assert.True(t, ok)
}

func TestNewPusherDisablesOnMissingEndpoint(t *testing.T) {
	cfg := config.Config{Mode: config.ModeCloud}
	cfg.Cloud.Metrics.Enabled = true
	cfg.Cloud.Metrics.Exporter = "prometheus_remote_write"

	assert.Nil(t, NewPusher(cfg, zap.NewNop()))
}
