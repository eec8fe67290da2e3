package cloudmetrics

import "github.com/prometheus/client_golang/prometheus"

type metrics struct {
	awards           *prometheus.CounterVec
	reconcileActions *prometheus.CounterVec
	engineErrors     *prometheus.CounterVec
	activeTenants    prometheus.Gauge
}

// newMetrics registers the curated instruments on the dedicated cloud
// registry. Only these series ever leave the deployment.
func newMetrics(registry *prometheus.Registry, community, communityName string) *metrics {
	constLabels := prometheus.Labels{"community": community}
	if communityName != "" {
		constLabels["community_name"] = communityName
	}

	m := &metrics{
		awards: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "merit_cloud_awards_total",
			Help:        "Ledger grants recorded, by source tag.",
			ConstLabels: constLabels,
		}, []string{"source"}),
		reconcileActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "merit_cloud_reconcile_actions_total",
			Help:        "Badge grants and revokes issued by the reconciler.",
			ConstLabels: constLabels,
		}, []string{"action"}),
		engineErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "merit_cloud_engine_errors_total",
			Help:        "Requests that ended in a server-side error.",
			ConstLabels: constLabels,
		}, []string{"operation"}),
		activeTenants: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "merit_cloud_active_tenants",
			Help:        "Tenants with at least one configured rank definition.",
			ConstLabels: constLabels,
		}),
	}
	registry.MustRegister(m.awards, m.reconcileActions, m.engineErrors, m.activeTenants)
	return m
}
