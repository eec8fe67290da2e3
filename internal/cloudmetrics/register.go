// Package cloudmetrics reports a curated set of aggregate counters from a
// hosted deployment back to the control plane. The instruments live on a
// dedicated registry so nothing beyond these series leaves the box.
package cloudmetrics

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/guildpoint/merit/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	exportInterval = 15 * time.Second
	exportTimeout  = 5 * time.Second
)

var registerOnce sync.Once

// Register wires the recorder and starts the periodic push. A nil pusher
// means cloud reporting is disabled and the recorder stays a noop.
func Register(lc fx.Lifecycle, cfg config.Config, registry *prometheus.Registry, pusher Pusher, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pusher == nil {
		return
	}

	registerOnce.Do(func() {
		community := strings.TrimSpace(cfg.Cloud.CommunityID)
		if community == "" {
			community = "unknown"
		}
		setRecorder(&recorder{
			metrics: newMetrics(registry, community, strings.TrimSpace(cfg.Cloud.CommunityName)),
		})

		exp := newExporter(registry, pusher, logger.Named("cloudmetrics"))
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				exp.Start()
				return nil
			},
			OnStop: func(ctx context.Context) error {
				return exp.Stop(ctx)
			},
		})
	})
}

type exporter struct {
	registry *prometheus.Registry
	pusher   Pusher
	logger   *zap.Logger

	stopCh    chan struct{}
	doneCh    chan struct{}
	errorOnce atomic.Bool
}

func newExporter(registry *prometheus.Registry, pusher Pusher, logger *zap.Logger) *exporter {
	return &exporter{
		registry: registry,
		pusher:   pusher,
		logger:   logger,
	}
}

func (e *exporter) Start() {
	if e == nil || e.stopCh != nil {
		return
	}
	e.stopCh = make(chan struct{})
	e.doneCh = make(chan struct{})

	go func() {
		defer close(e.doneCh)
		ticker := time.NewTicker(exportInterval)
		defer ticker.Stop()
		e.exportOnce()
		for {
			select {
			case <-ticker.C:
				e.exportOnce()
			case <-e.stopCh:
				return
			}
		}
	}()
}

func (e *exporter) Stop(ctx context.Context) error {
	if e == nil || e.stopCh == nil {
		return nil
	}
	close(e.stopCh)
	select {
	case <-e.doneCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *exporter) exportOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), exportTimeout)
	defer cancel()

	if err := e.pusher.Push(ctx, e.registry); err != nil {
		// Warn once per outage, reset on the next successful push.
		if e.errorOnce.CompareAndSwap(false, true) {
			e.logger.Warn("cloud metrics push failed", zap.Error(err))
		}
		return
	}
	e.errorOnce.Store(false)
}
