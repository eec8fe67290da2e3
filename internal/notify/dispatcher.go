package notify

import (
	"context"
	"time"

	"github.com/guildpoint/merit/internal/config"
	"github.com/guildpoint/merit/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	defaultBuffer   = 256
	deliveryTimeout = 5 * time.Second
)

type Params struct {
	fx.In

	Sink    Sink
	Log     *zap.Logger
	Cfg     config.Config
	Metrics *metrics.Metrics `optional:"true"`
}

// AsyncDispatcher hands events to the underlying sink from a worker
// goroutine so award paths never block on delivery. When the buffer is
// full the event is dropped and counted; nothing is ever retried.
type AsyncDispatcher struct {
	sink    Sink
	log     *zap.Logger
	metrics *metrics.Metrics
	events  chan Event
}

func NewDispatcher(p Params) *AsyncDispatcher {
	buffer := p.Cfg.NotifyBuffer
	if buffer <= 0 {
		buffer = defaultBuffer
	}

	return &AsyncDispatcher{
		sink:    p.Sink,
		log:     p.Log.Named("notify.dispatcher"),
		metrics: p.Metrics,
		events:  make(chan Event, buffer),
	}
}

// Publish enqueues the event and returns immediately. The error return
// satisfies Sink; it is always nil because callers have nothing useful
// to do with a delivery failure.
func (d *AsyncDispatcher) Publish(ctx context.Context, event Event) error {
	select {
	case d.events <- event:
	default:
		d.metrics.RecordNotificationDropped(ctx, event.Type)
		d.log.Warn("notification buffer full, event dropped",
			zap.String("event_type", event.Type),
			zap.String("tenant_id", event.TenantID.String()),
			zap.String("user_id", event.UserID),
		)
	}
	return nil
}

// RunForever consumes the buffer until the context is canceled. Events
// still queued at shutdown are lost.
func (d *AsyncDispatcher) RunForever(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-d.events:
			d.deliver(ctx, event)
		}
	}
}

func (d *AsyncDispatcher) deliver(parentCtx context.Context, event Event) {
	ctx, cancel := context.WithTimeout(parentCtx, deliveryTimeout)
	defer cancel()

	if err := d.sink.Publish(ctx, event); err != nil {
		d.log.Warn("notification delivery failed",
			zap.Error(err),
			zap.String("event_type", event.Type),
			zap.String("tenant_id", event.TenantID.String()),
		)
	}
}
