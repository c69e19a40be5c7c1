package billing

import (
	"context"
	"time"

	"github.com/Jperi24/nsfw-platform/internal/common/errors"
	"github.com/Jperi24/nsfw-platform/internal/common/logger"
	"github.com/Jperi24/nsfw-platform/internal/common/metrics"
	"github.com/Jperi24/nsfw-platform/internal/common/observability"
)

// Dispatcher routes a verified event to the applier, guarding against
// at-least-once redelivery with the dedup window and enforcing per-customer
// ordering with the keyed serializer. Distinct customers dispatch fully in
// parallel.
type Dispatcher struct {
	applier    *Applier
	window     *DedupWindow
	serializer *Serializer
	wait       time.Duration
	logger     logger.Logger
	obs        *observability.Observability
}

func NewDispatcher(applier *Applier, window *DedupWindow, wait time.Duration, log logger.Logger, obs *observability.Observability) *Dispatcher {
	return &Dispatcher{
		applier:    applier,
		window:     window,
		serializer: NewSerializer(),
		wait:       wait,
		logger:     log.WithFields(map[string]interface{}{"component": "billing-dispatcher"}),
		obs:        obs,
	}
}

// Dispatch processes one event to completion. A nil return means the event
// is acknowledged (applied or safely dropped); an error means it must NOT be
// acknowledged so the provider redelivers it.
func (d *Dispatcher) Dispatch(ctx context.Context, ev *Event) error {
	kind := string(ev.Kind)
	start := time.Now()
	metrics.WebhookEventsReceived.WithLabelValues(kind).Inc()

	if !ev.Known() {
		d.logger.Info("unhandled event kind acknowledged", map[string]interface{}{
			"eventId": ev.ID,
			"kind":    kind,
		})
		metrics.WebhookEventsDropped.WithLabelValues(kind, metrics.DropReasonUnknownKind).Inc()
		return nil
	}

	if d.window.Seen(ev.ID) {
		d.logger.Info("duplicate event acknowledged", map[string]interface{}{
			"eventId": ev.ID,
			"kind":    kind,
		})
		metrics.WebhookEventsDropped.WithLabelValues(kind, metrics.DropReasonDuplicate).Inc()
		return nil
	}

	release, err := d.serializer.Acquire(ctx, ev.CustomerKey(), d.wait)
	if err != nil {
		d.recordFailure(ctx, ev, err)
		return err
	}
	defer release()

	// Re-check under the slot: a concurrent redelivery may have applied
	// this ID while we waited.
	if d.window.Seen(ev.ID) {
		metrics.WebhookEventsDropped.WithLabelValues(kind, metrics.DropReasonDuplicate).Inc()
		return nil
	}

	outcome, err := d.applier.Apply(ctx, ev)
	if err != nil {
		d.recordFailure(ctx, ev, err)
		return err
	}

	d.window.Add(ev.ID)

	if outcome.Applied {
		metrics.WebhookEventsApplied.WithLabelValues(kind).Inc()
		d.obs.RecordEventProcessed(ctx, kind, "applied")
	} else {
		metrics.WebhookEventsDropped.WithLabelValues(kind, outcome.Reason).Inc()
		d.obs.RecordEventProcessed(ctx, kind, "dropped")
	}

	elapsed := time.Since(start)
	metrics.WebhookEventDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
	d.obs.RecordEventDuration(ctx, kind, elapsed)
	return nil
}

func (d *Dispatcher) recordFailure(ctx context.Context, ev *Event, err error) {
	code := "INTERNAL_ERROR"
	if stdErr, ok := errors.AsStandardError(err); ok {
		code = string(stdErr.Code)
	}
	metrics.WebhookEventsFailed.WithLabelValues(string(ev.Kind), code).Inc()
	d.obs.RecordEventProcessed(ctx, string(ev.Kind), "failed")
	d.logger.WithError(err).Error("event processing failed", map[string]interface{}{
		"eventId":   ev.ID,
		"kind":      string(ev.Kind),
		"errorCode": code,
	})
}
