package billing

import (
	"context"

	"github.com/Jperi24/nsfw-platform/internal/common/errors"
	"github.com/Jperi24/nsfw-platform/internal/common/logger"
	"github.com/Jperi24/nsfw-platform/internal/common/metrics"
	"github.com/Jperi24/nsfw-platform/internal/entitlement"
	"github.com/Jperi24/nsfw-platform/internal/models"
)

// Applier resolves an event's customer to a local membership record and
// applies the state machine transition through the store's compare-and-swap,
// retrying the whole transition a bounded number of times on CAS failure.
type Applier struct {
	store      entitlement.Store
	policy     StatusPolicy
	notifier   Notifier
	logger     logger.Logger
	maxRetries int
}

func NewApplier(store entitlement.Store, policy StatusPolicy, notifier Notifier, log logger.Logger, maxRetries int) *Applier {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Applier{
		store:      store,
		policy:     policy,
		notifier:   notifier,
		logger:     log.WithFields(map[string]interface{}{"component": "billing-applier"}),
		maxRetries: maxRetries,
	}
}

// ApplyOutcome reports what one event did. Dropped events (stale, ignored
// mode) are not errors; they are acknowledged no-ops.
type ApplyOutcome struct {
	Applied bool
	Reason  string
	Effects []SideEffect
}

// Apply processes one verified event. The caller holds the customer's
// serialization slot, so no other writer races us on this customer except
// the content-free window between read and CAS, which the retry loop covers.
func (a *Applier) Apply(ctx context.Context, ev *Event) (*ApplyOutcome, error) {
	// A checkout outside subscription mode carries no tier effect, so it is
	// acknowledged before any customer lookup. Its customer may have no
	// local record at all and that must not surface as a retryable failure.
	if ev.Kind == KindCheckoutCompleted && ev.Checkout.Mode != "subscription" {
		a.logger.Info("event dropped", map[string]interface{}{
			"eventId": ev.ID,
			"kind":    string(ev.Kind),
			"mode":    ev.Checkout.Mode,
			"reason":  ReasonIgnoredMode,
		})
		return &ApplyOutcome{Applied: false, Reason: ReasonIgnoredMode}, nil
	}

	rec, err := a.resolve(ctx, ev)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < a.maxRetries; attempt++ {
		res := Transition(*rec, ev, a.policy)
		if !res.Applied {
			a.logger.Info("event dropped", map[string]interface{}{
				"eventId": ev.ID,
				"kind":    string(ev.Kind),
				"userId":  rec.UserID,
				"reason":  res.Reason,
			})
			return &ApplyOutcome{Applied: false, Reason: res.Reason}, nil
		}

		swapped, err := a.store.CompareAndSwap(ctx, rec.UserID, rec.LastEventSeq, &res.Record)
		if err != nil {
			return nil, err
		}
		if swapped {
			a.runEffects(ctx, res.Effects)
			return &ApplyOutcome{Applied: true, Effects: res.Effects}, nil
		}

		// Lost the race; re-read and re-run the transition from scratch.
		// A redelivered event that lost the timestamp race falls out as a
		// stale drop on the next iteration.
		metrics.MembershipCASRetries.Inc()
		rec, err = a.store.Get(ctx, rec.UserID)
		if err != nil {
			return nil, err
		}
	}

	return nil, errors.NewConcurrentUpdateExhaustedError(resolveUserID(ev), a.maxRetries)
}

// resolve maps the event's customer to a membership record. Checkout events
// carry the local user id directly in metadata; subscription lifecycle
// events only carry the provider customer reference.
func (a *Applier) resolve(ctx context.Context, ev *Event) (*models.MembershipRecord, error) {
	if ev.Kind == KindCheckoutCompleted && ev.Checkout.UserID != "" {
		rec, err := a.store.Get(ctx, ev.Checkout.UserID)
		if errors.IsCode(err, errors.ErrCodeMembershipNotFound) {
			return nil, errors.NewCustomerUnresolvedError(ev.CustomerKey())
		}
		return rec, err
	}

	rec, err := a.store.FindByCustomerID(ctx, ev.CustomerKey())
	if errors.IsCode(err, errors.ErrCodeMembershipNotFound) {
		return nil, errors.NewCustomerUnresolvedError(ev.CustomerKey())
	}
	return rec, err
}

func (a *Applier) runEffects(ctx context.Context, effects []SideEffect) {
	for _, effect := range effects {
		if effect.Kind != EffectTierChanged {
			continue
		}
		a.logger.Info("membership tier changed", map[string]interface{}{
			"userId": effect.UserID,
			"from":   string(effect.FromTier),
			"to":     string(effect.ToTier),
		})
		if err := a.notifier.TierChanged(ctx, effect); err != nil {
			a.logger.Warn("tier change notification failed", map[string]interface{}{
				"userId": effect.UserID,
				"error":  err.Error(),
			})
		}
	}
}

func resolveUserID(ev *Event) string {
	if ev.Kind == KindCheckoutCompleted {
		return ev.Checkout.UserID
	}
	return ev.CustomerKey()
}
