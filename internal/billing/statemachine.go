package billing

import (
	"time"

	"github.com/Jperi24/nsfw-platform/internal/models"
)

// StatusPolicy maps provider subscription statuses onto membership tiers.
// The premium set is configuration, not a hardcoded allow-list, so
// provider-specific states (grace periods and the like) can be granted
// premium without a code change.
type StatusPolicy struct {
	premium map[string]bool
}

func NewStatusPolicy(premiumStatuses []string) StatusPolicy {
	premium := make(map[string]bool, len(premiumStatuses))
	for _, s := range premiumStatuses {
		premium[s] = true
	}
	return StatusPolicy{premium: premium}
}

// DefaultStatusPolicy treats active and trialing as premium, matching the
// provider's definition of a subscription in good standing.
func DefaultStatusPolicy() StatusPolicy {
	return NewStatusPolicy([]string{"active", "trialing"})
}

// TierFor returns the tier a subscription status maps to.
func (p StatusPolicy) TierFor(status string) models.Tier {
	if p.premium[status] {
		return models.TierPremium
	}
	return models.TierFree
}

// SideEffect describes work the caller owes after a committed transition.
// The transition function itself never performs IO.
type SideEffect struct {
	Kind     SideEffectKind
	UserID   string
	FromTier models.Tier
	ToTier   models.Tier
}

type SideEffectKind string

const (
	// EffectTierChanged fires when a transition moved the user between
	// tiers; it drives cache invalidation and the notification sink.
	EffectTierChanged SideEffectKind = "tier-changed"
)

// Drop reasons reported by Transition when the event produces no new record.
const (
	ReasonStale       = "stale"
	ReasonIgnoredMode = "ignored_mode"
)

// TransitionResult is the outcome of applying one event to one record.
type TransitionResult struct {
	Record  models.MembershipRecord
	Effects []SideEffect
	Applied bool
	Reason  string // set when Applied is false
}

// Transition is the pure membership transition function:
// (current record, event) -> (new record, side effects). It performs no IO;
// everything needed to transition is in the event payload. Target tier
// depends only on the event, never on the current tier, which is what makes
// redelivery idempotent.
func Transition(rec models.MembershipRecord, ev *Event, policy StatusPolicy) TransitionResult {
	if ev.Created < rec.LastEventSeq {
		return TransitionResult{Record: rec, Applied: false, Reason: ReasonStale}
	}

	next := rec

	switch ev.Kind {
	case KindCheckoutCompleted:
		if ev.Checkout.Mode != "subscription" {
			return TransitionResult{Record: rec, Applied: false, Reason: ReasonIgnoredMode}
		}
		next.Tier = models.TierPremium
		next.SubscriptionID = strPtr(ev.Checkout.SubscriptionID)
		if next.StripeCustomerID == "" {
			next.StripeCustomerID = ev.Checkout.CustomerID
		}

	case KindSubscriptionCreated, KindSubscriptionUpdated:
		next.Tier = policy.TierFor(ev.Subscription.Status)
		next.SubscriptionID = strPtr(ev.Subscription.SubscriptionID)

	case KindSubscriptionDeleted:
		next.Tier = models.TierFree
		next.SubscriptionID = nil
	}

	next.LastEventSeq = ev.Created
	next.UpdatedAt = time.Now().UTC()

	var effects []SideEffect
	if next.Tier != rec.Tier {
		effects = append(effects, SideEffect{
			Kind:     EffectTierChanged,
			UserID:   rec.UserID,
			FromTier: rec.Tier,
			ToTier:   next.Tier,
		})
	}

	return TransitionResult{Record: next, Effects: effects, Applied: true}
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
