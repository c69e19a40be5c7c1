package billing

import (
	"encoding/json"

	"github.com/Jperi24/nsfw-platform/internal/common/errors"
)

// Kind discriminates inbound provider events.
type Kind string

const (
	KindCheckoutCompleted   Kind = "checkout.session.completed"
	KindSubscriptionCreated Kind = "customer.subscription.created"
	KindSubscriptionUpdated Kind = "customer.subscription.updated"
	KindSubscriptionDeleted Kind = "customer.subscription.deleted"
)

// Event is a verified, parsed provider event. Exactly one payload field is
// set, matching the kind; events are transient and never persisted beyond
// the dedup window.
type Event struct {
	ID      string
	Kind    Kind
	Created int64 // provider-assigned unix timestamp, drives ordering

	Checkout     *CheckoutPayload
	Subscription *SubscriptionPayload
}

// CheckoutPayload carries the fields guaranteed by checkout.session.completed.
type CheckoutPayload struct {
	Mode           string `json:"mode"`
	CustomerID     string `json:"customer"`
	SubscriptionID string `json:"subscription"`
	UserID         string `json:"-"`
}

// SubscriptionPayload carries the fields guaranteed by the
// customer.subscription.* lifecycle events.
type SubscriptionPayload struct {
	SubscriptionID string `json:"id"`
	CustomerID     string `json:"customer"`
	Status         string `json:"status"`
}

// Known reports whether the event kind has a registered handler.
func (e *Event) Known() bool {
	switch e.Kind {
	case KindCheckoutCompleted, KindSubscriptionCreated, KindSubscriptionUpdated, KindSubscriptionDeleted:
		return true
	}
	return false
}

// CustomerKey returns the identity all ordering is serialized on. Checkout
// sessions for a first-time subscriber may not carry a customer reference
// yet, so they fall back to the local user id.
func (e *Event) CustomerKey() string {
	switch e.Kind {
	case KindCheckoutCompleted:
		if e.Checkout.CustomerID != "" {
			return e.Checkout.CustomerID
		}
		return e.Checkout.UserID
	case KindSubscriptionDeleted, KindSubscriptionCreated, KindSubscriptionUpdated:
		return e.Subscription.CustomerID
	}
	return ""
}

type envelope struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

type checkoutObject struct {
	Mode           string `json:"mode"`
	CustomerID     string `json:"customer"`
	SubscriptionID string `json:"subscription"`
	Metadata       struct {
		UserID string `json:"userId"`
	} `json:"metadata"`
}

// ParseEvent turns a signature-verified raw body into a typed Event.
// Structural problems yield PAYLOAD_MALFORMED; an unknown kind is NOT an
// error here, it comes back with Known() == false so the dispatcher can
// acknowledge it without retry.
func ParseEvent(raw []byte) (*Event, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, errors.NewPayloadMalformedError(err.Error())
	}
	if env.ID == "" || env.Type == "" || env.Created == 0 {
		return nil, errors.NewPayloadMalformedError("missing id, type or created")
	}

	ev := &Event{
		ID:      env.ID,
		Kind:    Kind(env.Type),
		Created: env.Created,
	}
	if !ev.Known() {
		return ev, nil
	}

	if len(env.Data.Object) == 0 {
		return nil, errors.NewPayloadMalformedError("missing data.object")
	}
	if err := validateObjectSchema(ev.Kind, env.Data.Object); err != nil {
		return nil, err
	}

	switch ev.Kind {
	case KindCheckoutCompleted:
		var obj checkoutObject
		if err := json.Unmarshal(env.Data.Object, &obj); err != nil {
			return nil, errors.NewPayloadMalformedError(err.Error())
		}
		ev.Checkout = &CheckoutPayload{
			Mode:           obj.Mode,
			CustomerID:     obj.CustomerID,
			SubscriptionID: obj.SubscriptionID,
			UserID:         obj.Metadata.UserID,
		}
	case KindSubscriptionCreated, KindSubscriptionUpdated, KindSubscriptionDeleted:
		var obj SubscriptionPayload
		if err := json.Unmarshal(env.Data.Object, &obj); err != nil {
			return nil, errors.NewPayloadMalformedError(err.Error())
		}
		ev.Subscription = &obj
	}

	return ev, nil
}
