// internal/billing/event_test.go
package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jperi24/nsfw-platform/internal/common/errors"
)

func TestParseEvent_SubscriptionLifecycle(t *testing.T) {
	tests := []struct {
		name string
		kind Kind
	}{
		{name: "created", kind: KindSubscriptionCreated},
		{name: "updated", kind: KindSubscriptionUpdated},
		{name: "deleted", kind: KindSubscriptionDeleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := []byte(`{
				"id": "evt_sub",
				"type": "` + string(tt.kind) + `",
				"created": 1700000000,
				"data": {
					"object": {
						"id": "sub_42",
						"customer": "cus_42",
						"status": "active"
					}
				}
			}`)

			ev, err := ParseEvent(raw)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, ev.Kind)
			assert.Equal(t, int64(1700000000), ev.Created)
			require.NotNil(t, ev.Subscription)
			assert.Equal(t, "sub_42", ev.Subscription.SubscriptionID)
			assert.Equal(t, "cus_42", ev.Subscription.CustomerID)
			assert.Equal(t, "active", ev.Subscription.Status)
			assert.Equal(t, "cus_42", ev.CustomerKey())
		})
	}
}

func TestParseEvent_UnknownKindIsNotAnError(t *testing.T) {
	raw := []byte(`{
		"id": "evt_inv",
		"type": "invoice.paid",
		"created": 1700000000,
		"data": {"object": {}}
	}`)

	ev, err := ParseEvent(raw)
	require.NoError(t, err)
	assert.False(t, ev.Known())
	assert.Equal(t, "evt_inv", ev.ID)
}

func TestParseEvent_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "not json", raw: `{{{`},
		{name: "missing id", raw: `{"type":"checkout.session.completed","created":1,"data":{"object":{"mode":"subscription"}}}`},
		{name: "missing created", raw: `{"id":"evt_1","type":"checkout.session.completed","data":{"object":{"mode":"subscription"}}}`},
		{name: "missing data object", raw: `{"id":"evt_1","type":"checkout.session.completed","created":1}`},
		{name: "checkout missing mode", raw: `{"id":"evt_1","type":"checkout.session.completed","created":1,"data":{"object":{"customer":"cus_1"}}}`},
		{name: "subscription missing customer", raw: `{"id":"evt_1","type":"customer.subscription.updated","created":1,"data":{"object":{"id":"sub_1","status":"active"}}}`},
		{name: "subscription empty customer", raw: `{"id":"evt_1","type":"customer.subscription.updated","created":1,"data":{"object":{"id":"sub_1","customer":"","status":"active"}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := ParseEvent([]byte(tt.raw))
			assert.Nil(t, ev)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrCodePayloadMalformed))
			assert.False(t, errors.IsRetryable(err))
		})
	}
}

func TestEvent_CustomerKey_CheckoutFallback(t *testing.T) {
	ev := &Event{
		Kind: KindCheckoutCompleted,
		Checkout: &CheckoutPayload{
			Mode:   "subscription",
			UserID: "user-7",
		},
	}
	assert.Equal(t, "user-7", ev.CustomerKey())

	ev.Checkout.CustomerID = "cus_7"
	assert.Equal(t, "cus_7", ev.CustomerKey())
}
