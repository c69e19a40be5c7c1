// internal/billing/verifier_test.go
package billing

import (
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jperi24/nsfw-platform/internal/common/errors"
)

const testSecret = "whsec_test_secret"

// ==========================
// Test Helper Functions
// ==========================

func createTestVerifier(now time.Time) *Verifier {
	v := NewVerifier(testSecret, 5*time.Minute)
	v.now = func() time.Time { return now }
	return v
}

func checkoutBody(eventID string, created int64) []byte {
	return []byte(fmt.Sprintf(`{
		"id": %q,
		"type": "checkout.session.completed",
		"created": %d,
		"data": {
			"object": {
				"mode": "subscription",
				"customer": "cus_123",
				"subscription": "sub_1",
				"metadata": {"userId": "user-1"}
			}
		}
	}`, eventID, created))
}

// ==========================
// Core Functionality Tests
// ==========================

func TestVerifier_Verify_Success(t *testing.T) {
	now := time.Now()
	v := createTestVerifier(now)
	payload := checkoutBody("evt_1", now.Unix())

	ev, err := v.Verify(payload, SignPayload(testSecret, now, payload))
	require.NoError(t, err)

	assert.Equal(t, "evt_1", ev.ID)
	assert.Equal(t, KindCheckoutCompleted, ev.Kind)
	require.NotNil(t, ev.Checkout)
	assert.Equal(t, "cus_123", ev.Checkout.CustomerID)
	assert.Equal(t, "sub_1", ev.Checkout.SubscriptionID)
	assert.Equal(t, "user-1", ev.Checkout.UserID)
}

func TestVerifier_Verify_MultipleSignatures(t *testing.T) {
	now := time.Now()
	v := createTestVerifier(now)
	payload := checkoutBody("evt_2", now.Unix())

	// A signature from a rotated-out secret comes first; the valid one
	// must still match.
	stale := hex.EncodeToString(computeSignature([]byte("whsec_old_secret"), now.Unix(), payload))
	good := hex.EncodeToString(computeSignature([]byte(testSecret), now.Unix(), payload))
	header := fmt.Sprintf("t=%d,v1=%s,v1=%s", now.Unix(), stale, good)

	ev, err := v.Verify(payload, header)
	require.NoError(t, err)
	assert.Equal(t, "evt_2", ev.ID)
}

func TestVerifier_Verify_Failures(t *testing.T) {
	now := time.Now()
	payload := checkoutBody("evt_3", now.Unix())

	tests := []struct {
		name   string
		header func() string
	}{
		{
			name:   "missing header",
			header: func() string { return "" },
		},
		{
			name: "wrong secret",
			header: func() string {
				return SignPayload("whsec_wrong", now, payload)
			},
		},
		{
			name: "timestamp too old",
			header: func() string {
				return SignPayload(testSecret, now.Add(-10*time.Minute), payload)
			},
		},
		{
			name: "timestamp in the future",
			header: func() string {
				return SignPayload(testSecret, now.Add(10*time.Minute), payload)
			},
		},
		{
			name: "tampered payload",
			header: func() string {
				return SignPayload(testSecret, now, []byte(`{"id":"evt_other"}`))
			},
		},
		{
			name: "no v1 entries",
			header: func() string {
				return fmt.Sprintf("t=%d", now.Unix())
			},
		},
		{
			name: "garbage header",
			header: func() string {
				return "not-a-signature"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := createTestVerifier(now)
			ev, err := v.Verify(payload, tt.header())
			assert.Nil(t, ev)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrCodeSignatureInvalid))
			assert.False(t, errors.IsRetryable(err))
		})
	}
}

func TestVerifier_Verify_CorruptV1EntrySkipped(t *testing.T) {
	now := time.Now()
	v := createTestVerifier(now)
	payload := checkoutBody("evt_4", now.Unix())

	header := SignPayload(testSecret, now, payload) + ",v1=zznothex"
	ev, err := v.Verify(payload, header)
	require.NoError(t, err)
	assert.Equal(t, "evt_4", ev.ID)
}

func TestVerifier_Verify_MalformedBodyAfterValidSignature(t *testing.T) {
	now := time.Now()
	v := createTestVerifier(now)
	payload := []byte(`{"id": "evt_5"`)

	ev, err := v.Verify(payload, SignPayload(testSecret, now, payload))
	assert.Nil(t, ev)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodePayloadMalformed))
}
