// internal/billing/service_test.go
package billing

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jperi24/nsfw-platform/internal/common/errors"
	"github.com/Jperi24/nsfw-platform/internal/common/logger"
	"github.com/Jperi24/nsfw-platform/internal/entitlement"
	"github.com/Jperi24/nsfw-platform/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

type recordingNotifier struct {
	mu      sync.Mutex
	effects []SideEffect
}

func (n *recordingNotifier) TierChanged(_ context.Context, effect SideEffect) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.effects = append(n.effects, effect)
	return nil
}

func (n *recordingNotifier) recorded() []SideEffect {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]SideEffect(nil), n.effects...)
}

func createTestApplier(t *testing.T, store entitlement.Store) (*Applier, *recordingNotifier) {
	notifier := &recordingNotifier{}
	applier := NewApplier(store, DefaultStatusPolicy(), notifier, logger.NewTestLogger(t), 3)
	return applier, notifier
}

func seedMembership(t *testing.T, store entitlement.Store, userID, customerID string) {
	t.Helper()
	require.NoError(t, store.Create(context.Background(), models.NewFreeMembership(userID, customerID)))
}

// ==========================
// Apply Tests
// ==========================

func TestApplier_Apply_CheckoutGrantsPremium(t *testing.T) {
	store := entitlement.NewMemoryStore()
	seedMembership(t, store, "user-1", "cus_1")
	applier, notifier := createTestApplier(t, store)

	outcome, err := applier.Apply(context.Background(), checkoutEvent("evt_1", 100))
	require.NoError(t, err)
	require.True(t, outcome.Applied)

	rec, err := store.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.TierPremium, rec.Tier)
	require.NotNil(t, rec.SubscriptionID)
	assert.Equal(t, "sub_1", *rec.SubscriptionID)
	assert.Equal(t, int64(100), rec.LastEventSeq)

	effects := notifier.recorded()
	require.Len(t, effects, 1)
	assert.Equal(t, models.TierPremium, effects[0].ToTier)
}

func TestApplier_Apply_ResolvesByCustomerID(t *testing.T) {
	store := entitlement.NewMemoryStore()
	seedMembership(t, store, "user-1", "cus_1")
	applier, _ := createTestApplier(t, store)

	ev := subscriptionEvent("evt_1", KindSubscriptionCreated, 100, "active")
	outcome, err := applier.Apply(context.Background(), ev)
	require.NoError(t, err)
	require.True(t, outcome.Applied)

	rec, err := store.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.TierPremium, rec.Tier)
}

func TestApplier_Apply_DeletionRevokes(t *testing.T) {
	store := entitlement.NewMemoryStore()
	seedMembership(t, store, "user-1", "cus_1")
	applier, _ := createTestApplier(t, store)

	_, err := applier.Apply(context.Background(), subscriptionEvent("evt_1", KindSubscriptionCreated, 100, "active"))
	require.NoError(t, err)

	outcome, err := applier.Apply(context.Background(), subscriptionEvent("evt_2", KindSubscriptionDeleted, 200, "canceled"))
	require.NoError(t, err)
	require.True(t, outcome.Applied)

	rec, err := store.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.TierFree, rec.Tier)
	assert.Nil(t, rec.SubscriptionID)
}

func TestApplier_Apply_StaleEventDroppedNotErrored(t *testing.T) {
	store := entitlement.NewMemoryStore()
	seedMembership(t, store, "user-1", "cus_1")
	applier, notifier := createTestApplier(t, store)

	_, err := applier.Apply(context.Background(), subscriptionEvent("evt_2", KindSubscriptionCreated, 200, "active"))
	require.NoError(t, err)

	// An out-of-order deletion with an older timestamp is acknowledged as a
	// no-op; premium survives.
	outcome, err := applier.Apply(context.Background(), subscriptionEvent("evt_1", KindSubscriptionDeleted, 100, "canceled"))
	require.NoError(t, err)
	assert.False(t, outcome.Applied)
	assert.Equal(t, ReasonStale, outcome.Reason)

	rec, err := store.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.TierPremium, rec.Tier)
	assert.Len(t, notifier.recorded(), 1)
}

func TestApplier_Apply_PaymentModeCheckoutAckedWithoutLookup(t *testing.T) {
	store := entitlement.NewMemoryStore()
	applier, notifier := createTestApplier(t, store)

	// No membership exists anywhere. A one-off payment checkout must still
	// be acknowledged as a no-op, never surfaced as an unresolved customer.
	ev := checkoutEvent("evt_1", 100)
	ev.Checkout.Mode = "payment"
	ev.Checkout.UserID = "ghost-user"

	outcome, err := applier.Apply(context.Background(), ev)
	require.NoError(t, err)
	require.NotNil(t, outcome)
	assert.False(t, outcome.Applied)
	assert.Equal(t, ReasonIgnoredMode, outcome.Reason)
	assert.Empty(t, notifier.recorded())
}

func TestApplier_Apply_UnresolvedCustomer(t *testing.T) {
	store := entitlement.NewMemoryStore()
	applier, _ := createTestApplier(t, store)

	tests := []struct {
		name string
		ev   *Event
	}{
		{
			name: "unknown user in checkout metadata",
			ev:   checkoutEvent("evt_1", 100),
		},
		{
			name: "unknown provider customer",
			ev:   subscriptionEvent("evt_2", KindSubscriptionUpdated, 100, "active"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome, err := applier.Apply(context.Background(), tt.ev)
			assert.Nil(t, outcome)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrCodeCustomerUnresolved))
			assert.True(t, errors.IsRetryable(err))
		})
	}
}

func TestApplier_Apply_RetriesOnCASConflict(t *testing.T) {
	store := &conflictingStore{Store: entitlement.NewMemoryStore(), conflicts: 2}
	seedMembership(t, store, "user-1", "cus_1")
	applier, _ := createTestApplier(t, store)

	outcome, err := applier.Apply(context.Background(), subscriptionEvent("evt_1", KindSubscriptionCreated, 100, "active"))
	require.NoError(t, err)
	require.True(t, outcome.Applied)
	assert.Zero(t, store.conflicts)
}

func TestApplier_Apply_CASRetriesExhausted(t *testing.T) {
	store := &conflictingStore{Store: entitlement.NewMemoryStore(), conflicts: 100}
	seedMembership(t, store, "user-1", "cus_1")
	applier, _ := createTestApplier(t, store)

	outcome, err := applier.Apply(context.Background(), subscriptionEvent("evt_1", KindSubscriptionCreated, 100, "active"))
	assert.Nil(t, outcome)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeConcurrentUpdateExhausted))
	assert.True(t, errors.IsRetryable(err))
}

// conflictingStore fails the first n CompareAndSwap calls the way a lost
// optimistic-concurrency race does, then delegates.
type conflictingStore struct {
	entitlement.Store
	conflicts int
}

func (s *conflictingStore) CompareAndSwap(ctx context.Context, userID string, expectedSeq int64, rec *models.MembershipRecord) (bool, error) {
	if s.conflicts > 0 {
		s.conflicts--
		return false, nil
	}
	return s.Store.CompareAndSwap(ctx, userID, expectedSeq, rec)
}
