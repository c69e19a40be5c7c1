// internal/entitlement/postgres_test.go
package entitlement

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jperi24/nsfw-platform/internal/common/errors"
	"github.com/Jperi24/nsfw-platform/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

func createMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewPostgresStore(db), mock, func() { db.Close() }
}

func membershipRows(userID string, tier string, seq int64) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"user_id", "tier", "stripe_customer_id", "subscription_id",
		"last_event_seq", "created_at", "updated_at",
	}).AddRow(userID, tier, "cus_1", nil, seq, now, now)
}

// ==========================
// Store Tests
// ==========================

func TestPostgresStore_Get(t *testing.T) {
	store, mock, done := createMockStore(t)
	defer done()

	mock.ExpectQuery(`SELECT .+ FROM memberships WHERE user_id = \$1`).
		WithArgs("user-1").
		WillReturnRows(membershipRows("user-1", "premium", 100))

	rec, err := store.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.TierPremium, rec.Tier)
	assert.Equal(t, "cus_1", rec.StripeCustomerID)
	assert.Nil(t, rec.SubscriptionID)
	assert.Equal(t, int64(100), rec.LastEventSeq)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Get_NotFound(t *testing.T) {
	store, mock, done := createMockStore(t)
	defer done()

	mock.ExpectQuery(`SELECT .+ FROM memberships WHERE user_id = \$1`).
		WithArgs("nobody").
		WillReturnError(sql.ErrNoRows)

	rec, err := store.Get(context.Background(), "nobody")
	assert.Nil(t, rec)
	assert.True(t, errors.IsCode(err, errors.ErrCodeMembershipNotFound))
}

func TestPostgresStore_FindByCustomerID(t *testing.T) {
	store, mock, done := createMockStore(t)
	defer done()

	mock.ExpectQuery(`SELECT .+ FROM memberships WHERE stripe_customer_id = \$1`).
		WithArgs("cus_1").
		WillReturnRows(membershipRows("user-1", "free", 0))

	rec, err := store.FindByCustomerID(context.Background(), "cus_1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", rec.UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Create(t *testing.T) {
	store, mock, done := createMockStore(t)
	defer done()

	rec := models.NewFreeMembership("user-1", "cus_1")
	mock.ExpectExec(`INSERT INTO memberships`).
		WithArgs(rec.UserID, "free", "cus_1", nil, int64(0), rec.CreatedAt, rec.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Create(context.Background(), rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CompareAndSwap(t *testing.T) {
	tests := []struct {
		name        string
		rowsHit     int64
		wantSwapped bool
	}{
		{name: "expected sequence still current", rowsHit: 1, wantSwapped: true},
		{name: "record moved underneath", rowsHit: 0, wantSwapped: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock, done := createMockStore(t)
			defer done()

			sub := "sub_1"
			rec := &models.MembershipRecord{
				UserID:           "user-1",
				Tier:             models.TierPremium,
				StripeCustomerID: "cus_1",
				SubscriptionID:   &sub,
				LastEventSeq:     100,
			}

			mock.ExpectExec(`UPDATE memberships`).
				WithArgs("premium", "cus_1", "sub_1", int64(100), sqlmock.AnyArg(), "user-1", int64(0)).
				WillReturnResult(sqlmock.NewResult(0, tt.rowsHit))

			swapped, err := store.CompareAndSwap(context.Background(), "user-1", 0, rec)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSwapped, swapped)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresStore_QueryFailure(t *testing.T) {
	store, mock, done := createMockStore(t)
	defer done()

	mock.ExpectExec(`UPDATE memberships`).
		WillReturnError(sql.ErrConnDone)

	swapped, err := store.CompareAndSwap(context.Background(), "user-1", 0,
		models.NewFreeMembership("user-1", "cus_1"))
	assert.False(t, swapped)
	assert.True(t, errors.IsCode(err, errors.ErrCodeQueryExecutionFailed))
}
