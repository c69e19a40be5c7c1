package entitlement

import (
	"context"
	"database/sql"
	goerrors "errors"
	"time"

	"github.com/Jperi24/nsfw-platform/internal/common/errors"
	"github.com/Jperi24/nsfw-platform/internal/models"
)

// PostgresStore is the durable Store backed by the memberships table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const membershipColumns = `user_id, tier, stripe_customer_id, subscription_id, last_event_seq, created_at, updated_at`

func (s *PostgresStore) Get(ctx context.Context, userID string) (*models.MembershipRecord, error) {
	query := `SELECT ` + membershipColumns + ` FROM memberships WHERE user_id = $1`
	return s.scanOne(s.db.QueryRowContext(ctx, query, userID), userID)
}

func (s *PostgresStore) FindByCustomerID(ctx context.Context, customerID string) (*models.MembershipRecord, error) {
	query := `SELECT ` + membershipColumns + ` FROM memberships WHERE stripe_customer_id = $1`
	return s.scanOne(s.db.QueryRowContext(ctx, query, customerID), "customer:"+customerID)
}

func (s *PostgresStore) Create(ctx context.Context, rec *models.MembershipRecord) error {
	query := `INSERT INTO memberships (` + membershipColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := s.db.ExecContext(ctx, query,
		rec.UserID, string(rec.Tier), nullableStr(rec.StripeCustomerID), rec.SubscriptionID,
		rec.LastEventSeq, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return errors.NewQueryExecutionFailedError("create membership", err)
	}
	return nil
}

// CompareAndSwap is a single conditional UPDATE keyed on the previously read
// event sequence. Zero rows affected means another writer got there first.
func (s *PostgresStore) CompareAndSwap(ctx context.Context, userID string, expectedSeq int64, rec *models.MembershipRecord) (bool, error) {
	query := `UPDATE memberships
		SET tier = $1, stripe_customer_id = COALESCE($2, stripe_customer_id),
		    subscription_id = $3, last_event_seq = $4, updated_at = $5
		WHERE user_id = $6 AND last_event_seq = $7`

	res, err := s.db.ExecContext(ctx, query,
		string(rec.Tier), nullableStr(rec.StripeCustomerID), rec.SubscriptionID,
		rec.LastEventSeq, time.Now().UTC(), userID, expectedSeq,
	)
	if err != nil {
		return false, errors.NewQueryExecutionFailedError("cas membership", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.NewQueryExecutionFailedError("cas membership", err)
	}
	return n == 1, nil
}

func (s *PostgresStore) scanOne(row *sql.Row, who string) (*models.MembershipRecord, error) {
	var rec models.MembershipRecord
	var tier string
	var customerID sql.NullString
	var subscriptionID sql.NullString

	err := row.Scan(&rec.UserID, &tier, &customerID, &subscriptionID,
		&rec.LastEventSeq, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if goerrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewMembershipNotFoundError(who)
		}
		return nil, errors.NewQueryExecutionFailedError("get membership", err)
	}

	rec.Tier = models.Tier(tier)
	if customerID.Valid {
		rec.StripeCustomerID = customerID.String
	}
	if subscriptionID.Valid {
		rec.SubscriptionID = &subscriptionID.String
	}
	return &rec, nil
}

func nullableStr(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
