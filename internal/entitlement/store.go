// Package entitlement owns the durable membership state and the read-only
// gate every content-serving path consults. The store is the single
// sanctioned mutation path for membership records; writers always read then
// compare-and-swap on the record's last applied event sequence.
package entitlement

import (
	"context"

	"github.com/Jperi24/nsfw-platform/internal/models"
)

// Store is the durable mapping of user identity to membership record.
type Store interface {
	// Get returns the record for a known user, or MEMBERSHIP_NOT_FOUND.
	Get(ctx context.Context, userID string) (*models.MembershipRecord, error)

	// Create inserts the initial free record at registration time.
	Create(ctx context.Context, rec *models.MembershipRecord) error

	// CompareAndSwap replaces the record only if its stored LastEventSeq
	// still equals expectedSeq. Returns false, nil when the record moved
	// underneath the caller; the caller re-reads and retries the whole
	// transition.
	CompareAndSwap(ctx context.Context, userID string, expectedSeq int64, rec *models.MembershipRecord) (bool, error)

	// FindByCustomerID resolves the payment provider's customer reference
	// to the local record, or MEMBERSHIP_NOT_FOUND when no user is linked.
	FindByCustomerID(ctx context.Context, customerID string) (*models.MembershipRecord, error)
}
