package models

import "time"

// Tier is a user's membership classification.
type Tier string

const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
)

// MembershipRecord is the local copy of a user's membership state, kept in
// sync with the payment provider by the billing event pipeline. It is created
// free at registration and only ever transitioned, never deleted.
type MembershipRecord struct {
	UserID           string    `json:"userId"`
	Tier             Tier      `json:"tier"`
	StripeCustomerID string    `json:"stripeCustomerId,omitempty"`
	SubscriptionID   *string   `json:"subscriptionId"`
	// LastEventSeq is the provider timestamp (unix seconds) of the last
	// applied event. Events older than this are stale duplicates.
	LastEventSeq int64     `json:"lastEventSeq"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// IsPremium reports whether the record grants premium entitlement.
func (m *MembershipRecord) IsPremium() bool {
	return m != nil && m.Tier == TierPremium
}

// NewFreeMembership returns the record created for a freshly registered user.
func NewFreeMembership(userID, stripeCustomerID string) *MembershipRecord {
	now := time.Now().UTC()
	return &MembershipRecord{
		UserID:           userID,
		Tier:             TierFree,
		StripeCustomerID: stripeCustomerID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}
