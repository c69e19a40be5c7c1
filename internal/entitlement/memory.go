package entitlement

import (
	"context"
	"sync"

	"github.com/Jperi24/nsfw-platform/internal/common/errors"
	"github.com/Jperi24/nsfw-platform/internal/models"
)

// MemoryStore is an in-memory Store used in tests and single-process dev
// setups. Records are cloned on the way in and out so callers can never
// mutate stored state except through CompareAndSwap.
type MemoryStore struct {
	mu         sync.RWMutex
	records    map[string]*models.MembershipRecord
	byCustomer map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:    make(map[string]*models.MembershipRecord),
		byCustomer: make(map[string]string),
	}
}

func (s *MemoryStore) Get(ctx context.Context, userID string) (*models.MembershipRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[userID]
	if !ok {
		return nil, errors.NewMembershipNotFoundError(userID)
	}
	return clone(rec), nil
}

func (s *MemoryStore) Create(ctx context.Context, rec *models.MembershipRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.UserID]; exists {
		return errors.NewQueryExecutionFailedError("create membership",
			errAlreadyExists(rec.UserID))
	}
	s.records[rec.UserID] = clone(rec)
	if rec.StripeCustomerID != "" {
		s.byCustomer[rec.StripeCustomerID] = rec.UserID
	}
	return nil
}

func (s *MemoryStore) CompareAndSwap(ctx context.Context, userID string, expectedSeq int64, rec *models.MembershipRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.records[userID]
	if !ok {
		return false, errors.NewMembershipNotFoundError(userID)
	}
	if current.LastEventSeq != expectedSeq {
		return false, nil
	}

	s.records[userID] = clone(rec)
	if rec.StripeCustomerID != "" {
		s.byCustomer[rec.StripeCustomerID] = userID
	}
	return true, nil
}

func (s *MemoryStore) FindByCustomerID(ctx context.Context, customerID string) (*models.MembershipRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	userID, ok := s.byCustomer[customerID]
	if !ok {
		return nil, errors.NewMembershipNotFoundError("customer:" + customerID)
	}
	return clone(s.records[userID]), nil
}

func clone(rec *models.MembershipRecord) *models.MembershipRecord {
	out := *rec
	if rec.SubscriptionID != nil {
		id := *rec.SubscriptionID
		out.SubscriptionID = &id
	}
	return &out
}

type errAlreadyExists string

func (e errAlreadyExists) Error() string {
	return "membership already exists for user " + string(e)
}
