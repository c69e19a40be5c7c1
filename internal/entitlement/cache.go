package entitlement

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Jperi24/nsfw-platform/internal/common/logger"
	"github.com/Jperi24/nsfw-platform/internal/models"

	"github.com/redis/go-redis/v9"
)

// CachedStore is a read-through Redis cache in front of another Store.
// Gate reads dominate this service's traffic; caching Get keeps them off
// Postgres. Every committed write invalidates the cached entry, so a reader
// sees at worst the previous committed record, never an uncommitted one.
type CachedStore struct {
	inner  Store
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedStore(inner Store, client *redis.Client, ttl time.Duration, log logger.Logger) *CachedStore {
	return &CachedStore{
		inner:  inner,
		client: client,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "membership-cache"}),
	}
}

func cacheKey(userID string) string {
	return "membership:" + userID
}

func (s *CachedStore) Get(ctx context.Context, userID string) (*models.MembershipRecord, error) {
	if val, err := s.client.Get(ctx, cacheKey(userID)).Result(); err == nil {
		var rec models.MembershipRecord
		if err := json.Unmarshal([]byte(val), &rec); err == nil {
			return &rec, nil
		}
	}

	rec, err := s.inner.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(rec); err == nil {
		if err := s.client.Set(ctx, cacheKey(userID), data, s.ttl).Err(); err != nil {
			s.logger.Warn("cache set failed", map[string]interface{}{
				"userId": userID,
				"error":  err.Error(),
			})
		}
	}
	return rec, nil
}

func (s *CachedStore) Create(ctx context.Context, rec *models.MembershipRecord) error {
	if err := s.inner.Create(ctx, rec); err != nil {
		return err
	}
	s.invalidate(ctx, rec.UserID)
	return nil
}

func (s *CachedStore) CompareAndSwap(ctx context.Context, userID string, expectedSeq int64, rec *models.MembershipRecord) (bool, error) {
	swapped, err := s.inner.CompareAndSwap(ctx, userID, expectedSeq, rec)
	if swapped {
		s.invalidate(ctx, userID)
	}
	return swapped, err
}

func (s *CachedStore) FindByCustomerID(ctx context.Context, customerID string) (*models.MembershipRecord, error) {
	// Customer lookups only happen on the event path; not worth caching.
	return s.inner.FindByCustomerID(ctx, customerID)
}

func (s *CachedStore) invalidate(ctx context.Context, userID string) {
	if err := s.client.Del(ctx, cacheKey(userID)).Err(); err != nil {
		s.logger.Warn("cache invalidation failed", map[string]interface{}{
			"userId": userID,
			"error":  err.Error(),
		})
	}
}
