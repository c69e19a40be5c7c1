// internal/content/service_test.go
package content

import (
	"context"
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

func createTestService(t *testing.T) (*Service, *MemoryRepository) {
	repo := NewMemoryRepository()
	seedModel(repo, "m1")
	svc := NewService(repo, entitlement.NewGate(), logger.NewTestLogger(t))
	return svc, repo
}

func premiumUser() *models.MembershipRecord {
	return &models.MembershipRecord{UserID: "user-p", Tier: models.TierPremium}
}

func freeUser() *models.MembershipRecord {
	return &models.MembershipRecord{UserID: "user-f", Tier: models.TierFree}
}

// ==========================
// Service Tests
// ==========================

func TestService_GetItem(t *testing.T) {
	svc, repo := createTestService(t)
	ctx := context.Background()
	require.NoError(t, repo.CreateItem(ctx, testItem("c-free", "m1", false)))
	require.NoError(t, repo.CreateItem(ctx, testItem("c-prem", "m1", true)))

	tests := []struct {
		name     string
		rec      *models.MembershipRecord
		itemID   string
		wantCode errors.ErrorCode
	}{
		{name: "premium user fetches premium item", rec: premiumUser(), itemID: "c-prem"},
		{name: "free user fetches free item", rec: freeUser(), itemID: "c-free"},
		{name: "free user denied premium item", rec: freeUser(), itemID: "c-prem", wantCode: errors.ErrCodePremiumRequired},
		{name: "anonymous denied premium item", rec: nil, itemID: "c-prem", wantCode: errors.ErrCodePremiumRequired},
		{name: "missing item", rec: premiumUser(), itemID: "ghost", wantCode: errors.ErrCodeContentNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item, err := svc.GetItem(ctx, tt.rec, tt.itemID)
			if tt.wantCode != "" {
				assert.Nil(t, item)
				assert.True(t, errors.IsCode(err, tt.wantCode))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.itemID, item.ID)
		})
	}
}

func TestService_ListItems_FreeUserSeesOnlyFree(t *testing.T) {
	svc, repo := createTestService(t)
	ctx := context.Background()
	require.NoError(t, repo.CreateItem(ctx, testItem("c1", "m1", false)))
	require.NoError(t, repo.CreateItem(ctx, testItem("c2", "m1", true)))
	require.NoError(t, repo.CreateItem(ctx, testItem("c3", "m1", false)))

	items, total, err := svc.ListItems(ctx, freeUser(), ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	for _, item := range items {
		assert.False(t, item.IsPremium)
	}
}

func TestService_ListItems_PremiumUserSeesEverything(t *testing.T) {
	svc, repo := createTestService(t)
	ctx := context.Background()
	require.NoError(t, repo.CreateItem(ctx, testItem("c1", "m1", false)))
	require.NoError(t, repo.CreateItem(ctx, testItem("c2", "m1", true)))

	items, total, err := svc.ListItems(ctx, premiumUser(), ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, items, 2)
}

func TestService_ListItems_FreeUserExplicitPremiumFilterDenied(t *testing.T) {
	svc, repo := createTestService(t)
	ctx := context.Background()
	require.NoError(t, repo.CreateItem(ctx, testItem("c1", "m1", true)))

	premium := true
	for _, rec := range []*models.MembershipRecord{freeUser(), nil} {
		items, total, err := svc.ListItems(ctx, rec, ListFilter{Premium: &premium})
		assert.Nil(t, items)
		assert.Zero(t, total)
		assert.True(t, errors.IsCode(err, errors.ErrCodePremiumRequired))
	}
}

// The count a caller sees matches the items they can actually fetch.
func TestService_ListAndGetAgree(t *testing.T) {
	svc, repo := createTestService(t)
	ctx := context.Background()
	require.NoError(t, repo.CreateItem(ctx, testItem("c1", "m1", false)))
	require.NoError(t, repo.CreateItem(ctx, testItem("c2", "m1", true)))
	require.NoError(t, repo.CreateItem(ctx, testItem("c3", "m1", true)))

	for _, rec := range []*models.MembershipRecord{nil, freeUser(), premiumUser()} {
		items, _, err := svc.ListItems(ctx, rec, ListFilter{})
		require.NoError(t, err)
		for _, item := range items {
			_, err := svc.GetItem(ctx, rec, item.ID)
			assert.NoError(t, err)
		}
	}
}

func TestService_CreateItem_AssignsIDAndTimestamps(t *testing.T) {
	svc, repo := createTestService(t)
	ctx := context.Background()

	item, err := svc.CreateItem(ctx, CreateItemInput{
		ModelID:     "m1",
		Title:       "first post",
		FileURL:     "https://cdn/file",
		ContentType: models.ContentTypeImage,
		IsPremium:   true,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, item.ID)
	assert.False(t, item.CreatedAt.IsZero())

	m, err := repo.GetModel(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, 1, m.ContentCount)
	assert.Equal(t, 1, m.PremiumContentCount)
}

func TestService_DeleteItem(t *testing.T) {
	svc, repo := createTestService(t)
	ctx := context.Background()
	require.NoError(t, repo.CreateItem(ctx, testItem("c1", "m1", false)))

	require.NoError(t, svc.DeleteItem(ctx, "c1"))
	_, err := repo.GetItem(ctx, "c1")
	assert.True(t, errors.IsCode(err, errors.ErrCodeContentNotFound))
}
