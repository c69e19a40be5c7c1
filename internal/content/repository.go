// Package content manages content items and the per-model aggregate
// counters. Item mutations and counter deltas commit together; the counters
// are never adjusted as two independent increments, so no reader observes
// premiumContentCount > contentCount.
package content

import (
	"context"

	"github.com/Jperi24/nsfw-platform/internal/models"
)

// ListFilter narrows a content listing. Zero values mean "no constraint".
type ListFilter struct {
	ModelID     string
	ContentType models.ContentType
	// Premium filters on the item flag when set.
	Premium *bool
	Page    int
	Limit   int
}

// Repository is the storage contract for content items and their model
// aggregates. Every mutating method is atomic: either the item change and
// its counter delta both commit, or neither does.
type Repository interface {
	GetItem(ctx context.Context, id string) (*models.ContentItem, error)
	ListItems(ctx context.Context, filter ListFilter) ([]models.ContentItem, int, error)

	// CreateItem inserts the item and applies (+1, +1 if premium) to its
	// model's counters in the same transaction.
	CreateItem(ctx context.Context, item *models.ContentItem) error

	// SetItemPremium flips the premium flag and applies (0, +/-1) when the
	// flag actually changed. Returns the updated item.
	SetItemPremium(ctx context.Context, id string, premium bool) (*models.ContentItem, error)

	// DeleteItem removes the item and applies the negated creation delta.
	DeleteItem(ctx context.Context, id string) error

	GetModel(ctx context.Context, id string) (*models.ContentModel, error)

	// ApplyDelta adjusts both counters as one combined conditional update.
	// Deltas that would drive either counter negative or premium above
	// total fail with AGGREGATE_INVARIANT_VIOLATION and commit nothing.
	ApplyDelta(ctx context.Context, modelID string, totalDelta, premiumDelta int) error
}
