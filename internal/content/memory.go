package content

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Jperi24/nsfw-platform/internal/common/errors"
	"github.com/Jperi24/nsfw-platform/internal/models"
)

// MemoryRepository is an in-memory Repository for tests and dev setups. One
// mutex covers items and counters so each mutating method is atomic, same as
// the Postgres transaction.
type MemoryRepository struct {
	mu       sync.RWMutex
	items    map[string]*models.ContentItem
	groupMdl map[string]*models.ContentModel
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		items:    make(map[string]*models.ContentItem),
		groupMdl: make(map[string]*models.ContentModel),
	}
}

// AddModel seeds a model aggregate. Intended for setup code.
func (r *MemoryRepository) AddModel(m *models.ContentModel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *m
	r.groupMdl[m.ID] = &cp
}

func (r *MemoryRepository) GetItem(ctx context.Context, id string) (*models.ContentItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok {
		return nil, errors.NewContentNotFoundError(id)
	}
	cp := *item
	return &cp, nil
}

func (r *MemoryRepository) ListItems(ctx context.Context, filter ListFilter) ([]models.ContentItem, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := []models.ContentItem{}
	for _, item := range r.items {
		if filter.ModelID != "" && item.ModelID != filter.ModelID {
			continue
		}
		if filter.ContentType != "" && item.ContentType != filter.ContentType {
			continue
		}
		if filter.Premium != nil && item.IsPremium != *filter.Premium {
			continue
		}
		matched = append(matched, *item)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (r *MemoryRepository) CreateItem(ctx context.Context, item *models.ContentItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	premiumDelta := 0
	if item.IsPremium {
		premiumDelta = 1
	}
	if err := r.applyDeltaLocked(item.ModelID, 1, premiumDelta); err != nil {
		return err
	}
	cp := *item
	r.items[item.ID] = &cp
	return nil
}

func (r *MemoryRepository) SetItemPremium(ctx context.Context, id string, premium bool) (*models.ContentItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok {
		return nil, errors.NewContentNotFoundError(id)
	}
	if item.IsPremium == premium {
		cp := *item
		return &cp, nil
	}

	premiumDelta := -1
	if premium {
		premiumDelta = 1
	}
	if err := r.applyDeltaLocked(item.ModelID, 0, premiumDelta); err != nil {
		return nil, err
	}
	item.IsPremium = premium
	item.UpdatedAt = time.Now().UTC()
	cp := *item
	return &cp, nil
}

func (r *MemoryRepository) DeleteItem(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok {
		return errors.NewContentNotFoundError(id)
	}
	premiumDelta := 0
	if item.IsPremium {
		premiumDelta = -1
	}
	if err := r.applyDeltaLocked(item.ModelID, -1, premiumDelta); err != nil {
		return err
	}
	delete(r.items, id)
	return nil
}

func (r *MemoryRepository) GetModel(ctx context.Context, id string) (*models.ContentModel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.groupMdl[id]
	if !ok {
		return nil, errors.NewModelNotFoundError(id)
	}
	cp := *m
	return &cp, nil
}

func (r *MemoryRepository) ApplyDelta(ctx context.Context, modelID string, totalDelta, premiumDelta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.applyDeltaLocked(modelID, totalDelta, premiumDelta)
}

func (r *MemoryRepository) applyDeltaLocked(modelID string, totalDelta, premiumDelta int) error {
	m, ok := r.groupMdl[modelID]
	if !ok {
		return errors.NewModelNotFoundError(modelID)
	}

	newTotal := m.ContentCount + totalDelta
	newPremium := m.PremiumContentCount + premiumDelta
	if newTotal < 0 || newPremium < 0 || newPremium > newTotal {
		return errors.NewAggregateInvariantViolationError(modelID, totalDelta, premiumDelta)
	}

	m.ContentCount = newTotal
	m.PremiumContentCount = newPremium
	m.UpdatedAt = time.Now().UTC()
	return nil
}
