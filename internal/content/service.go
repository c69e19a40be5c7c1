package content

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Jperi24/nsfw-platform/internal/common/errors"
	"github.com/Jperi24/nsfw-platform/internal/common/logger"
	"github.com/Jperi24/nsfw-platform/internal/entitlement"
	"github.com/Jperi24/nsfw-platform/internal/models"
)

// Service applies entitlement checks on top of the Repository. All
// visibility decisions go through the gate so single fetches and listings
// cannot disagree about the same item.
type Service struct {
	repo   Repository
	gate   entitlement.Gate
	logger logger.Logger
}

func NewService(repo Repository, gate entitlement.Gate, log logger.Logger) *Service {
	return &Service{
		repo:   repo,
		gate:   gate,
		logger: log,
	}
}

// CreateItemInput carries the caller-supplied fields of a new item. ID and
// timestamps are assigned here.
type CreateItemInput struct {
	ModelID      string
	Title        string
	Description  string
	FileURL      string
	ThumbnailURL string
	ContentType  models.ContentType
	IsPremium    bool
	Tags         []string
}

// GetItem fetches a single item for the user holding rec. Premium items
// are denied to non-entitled callers with PREMIUM_REQUIRED rather than
// returned with fields stripped.
func (s *Service) GetItem(ctx context.Context, rec *models.MembershipRecord, id string) (*models.ContentItem, error) {
	item, err := s.repo.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.gate.CanAccess(rec, *item) {
		s.logger.Debug("premium content denied", map[string]interface{}{
			"content_id": id,
		})
		return nil, errors.NewPremiumRequiredError()
	}
	return item, nil
}

// ListItems lists items visible to the user holding rec. For non-entitled
// callers the premium filter is narrowed to free content before the query
// runs, so the returned total matches what the gate would let through.
func (s *Service) ListItems(ctx context.Context, rec *models.MembershipRecord, filter ListFilter) ([]models.ContentItem, int, error) {
	if !rec.IsPremium() {
		if filter.Premium != nil && *filter.Premium {
			// An explicit request for the premium set is an access attempt,
			// not a narrowing filter, and is denied the same way a single
			// premium fetch is.
			return nil, 0, errors.NewPremiumRequiredError()
		}
		freeOnly := false
		filter.Premium = &freeOnly
	}

	items, total, err := s.repo.ListItems(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return s.gate.FilterVisible(rec, items), total, nil
}

func (s *Service) CreateItem(ctx context.Context, in CreateItemInput) (*models.ContentItem, error) {
	now := time.Now().UTC()
	item := &models.ContentItem{
		ID:           uuid.New().String(),
		ModelID:      in.ModelID,
		Title:        in.Title,
		Description:  in.Description,
		FileURL:      in.FileURL,
		ThumbnailURL: in.ThumbnailURL,
		ContentType:  in.ContentType,
		IsPremium:    in.IsPremium,
		Tags:         in.Tags,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.CreateItem(ctx, item); err != nil {
		return nil, err
	}
	s.logger.Info("content item created", map[string]interface{}{
		"content_id": item.ID,
		"model_id":   item.ModelID,
		"is_premium": item.IsPremium,
	})
	return item, nil
}

func (s *Service) SetItemPremium(ctx context.Context, id string, premium bool) (*models.ContentItem, error) {
	item, err := s.repo.SetItemPremium(ctx, id, premium)
	if err != nil {
		return nil, err
	}
	s.logger.Info("content premium flag updated", map[string]interface{}{
		"content_id": id,
		"is_premium": premium,
	})
	return item, nil
}

func (s *Service) DeleteItem(ctx context.Context, id string) error {
	if err := s.repo.DeleteItem(ctx, id); err != nil {
		return err
	}
	s.logger.Info("content item deleted", map[string]interface{}{
		"content_id": id,
	})
	return nil
}

func (s *Service) GetModel(ctx context.Context, id string) (*models.ContentModel, error) {
	return s.repo.GetModel(ctx, id)
}
