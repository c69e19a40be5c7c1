package models

import "time"

// ContentType discriminates the media kind of an item.
type ContentType string

const (
	ContentTypeImage ContentType = "image"
	ContentTypeVideo ContentType = "video"
)

// ContentItem is a single piece of content owned by a model. The file and
// thumbnail URLs are opaque storage references; this service never interprets
// them.
type ContentItem struct {
	ID           string      `json:"id"`
	ModelID      string      `json:"modelId"`
	Title        string      `json:"title"`
	Description  string      `json:"description,omitempty"`
	FileURL      string      `json:"fileUrl"`
	ThumbnailURL string      `json:"thumbnailUrl"`
	ContentType  ContentType `json:"contentType"`
	IsPremium    bool        `json:"isPremium"`
	Tags         []string    `json:"tags,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// ContentModel is the content-grouping entity. ContentCount and
// PremiumContentCount are denormalized counters kept consistent with the
// items referencing the model: contentCount equals the number of items,
// premiumContentCount the number of those flagged premium, and
// 0 <= premiumContentCount <= contentCount always holds.
type ContentModel struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	Description         string    `json:"description"`
	ThumbnailURL        string    `json:"thumbnailUrl"`
	ContentCount        int       `json:"contentCount"`
	PremiumContentCount int       `json:"premiumContentCount"`
	Tags                []string  `json:"tags,omitempty"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}
