package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Jperi24/nsfw-platform/internal/common/errors"
	"github.com/Jperi24/nsfw-platform/internal/common/logger"
	"github.com/Jperi24/nsfw-platform/internal/content"
	"github.com/Jperi24/nsfw-platform/internal/entitlement"
	"github.com/Jperi24/nsfw-platform/internal/models"
)

// userHeader carries the authenticated user ID set by the edge proxy.
const userHeader = "X-User-ID"

// ContentHandler serves the content endpoints. Each request resolves the
// caller's membership record once and passes it down so every visibility
// decision in the request uses the same snapshot.
type ContentHandler struct {
	service *content.Service
	store   entitlement.Store
	errs    *errors.Handler
	logger  logger.Logger
}

func NewContentHandler(service *content.Service, store entitlement.Store, errs *errors.Handler, log logger.Logger) *ContentHandler {
	return &ContentHandler{
		service: service,
		store:   store,
		errs:    errs,
		logger:  log,
	}
}

// membership resolves the caller's record. Unknown or anonymous callers get
// a nil record and are treated as free-tier.
func (h *ContentHandler) membership(r *http.Request) *models.MembershipRecord {
	userID := r.Header.Get(userHeader)
	if userID == "" {
		return nil
	}
	rec, err := h.store.Get(r.Context(), userID)
	if err != nil {
		if !errors.IsCode(err, errors.ErrCodeMembershipNotFound) {
			h.logger.Warn("membership lookup failed", map[string]interface{}{
				"user_id": userID,
				"error":   err.Error(),
			})
		}
		return nil
	}
	return rec
}

func (h *ContentHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	rec := h.membership(r)
	filter := parseListFilter(r)

	items, total, err := h.service.ListItems(r.Context(), rec, filter)
	if err != nil {
		h.respondContentError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items": items,
		"total": total,
		"page":  filter.Page,
		"limit": filter.Limit,
	})
}

func (h *ContentHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	rec := h.membership(r)
	id := chi.URLParam(r, "id")

	item, err := h.service.GetItem(r.Context(), rec, id)
	if err != nil {
		h.respondContentError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

type createItemRequest struct {
	ModelID      string   `json:"modelId"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	FileURL      string   `json:"fileUrl"`
	ThumbnailURL string   `json:"thumbnailUrl"`
	ContentType  string   `json:"contentType"`
	IsPremium    bool     `json:"isPremium"`
	Tags         []string `json:"tags"`
}

func (h *ContentHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errs.RespondStatus(w, http.StatusBadRequest, errors.NewPayloadMalformedError("invalid request body"))
		return
	}
	if req.ModelID == "" || req.Title == "" {
		h.errs.RespondStatus(w, http.StatusBadRequest, errors.NewPayloadMalformedError("modelId and title are required"))
		return
	}

	item, err := h.service.CreateItem(r.Context(), content.CreateItemInput{
		ModelID:      req.ModelID,
		Title:        req.Title,
		Description:  req.Description,
		FileURL:      req.FileURL,
		ThumbnailURL: req.ThumbnailURL,
		ContentType:  models.ContentType(req.ContentType),
		IsPremium:    req.IsPremium,
		Tags:         req.Tags,
	})
	if err != nil {
		h.respondContentError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

type setPremiumRequest struct {
	IsPremium bool `json:"isPremium"`
}

func (h *ContentHandler) SetItemPremium(w http.ResponseWriter, r *http.Request) {
	var req setPremiumRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errs.RespondStatus(w, http.StatusBadRequest, errors.NewPayloadMalformedError("invalid request body"))
		return
	}

	item, err := h.service.SetItemPremium(r.Context(), chi.URLParam(r, "id"), req.IsPremium)
	if err != nil {
		h.respondContentError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *ContentHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteItem(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondContentError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ContentHandler) GetModel(w http.ResponseWriter, r *http.Request) {
	model, err := h.service.GetModel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondContentError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model)
}

// respondContentError maps domain errors onto content-serving HTTP
// semantics instead of the webhook acknowledgment protocol.
func (h *ContentHandler) respondContentError(w http.ResponseWriter, err error) {
	switch {
	case errors.IsCode(err, errors.ErrCodePremiumRequired):
		h.errs.RespondStatus(w, http.StatusForbidden, err)
	case errors.IsCode(err, errors.ErrCodeContentNotFound),
		errors.IsCode(err, errors.ErrCodeModelNotFound):
		h.errs.RespondStatus(w, http.StatusNotFound, err)
	case errors.IsCode(err, errors.ErrCodeAggregateInvariantViolation):
		h.errs.RespondStatus(w, http.StatusConflict, err)
	default:
		h.errs.RespondStatus(w, http.StatusInternalServerError, err)
	}
}

func parseListFilter(r *http.Request) content.ListFilter {
	q := r.URL.Query()
	filter := content.ListFilter{
		ModelID:     q.Get("modelId"),
		ContentType: models.ContentType(q.Get("contentType")),
		Page:        1,
		Limit:       20,
	}
	if v := q.Get("premium"); v != "" {
		if premium, err := strconv.ParseBool(v); err == nil {
			filter.Premium = &premium
		}
	}
	if v := q.Get("page"); v != "" {
		if page, err := strconv.Atoi(v); err == nil && page > 0 {
			filter.Page = page
		}
	}
	if v := q.Get("limit"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil && limit > 0 && limit <= 100 {
			filter.Limit = limit
		}
	}
	return filter
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
