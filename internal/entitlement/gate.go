package entitlement

import (
	"strconv"

	"github.com/Jperi24/nsfw-platform/internal/common/metrics"
	"github.com/Jperi24/nsfw-platform/internal/models"
)

// Gate is the synchronous read-only predicate consulted by every
// content-serving path. It never mutates state. Single-item fetches and bulk
// listings MUST agree for the same (user, item) pair, so FilterVisible is
// defined in terms of CanAccess rather than carrying its own logic.
type Gate struct{}

func NewGate() Gate {
	return Gate{}
}

// CanAccess reports whether the user holding rec may see item. A nil rec is
// an anonymous or unknown user and sees only non-premium content.
func (Gate) CanAccess(rec *models.MembershipRecord, item models.ContentItem) bool {
	allowed := !item.IsPremium || rec.IsPremium()
	metrics.GateDecisions.WithLabelValues(strconv.FormatBool(allowed)).Inc()
	return allowed
}

// FilterVisible returns the subset of items rec may see, preserving order.
// Premium items are excluded entirely for non-entitled callers, not returned
// with restricted fields.
func (g Gate) FilterVisible(rec *models.MembershipRecord, items []models.ContentItem) []models.ContentItem {
	visible := make([]models.ContentItem, 0, len(items))
	for _, item := range items {
		if g.CanAccess(rec, item) {
			visible = append(visible, item)
		}
	}
	return visible
}
