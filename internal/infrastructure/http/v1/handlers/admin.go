package handlers

import (
	"github.com/gin-gonic/gin"

	"fuelops/internal/domain/ledger"
	"fuelops/internal/infrastructure/http/v1/dto"
)

// AdminHandler exposes operational views for super-admins.
type AdminHandler struct {
	*BaseHandler
	replayer *ledger.Replayer
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(base *BaseHandler, replayer *ledger.Replayer) *AdminHandler {
	return &AdminHandler{BaseHandler: base, replayer: replayer}
}

// ListGaps handles GET /admin/reconciliation-gaps.
func (h *AdminHandler) ListGaps(c *gin.Context) {
	var q dto.ListGapsQuery
	if !h.BindQuery(c, &q) {
		return
	}
	if q.Limit <= 0 || q.Limit > 500 {
		q.Limit = 100
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	gaps, err := h.replayer.List(c.Request.Context(), ledger.GapFilter{
		Status: ledger.GapStatus(q.Status),
		Limit:  q.Limit,
		Offset: q.Offset,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"items": gaps, "limit": q.Limit, "offset": q.Offset})
}
