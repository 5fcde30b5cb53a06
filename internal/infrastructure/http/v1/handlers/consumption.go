package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"fuelops/internal/core/apperror"
	"fuelops/internal/core/id"
	"fuelops/internal/domain/documents/consumption"
	"fuelops/internal/infrastructure/http/v1/dto"
	"fuelops/internal/infrastructure/storage/postgres"
)

// HistoryReader returns the audit trail of an entity, newest first.
type HistoryReader interface {
	GetEntityHistory(ctx context.Context, entityType string, entityID id.ID, limit int) ([]postgres.AuditEntry, error)
}

// ConsumptionHandler handles /consumption-records.
type ConsumptionHandler struct {
	*BaseHandler
	service *consumption.Service
	history HistoryReader
}

// NewConsumptionHandler creates a new consumption record handler.
func NewConsumptionHandler(base *BaseHandler, service *consumption.Service, history HistoryReader) *ConsumptionHandler {
	return &ConsumptionHandler{BaseHandler: base, service: service, history: history}
}

// Create handles POST /consumption-records and POST /kiosk/consumption-records.
func (h *ConsumptionHandler) Create(c *gin.Context) {
	var req dto.CreateConsumptionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	rec, res, err := h.service.Create(c.Request.Context(), h.Actor(c), req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromResolution(rec, res))
}

// Get handles GET /consumption-records/:id.
func (h *ConsumptionHandler) Get(c *gin.Context) {
	recordID, ok := h.ParseID(c)
	if !ok {
		return
	}
	rec, err := h.service.Get(c.Request.Context(), h.Actor(c), recordID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromRecord(rec))
}

// Update handles PUT /consumption-records/:id.
func (h *ConsumptionHandler) Update(c *gin.Context) {
	recordID, ok := h.ParseID(c)
	if !ok {
		return
	}
	var req dto.UpdateConsumptionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	rec, err := h.service.Update(c.Request.Context(), h.Actor(c), recordID, req.ToPatch())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromRecord(rec))
}

// Delete handles DELETE /consumption-records/:id.
func (h *ConsumptionHandler) Delete(c *gin.Context) {
	recordID, ok := h.ParseID(c)
	if !ok {
		return
	}
	if _, err := h.service.Delete(c.Request.Context(), h.Actor(c), recordID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// List handles GET /consumption-records.
func (h *ConsumptionHandler) List(c *gin.Context) {
	var q dto.ListConsumptionQuery
	if !h.BindQuery(c, &q) {
		return
	}

	filter := consumption.ListFilter{Limit: q.Limit, Offset: q.Offset}
	if q.MachineID != "" {
		machineID, err := id.Parse(q.MachineID)
		if err != nil {
			h.Error(c, apperror.NewValidation("machineId must be a UUID").WithDetail("field", "machineId"))
			return
		}
		filter.MachineID = &machineID
	}
	var err error
	if filter.DateFrom, err = parseDate("dateFrom", q.DateFrom); err != nil {
		h.Error(c, err)
		return
	}
	if filter.DateTo, err = parseDate("dateTo", q.DateTo); err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.service.List(c.Request.Context(), h.Actor(c), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.ListResponse{
		Items:      dto.FromRecords(result.Items),
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

// History handles GET /consumption-records/:id/history.
func (h *ConsumptionHandler) History(c *gin.Context) {
	recordID, ok := h.ParseID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	// Visibility follows the record itself.
	if _, err := h.service.Get(ctx, h.Actor(c), recordID); err != nil {
		h.Error(c, err)
		return
	}

	limit := h.ParseIntQuery(c, "limit", 50)
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	entries, err := h.history.GetEntityHistory(ctx, consumption.AggregateType, recordID, limit)
	if err != nil {
		h.Error(c, apperror.NewInternal(err))
		return
	}
	h.OK(c, gin.H{"items": entries})
}

// parseDate accepts RFC 3339 or a bare YYYY-MM-DD (UTC midnight).
func parseDate(field, raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, apperror.NewValidation(field+" must be a date").
			WithDetail("field", field).WithDetail("value", raw)
	}
	return &t, nil
}
