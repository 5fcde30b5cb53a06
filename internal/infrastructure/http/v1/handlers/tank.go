package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"fuelops/internal/core/apperror"
	"fuelops/internal/core/id"
	"fuelops/internal/core/types"
	"fuelops/internal/domain"
	"fuelops/internal/domain/catalogs/machine"
	"fuelops/internal/domain/catalogs/tank"
	"fuelops/internal/infrastructure/http/v1/dto"
)

// TankHandler handles /catalog/tanks.
type TankHandler struct {
	*BaseHandler
	service  *tank.Service
	machines *machine.Service
}

// NewTankHandler creates a new tank handler.
func NewTankHandler(base *BaseHandler, service *tank.Service, machines *machine.Service) *TankHandler {
	return &TankHandler{BaseHandler: base, service: service, machines: machines}
}

// List handles GET /catalog/tanks.
func (h *TankHandler) List(c *gin.Context) {
	result, err := h.service.ListFor(c.Request.Context(), h.Actor(c), catalogListFilter(h.BaseHandler, c))
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.TankResponse, 0, len(result.Items))
	for _, t := range result.Items {
		items = append(items, dto.FromTank(t))
	}
	h.OK(c, dto.ListResponse{Items: items, TotalCount: result.TotalCount, Limit: result.Limit, Offset: result.Offset})
}

// Create handles POST /catalog/tanks.
func (h *TankHandler) Create(c *gin.Context) {
	var req dto.CreateTankRequest
	if !h.BindJSON(c, &req) {
		return
	}

	capacity, err := types.ParseLiters("capacity", req.Capacity.String())
	if err != nil {
		h.Error(c, err)
		return
	}
	t := tank.NewTank(strings.TrimSpace(req.Code), strings.TrimSpace(req.Name), capacity)
	if req.InitialLevel != nil {
		level, err := parseLevel("initialLevel", req.InitialLevel.String())
		if err != nil {
			h.Error(c, err)
			return
		}
		t.CurrentLevel = level
	}
	if req.LegacyCodeKey != nil {
		key, err := parseLegacyKey(*req.LegacyCodeKey)
		if err != nil {
			h.Error(c, err)
			return
		}
		t.LegacyCodeKey = key
	}

	if err := h.service.CreateFor(c.Request.Context(), h.Actor(c), t); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromTank(t))
}

// Get handles GET /catalog/tanks/:identifier.
func (h *TankHandler) Get(c *gin.Context) {
	t, err := h.service.Get(c.Request.Context(), h.Actor(c), c.Param("identifier"))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromTank(t))
}

// Update handles PUT /catalog/tanks/:identifier.
func (h *TankHandler) Update(c *gin.Context) {
	var req dto.UpdateTankRequest
	if !h.BindJSON(c, &req) {
		return
	}
	if req.CurrentLevel != nil {
		h.Error(c, apperror.NewImmutableField("currentLevel"))
		return
	}

	var capacity *types.Liters
	if req.Capacity != nil {
		v, err := types.ParseLiters("capacity", req.Capacity.String())
		if err != nil {
			h.Error(c, err)
			return
		}
		capacity = &v
	}
	var legacy *id.ID
	if req.LegacyCodeKey != nil {
		key, err := parseLegacyKey(*req.LegacyCodeKey)
		if err != nil {
			h.Error(c, err)
			return
		}
		legacy = key
	}

	t, err := h.service.UpdateFor(c.Request.Context(), h.Actor(c), c.Param("identifier"), req.Version, func(t *tank.Tank) {
		if req.Code != nil {
			t.Code = strings.TrimSpace(*req.Code)
		}
		if req.Name != nil {
			t.Name = strings.TrimSpace(*req.Name)
		}
		if capacity != nil {
			t.Capacity = *capacity
		}
		if req.LegacyCodeKey != nil {
			t.LegacyCodeKey = legacy
		}
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromTank(t))
}

// Delete handles DELETE /catalog/tanks/:identifier.
func (h *TankHandler) Delete(c *gin.Context) {
	if _, err := h.service.DeactivateFor(c.Request.Context(), h.Actor(c), c.Param("identifier")); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// Machines handles GET /catalog/tanks/:identifier/machines.
func (h *TankHandler) Machines(c *gin.Context) {
	ctx := c.Request.Context()
	actor := h.Actor(c)

	t, err := h.service.Get(ctx, actor, c.Param("identifier"))
	if err != nil {
		h.Error(c, err)
		return
	}
	machines, err := h.machines.ListForTank(ctx, actor, t.Code)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"tank": dto.FromTank(t), "machines": dto.FromMachines(machines)})
}

func catalogListFilter(h *BaseHandler, c *gin.Context) domain.ListFilter {
	filter := domain.DefaultListFilter()
	filter.Search = c.Query("search")
	filter.Limit = h.ParseIntQuery(c, "limit", 50)
	filter.Offset = h.ParseIntQuery(c, "offset", 0)
	filter.OrderBy = c.DefaultQuery("orderBy", "name")
	filter.IncludeInactive = c.Query("includeInactive") == "true"
	return filter
}

// parseLevel accepts zero, unlike ParseLiters, since a tank may start empty.
func parseLevel(field, raw string) (types.Liters, error) {
	v, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || v.IsNegative() {
		return types.ZeroLiters(), apperror.NewValidation(field+" must be a non-negative number").
			WithDetail("field", field).WithDetail("value", raw)
	}
	return v, nil
}

func parseLegacyKey(raw string) (*id.ID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	key, err := id.Parse(raw)
	if err != nil {
		return nil, apperror.NewValidation("legacyCodeKey must be a UUID").
			WithDetail("field", "legacyCodeKey").WithDetail("value", raw)
	}
	return &key, nil
}
