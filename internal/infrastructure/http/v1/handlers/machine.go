package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"fuelops/internal/core/id"
	"fuelops/internal/domain/catalogs/machine"
	"fuelops/internal/infrastructure/http/v1/dto"
)

// MachineHandler handles /catalog/machines.
type MachineHandler struct {
	*BaseHandler
	service *machine.Service
}

// NewMachineHandler creates a new machine handler.
func NewMachineHandler(base *BaseHandler, service *machine.Service) *MachineHandler {
	return &MachineHandler{BaseHandler: base, service: service}
}

// List handles GET /catalog/machines.
func (h *MachineHandler) List(c *gin.Context) {
	result, err := h.service.ListFor(c.Request.Context(), h.Actor(c), catalogListFilter(h.BaseHandler, c))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.ListResponse{
		Items:      dto.FromMachines(result.Items),
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

// Create handles POST /catalog/machines.
func (h *MachineHandler) Create(c *gin.Context) {
	var req dto.CreateMachineRequest
	if !h.BindJSON(c, &req) {
		return
	}

	m := machine.NewMachine(strings.TrimSpace(req.Code), strings.TrimSpace(req.Name))
	m.DefaultTankCode = strings.TrimSpace(req.DefaultTankCode)
	m.Description = req.Description
	if req.LegacyCodeKey != nil {
		key, err := parseLegacyKey(*req.LegacyCodeKey)
		if err != nil {
			h.Error(c, err)
			return
		}
		m.LegacyCodeKey = key
	}

	if err := h.service.CreateFor(c.Request.Context(), h.Actor(c), m); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromMachine(m))
}

// Get handles GET /catalog/machines/:identifier.
func (h *MachineHandler) Get(c *gin.Context) {
	m, err := h.service.Get(c.Request.Context(), h.Actor(c), c.Param("identifier"))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromMachine(m))
}

// Update handles PUT /catalog/machines/:identifier.
func (h *MachineHandler) Update(c *gin.Context) {
	var req dto.UpdateMachineRequest
	if !h.BindJSON(c, &req) {
		return
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

	m, err := h.service.UpdateFor(c.Request.Context(), h.Actor(c), c.Param("identifier"), func(m *machine.Machine) {
		if req.Code != nil {
			m.Code = strings.TrimSpace(*req.Code)
		}
		if req.Name != nil {
			m.Name = strings.TrimSpace(*req.Name)
		}
		if req.DefaultTankCode != nil {
			m.DefaultTankCode = strings.TrimSpace(*req.DefaultTankCode)
		}
		if req.Description != nil {
			m.Description = *req.Description
		}
		if req.LegacyCodeKey != nil {
			m.LegacyCodeKey = legacy
		}
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromMachine(m))
}

// Delete handles DELETE /catalog/machines/:identifier.
func (h *MachineHandler) Delete(c *gin.Context) {
	if _, err := h.service.DeactivateFor(c.Request.Context(), h.Actor(c), c.Param("identifier")); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}
