package handlers

import (
	"github.com/gin-gonic/gin"

	"fuelops/internal/core/apperror"
	"fuelops/internal/domain/catalogs/machine"
	"fuelops/internal/domain/catalogs/tank"
	"fuelops/internal/domain/resolve"
	"fuelops/internal/infrastructure/http/v1/dto"
)

// KioskHandler serves the public lookup endpoints used by fuel kiosks.
// Responses leave out ownership.
type KioskHandler struct {
	*BaseHandler
	tanks    *tank.Service
	machines *machine.Service
}

// NewKioskHandler creates a new kiosk handler.
func NewKioskHandler(base *BaseHandler, tanks *tank.Service, machines *machine.Service) *KioskHandler {
	return &KioskHandler{BaseHandler: base, tanks: tanks, machines: machines}
}

// Tank handles GET /kiosk/tanks/:identifier.
func (h *KioskHandler) Tank(c *gin.Context) {
	t, err := h.tanks.Get(c.Request.Context(), h.Actor(c), c.Param("identifier"))
	if err != nil {
		h.Error(c, err)
		return
	}
	if !t.Active {
		h.Error(c, apperror.NewNotFound("tank", c.Param("identifier")))
		return
	}
	h.OK(c, dto.FromTankPublic(t))
}

// MachineTank handles GET /kiosk/machines/:identifier/tank: the default tank
// of a scanned machine, resolved within the machine owner's scope.
func (h *KioskHandler) MachineTank(c *gin.Context) {
	ctx := c.Request.Context()

	m, err := h.machines.Get(ctx, h.Actor(c), c.Param("identifier"))
	if err != nil {
		h.Error(c, err)
		return
	}
	if m.DefaultTankCode == "" {
		h.Error(c, apperror.NewNotFound("tank", m.Code).WithDetail("reason", "machine has no default tank"))
		return
	}

	t, err := h.tanks.Resolver().Resolve(ctx, m.DefaultTankCode, resolve.WithinScope(m.Ownership.Scope()))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.KioskMachineTankResponse{
		MachineID:   m.ID.String(),
		MachineCode: m.Code,
		MachineName: m.Name,
		Tank:        dto.FromTankPublic(t),
	})
}
