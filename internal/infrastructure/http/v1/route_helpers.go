package v1

import (
	"github.com/gin-gonic/gin"
)

// CatalogRouteHandler defines the interface for catalog handlers.
type CatalogRouteHandler interface {
	List(c *gin.Context)
	Create(c *gin.Context)
	Get(c *gin.Context)
	Update(c *gin.Context)
	Delete(c *gin.Context)
}

// RegisterCatalogRoutes registers standard CRUD routes for a catalog.
// Rows are addressed by identifier: a key, a code or a legacy code key.
//
// Usage:
//
//	handler := handlers.NewMachineHandler(baseHandler, cfg.Machines)
//	RegisterCatalogRoutes(catalogs.Group("/machines"), handler)
func RegisterCatalogRoutes(group *gin.RouterGroup, handler CatalogRouteHandler) {
	group.GET("", handler.List)
	group.POST("", handler.Create)
	group.GET("/:identifier", handler.Get)
	group.PUT("/:identifier", handler.Update)
	group.DELETE("/:identifier", handler.Delete)
}
