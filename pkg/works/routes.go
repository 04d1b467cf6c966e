package works

import (
	"github.com/labstack/echo/v4"
	"github.com/mankai/mankai-server/pkg/hierarchy"
)

// RegisterAdminRoutes mounts the work management endpoints under an admin
// group.
func RegisterAdminRoutes(g *echo.Group, workService *Service, hierarchyService *hierarchy.Service) {
	h := &handler{
		workService:      workService,
		hierarchyService: hierarchyService,
		images:           workService.images,
	}

	g.POST("/manga", h.create)
	g.GET("/manga/:id", h.retrieve)
	g.PATCH("/manga/:id", h.edit)
	g.DELETE("/manga/:id", h.delete)
}

// RegisterPublicRoutes mounts the read-only endpoints under the public API
// group.
func RegisterPublicRoutes(g *echo.Group, workService *Service, hierarchyService *hierarchy.Service) {
	h := &handler{
		workService:      workService,
		hierarchyService: hierarchyService,
		images:           workService.images,
	}

	g.GET("/manga", h.list)
	g.POST("/manga", h.batch)
	g.GET("/manga/:id", h.detail)
	g.GET("/manga/:id/chapter/:chapterId", h.chapter)
}
