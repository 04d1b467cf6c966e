package hierarchy

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutesWithGroup mounts the nested group, chapter and page endpoints
// under an admin group.
func RegisterRoutesWithGroup(g *echo.Group, svc *Service) {
	h := &handler{
		hierarchyService: svc,
		images:           svc.images,
	}

	groups := g.Group("/manga/:mangaId/chapter-group")
	groups.POST("", h.createGroup)
	groups.DELETE("/:groupId", h.deleteGroup)

	chapters := groups.Group("/:groupId/chapter")
	chapters.POST("", h.createChapter)
	chapters.DELETE("/:chapterId", h.deleteChapter)
	chapters.POST("/:chapterId/images", h.uploadImages)
	chapters.DELETE("/:chapterId/image/:imageId", h.detachImage)
	chapters.POST("/:chapterId/image/:imageId/attach", h.attachImage)
}
