package reclaimer

import (
	"github.com/labstack/echo/v4"
)

func RegisterRoutesWithGroup(g *echo.Group, r *Reclaimer) {
	h := &handler{reclaimer: r}

	g.POST("/maintenance/sweep", h.sweep)
}
