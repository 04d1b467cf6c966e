package users

import (
	"github.com/labstack/echo/v4"
	"github.com/mankai/mankai-server/pkg/auth"
)

// RegisterAdminRoutes registers user management on a group that is already
// restricted to admins.
func RegisterAdminRoutes(g *echo.Group, userService *Service) {
	h := &handler{
		userService: userService,
	}

	g.GET("/users", h.list)
	g.POST("/users", h.create)
	g.GET("/user/:id", h.retrieve)
	g.DELETE("/user/:id", h.delete)
}

// RegisterAccountRoutes registers the signed-in user's own endpoints. Both
// need a valid access token even when public reading is anonymous.
func RegisterAccountRoutes(g *echo.Group, userService *Service, authService *auth.Service, mw *auth.Middleware) {
	h := &handler{
		userService: userService,
		authService: authService,
	}

	g.GET("", h.me, mw.Authenticate)
	g.PATCH("", h.changePassword, mw.Authenticate)
}
