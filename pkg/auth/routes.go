package auth

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutesWithGroup registers the auth routes. Login and refresh are
// open; /me needs a valid access token.
func RegisterRoutesWithGroup(g *echo.Group, authService *Service, mw *Middleware) {
	h := &handler{
		authService: authService,
	}

	g.POST("/login", h.login)
	g.POST("/refresh", h.refresh)
	g.GET("/me", h.me, mw.Authenticate)
}
