package auth

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/mankai/mankai-server/pkg/errcodes"
	"github.com/mankai/mankai-server/pkg/models"
)

const bearerPrefix = "Bearer "

// Middleware provides authentication middleware.
type Middleware struct {
	authService *Service
}

// NewMiddleware creates a new auth middleware.
func NewMiddleware(authService *Service) *Middleware {
	return &Middleware{
		authService: authService,
	}
}

// Authenticate validates the bearer access token, verifies the user still
// exists, and stores it on the context as "user". Anything else is a 401.
func (m *Middleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := bearerToken(c)
		if !ok {
			return errcodes.Unauthorized("Authentication required")
		}

		user, err := m.userForToken(c, token)
		if err != nil {
			return err
		}

		c.Set("user", user)
		return next(c)
	}
}

// AuthenticateOptional attaches the user when a valid token is present but
// lets anonymous requests through.
func (m *Middleware) AuthenticateOptional(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if token, ok := bearerToken(c); ok {
			if user, err := m.userForToken(c, token); err == nil {
				c.Set("user", user)
			}
		}
		return next(c)
	}
}

// AuthenticateIf picks Authenticate when required is true and
// AuthenticateOptional otherwise.
func (m *Middleware) AuthenticateIf(required bool) echo.MiddlewareFunc {
	if required {
		return m.Authenticate
	}
	return m.AuthenticateOptional
}

// RequireAdmin rejects users without the admin flag. Must be used after
// Authenticate.
func (m *Middleware) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, ok := c.Get("user").(*models.User)
		if !ok {
			return errcodes.Unauthorized("Authentication required")
		}
		if !user.IsAdmin {
			return errcodes.Forbidden("Administration")
		}
		return next(c)
	}
}

func (m *Middleware) userForToken(c echo.Context, token string) (*models.User, error) {
	claims, err := m.authService.ValidateAccessToken(token)
	if err != nil {
		return nil, errcodes.Unauthorized("Invalid or expired token")
	}

	user, err := m.authService.GetUserByID(c.Request().Context(), claims.UserID)
	if err != nil {
		return nil, errcodes.Unauthorized("User not found")
	}
	return user, nil
}

func bearerToken(c echo.Context) (string, bool) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	return token, token != ""
}
