package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mankai/mankai-server/pkg/errcodes"
	"github.com/mankai/mankai-server/pkg/models"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

type handler struct {
	authService *Service
}

// NewUserResponse is the public view of user, without the password hash.
func NewUserResponse(user *models.User) UserResponse {
	return UserResponse{
		ID:      user.ID,
		Email:   user.Email,
		IsAdmin: user.IsAdmin,
	}
}

// login exchanges credentials for an access/refresh token pair.
func (h *handler) login(c echo.Context) error {
	ctx := c.Request().Context()
	log := logger.FromContext(ctx)

	params := LoginPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	user, err := h.authService.Authenticate(ctx, params.Email, params.Password)
	if err != nil {
		log.Info("failed login attempt", logger.Data{"email": params.Email})
		return err
	}

	tokens, err := h.authService.GenerateTokens(user)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, LoginResponse{
		User:      NewUserResponse(user),
		TokenPair: *tokens,
	}))
}

// refresh exchanges a refresh token for a new access token.
func (h *handler) refresh(c echo.Context) error {
	ctx := c.Request().Context()

	params := RefreshPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	access, _, err := h.authService.Refresh(ctx, params.RefreshToken)
	if err != nil {
		return err
	}

	return errors.WithStack(c.JSON(http.StatusOK, RefreshResponse{AccessToken: access}))
}

// me returns the current user.
func (h *handler) me(c echo.Context) error {
	user, ok := c.Get("user").(*models.User)
	if !ok {
		return errcodes.Unauthorized("Authentication required")
	}
	return errors.WithStack(c.JSON(http.StatusOK, NewUserResponse(user)))
}
