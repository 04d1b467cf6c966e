package users

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/mankai/mankai-server/pkg/auth"
	"github.com/mankai/mankai-server/pkg/errcodes"
	"github.com/mankai/mankai-server/pkg/models"
	"github.com/pkg/errors"
)

type handler struct {
	userService *Service
	authService *auth.Service
}

func newUserResponses(users []*models.User) []auth.UserResponse {
	resp := make([]auth.UserResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, auth.NewUserResponse(u))
	}
	return resp
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListUsersQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	users, err := h.userService.List(ctx, ListOptions(params))
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, newUserResponses(users)))
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	params := CreateUserPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	user, err := h.userService.Create(ctx, CreateUserOptions(params))
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, auth.NewUserResponse(user)))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("User")
	}

	user, err := h.userService.Retrieve(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, auth.NewUserResponse(user)))
}

func (h *handler) delete(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return errcodes.NotFound("User")
	}

	// Prevent deleting yourself
	current, ok := c.Get("user").(*models.User)
	if !ok {
		return errcodes.Unauthorized("Authentication required")
	}
	if current.ID == id {
		return errcodes.ValidationError("You can't delete your own account")
	}

	if err := h.userService.Delete(ctx, id); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, map[string]any{"id": id}))
}

// me returns the signed-in user.
func (h *handler) me(c echo.Context) error {
	user, ok := c.Get("user").(*models.User)
	if !ok {
		return errcodes.Unauthorized("Authentication required")
	}
	return errors.WithStack(c.JSON(http.StatusOK, auth.NewUserResponse(user)))
}

// changePassword updates the signed-in user's password and hands back a
// fresh token pair, since the old refresh token no longer works.
func (h *handler) changePassword(c echo.Context) error {
	ctx := c.Request().Context()

	current, ok := c.Get("user").(*models.User)
	if !ok {
		return errcodes.Unauthorized("Authentication required")
	}

	params := ChangePasswordPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	user, err := h.userService.ChangePassword(ctx, current.ID, params.CurrentPassword, params.NewPassword)
	if err != nil {
		return errors.WithStack(err)
	}

	tokens, err := h.authService.GenerateTokens(user)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, auth.LoginResponse{
		User:      auth.NewUserResponse(user),
		TokenPair: *tokens,
	}))
}
