package testutils

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mankai/mankai-server/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"
)

type handler struct {
	db *bun.DB
}

// createUserRequest is the request body for creating a test user.
type createUserRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
	IsAdmin  bool   `json:"is_admin"`
}

// createUserResponse is the response body for creating a test user.
type createUserResponse struct {
	ID    int    `json:"id"`
	Email string `json:"email"`
}

// createUser creates a test user.
// POST /test/users.
func (h *handler) createUser(c echo.Context) error {
	ctx := c.Request().Context()

	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return errors.WithStack(err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.MinCost)
	if err != nil {
		return errors.Wrap(err, "failed to hash password")
	}

	user := &models.User{
		Email:        req.Email,
		PasswordHash: string(hashed),
		IsAdmin:      req.IsAdmin,
	}
	_, err = h.db.NewInsert().Model(user).Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to create user")
	}

	return errors.WithStack(c.JSON(http.StatusCreated, createUserResponse{
		ID:    user.ID,
		Email: user.Email,
	}))
}

// deleteCatalogResponse is the response body for wiping the catalog.
type deleteCatalogResponse struct {
	Works  int `json:"works"`
	Images int `json:"images"`
}

// deleteCatalog removes every work and its tree, leaving users alone. Image
// files are left for the reclaimer's next sweep to find missing.
// DELETE /test/catalog.
func (h *handler) deleteCatalog(c echo.Context) error {
	resp := deleteCatalogResponse{}

	err := h.db.RunInTx(c.Request().Context(), nil, func(ctx context.Context, tx bun.Tx) error {
		images, err := tx.NewDelete().Model((*models.Image)(nil)).Where("1=1").Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		n, _ := images.RowsAffected()
		resp.Images = int(n)

		for _, model := range []any{
			(*models.Chapter)(nil),
			(*models.ChapterGroup)(nil),
			(*models.WorkAuthor)(nil),
			(*models.WorkGenre)(nil),
		} {
			if _, err := tx.NewDelete().Model(model).Where("1=1").Exec(ctx); err != nil {
				return errors.WithStack(err)
			}
		}

		works, err := tx.NewDelete().Model((*models.Work)(nil)).Where("1=1").Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		n, _ = works.RowsAffected()
		resp.Works = int(n)
		return nil
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}
