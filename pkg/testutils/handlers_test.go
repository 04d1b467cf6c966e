package testutils

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/mankai/mankai-server/pkg/binder"
	"github.com/mankai/mankai-server/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEcho(t *testing.T) *echo.Echo {
	t.Helper()
	e := echo.New()
	b, err := binder.New()
	require.NoError(t, err)
	e.Binder = b
	return e
}

func TestCreateUser(t *testing.T) {
	t.Parallel()
	db := NewDB(t)
	e := newEcho(t)
	h := &handler{db: db}

	req := httptest.NewRequest(http.MethodPost, "/test/users", strings.NewReader(`{"email":"a@example.com","password":"pw","is_admin":true}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	require.NoError(t, h.createUser(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusCreated, rec.Code)

	user := &models.User{}
	require.NoError(t, db.NewSelect().Model(user).Where("u.email = ?", "a@example.com").Scan(context.Background()))
	assert.True(t, user.IsAdmin)
	assert.NotEqual(t, "pw", user.PasswordHash)
}

func TestDeleteCatalog(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := NewDB(t)
	e := newEcho(t)
	h := &handler{db: db}

	work := &models.Work{Title: "W", Status: models.StatusOngoing}
	_, err := db.NewInsert().Model(work).Exec(ctx)
	require.NoError(t, err)
	group := &models.ChapterGroup{WorkID: work.ID, Title: "G", Sequence: 1}
	_, err = db.NewInsert().Model(group).Exec(ctx)
	require.NoError(t, err)
	chapter := &models.Chapter{GroupID: group.ID, Title: "C", Sequence: 1}
	_, err = db.NewInsert().Model(chapter).Exec(ctx)
	require.NoError(t, err)
	_, err = db.NewInsert().Model(&models.Image{ChapterID: &chapter.ID, Sequence: 1}).Exec(ctx)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, h.deleteCatalog(e.NewContext(httptest.NewRequest(http.MethodDelete, "/test/catalog", nil), rec)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"works":1,"images":1}`, rec.Body.String())

	count, err := db.NewSelect().Model((*models.Chapter)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
