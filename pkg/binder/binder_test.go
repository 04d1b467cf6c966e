package binder

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/mankai/mankai-server/pkg/errcodes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type params struct {
	Hello string `json:"hello" mod:"trim" validate:"max=9"`
	Omit  string `json:"-"`
}

var (
	goodJSON             = `{"hello":" world "}`
	unknownFieldsErrJSON = `{"hello":"world","foo":"bar"}`
	typeErrJSON          = `{"hello":123}`
	validationErrJSON    = `{"hello":"0123456789"}`
)

func TestNew(t *testing.T) {
	t.Parallel()
	b, err := New()
	require.NoError(t, err)
	assert.NotNil(t, b)

	t.Run("only allows application/json bodies", func(tt *testing.T) {
		for _, mime := range []string{echo.MIMEApplicationXML, echo.MIMEApplicationForm} {
			c := newContext(goodJSON, mime)
			p := params{}
			err = b.Bind(&p, c)
			assert.Contains(tt, err.Error(), "Unsupported Media Type", mime)
		}
	})

	t.Run("requires a body on writes", func(tt *testing.T) {
		e := echo.New()
		req := httptest.NewRequest(echo.POST, "/", nil)
		c := e.NewContext(req, httptest.NewRecorder())
		p := params{}
		err = b.Bind(&p, c)
		assert.ErrorIs(tt, err, errcodes.EmptyRequestBody())
	})

	t.Run("keeps the body limit status", func(tt *testing.T) {
		c := newContext("", echo.MIMEApplicationJSON)
		c.Request().Body = io.NopCloser(tooLargeReader{})
		c.Request().ContentLength = -1
		p := params{}
		err = b.Bind(&p, c)
		var he *echo.HTTPError
		require.ErrorAs(tt, err, &he)
		assert.Equal(tt, http.StatusRequestEntityTooLarge, he.Code)
	})

	t.Run("rejects malformed json", func(tt *testing.T) {
		c := newContext(`{"hello":`, echo.MIMEApplicationJSON)
		p := params{}
		err = b.Bind(&p, c)
		assert.ErrorIs(tt, err, errcodes.MalformedPayload())
	})

	t.Run("disallows unknown fields", func(tt *testing.T) {
		c := newContext(unknownFieldsErrJSON, echo.MIMEApplicationJSON)
		p := params{}
		err = b.Bind(&p, c)
		assert.Contains(tt, err.Error(), `Unknown Parameter "foo"`)
	})

	t.Run("returns a good message for type errors", func(tt *testing.T) {
		c := newContext(typeErrJSON, echo.MIMEApplicationJSON)
		p := params{}
		err = b.Bind(&p, c)
		assert.Contains(tt, err.Error(), `"hello" should be of type string`)
	})

	t.Run("use mod tag to modify params", func(tt *testing.T) {
		c := newContext(goodJSON, echo.MIMEApplicationJSON)
		p := params{}
		err = b.Bind(&p, c)
		require.NoError(tt, err)
		assert.Equal(tt, "world", p.Hello)
	})

	t.Run("use validate tag to validate params", func(tt *testing.T) {
		c := newContext(validationErrJSON, echo.MIMEApplicationJSON)
		p := params{}
		err = b.Bind(&p, c)
		assert.Contains(tt, err.Error(), "length must be less than or equal to 9 characters")
	})
}

type workParams struct {
	Status string   `json:"status" validate:"omitempty,status"`
	Genres []string `json:"genres" validate:"omitempty,dive,genre"`
}

type passwordParams struct {
	Password string `json:"password" validate:"required,password"`
}

func TestPasswordValidator(t *testing.T) {
	t.Parallel()
	b, err := New()
	require.NoError(t, err)

	cases := []struct {
		name     string
		password string
		valid    bool
	}{
		{"letters and digits", "manga2026", true},
		{"unicode letters", "まんがまんが12", true},
		{"too short", "abc123", false},
		{"no digit", "onlyletters", false},
		{"no letter", "1234567890", false},
		{"too long", strings.Repeat("a1", 37), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(tt *testing.T) {
			c := newContext(fmt.Sprintf(`{"password":%q}`, tc.password), echo.MIMEApplicationJSON)
			p := passwordParams{}
			err := b.Bind(&p, c)
			if tc.valid {
				assert.NoError(tt, err)
				return
			}
			require.Error(tt, err)
			assert.Contains(tt, err.Error(), `"password" must be 8-72 characters`)
		})
	}
}

// listParams only carries query tags, so messages fall back to those names.
type listParams struct {
	Page   int    `query:"page" default:"1" validate:"min=1"`
	Genre  string `query:"genre" default:"all" validate:"genre_filter"`
	Status string `query:"status" default:"any" validate:"oneof=any ongoing ended"`
}

func TestDomainValidators(t *testing.T) {
	t.Parallel()
	b, err := New()
	require.NoError(t, err)

	t.Run("accepts known genres and statuses", func(tt *testing.T) {
		c := newContext(`{"status":"ongoing","genres":["yuri","schoolLife"]}`, echo.MIMEApplicationJSON)
		p := workParams{}
		require.NoError(tt, b.Bind(&p, c))
		assert.Equal(tt, []string{"yuri", "schoolLife"}, p.Genres)
	})

	t.Run("rejects unknown genre", func(tt *testing.T) {
		c := newContext(`{"genres":["yuri","cooking"]}`, echo.MIMEApplicationJSON)
		p := workParams{}
		err := b.Bind(&p, c)
		require.Error(tt, err)
		assert.Contains(tt, err.Error(), "is not a known genre")
	})

	t.Run("rejects any as a stored status", func(tt *testing.T) {
		c := newContext(`{"status":"any"}`, echo.MIMEApplicationJSON)
		p := workParams{}
		err := b.Bind(&p, c)
		require.Error(tt, err)
		assert.Contains(tt, err.Error(), `"status" must be one of the following: "ongoing", "ended"`)
	})

	t.Run("decodes list query with defaults", func(tt *testing.T) {
		e := echo.New()
		req := httptest.NewRequest(echo.GET, "/?genre=romance", nil)
		c := e.NewContext(req, httptest.NewRecorder())
		p := listParams{}
		require.NoError(tt, b.Bind(&p, c))
		assert.Equal(tt, 1, p.Page)
		assert.Equal(tt, "romance", p.Genre)
		assert.Equal(tt, "any", p.Status)
	})

	t.Run("list query rejects unknown genre", func(tt *testing.T) {
		e := echo.New()
		req := httptest.NewRequest(echo.GET, "/?genre=cooking", nil)
		c := e.NewContext(req, httptest.NewRecorder())
		p := listParams{}
		err := b.Bind(&p, c)
		require.Error(tt, err)
		assert.Contains(tt, err.Error(), `"genre" is not a known genre`)
	})

	t.Run("list query names fields by their query tag", func(tt *testing.T) {
		e := echo.New()
		req := httptest.NewRequest(echo.GET, "/?page=-1", nil)
		c := e.NewContext(req, httptest.NewRecorder())
		p := listParams{}
		err := b.Bind(&p, c)
		require.Error(tt, err)
		assert.Contains(tt, err.Error(), `"page" must be greater than or equal to 1`)
	})

	t.Run("list query accepts the all wildcard", func(tt *testing.T) {
		e := echo.New()
		req := httptest.NewRequest(echo.GET, "/?genre=all&status=ended", nil)
		c := e.NewContext(req, httptest.NewRecorder())
		p := listParams{}
		require.NoError(tt, b.Bind(&p, c))
		assert.Equal(tt, "all", p.Genre)
	})
}

// tooLargeReader fails the way echo's body limit reader does.
type tooLargeReader struct{}

func (tooLargeReader) Read([]byte) (int, error) {
	return 0, echo.ErrStatusRequestEntityTooLarge
}

func newContext(payload, mime string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(echo.POST, "/", strings.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, mime)
	rr := httptest.NewRecorder()
	return e.NewContext(req, rr)
}
