package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mankai/mankai-server/pkg/config"
	"github.com/mankai/mankai-server/pkg/errcodes"
	"github.com/mankai/mankai-server/pkg/imagestore"
	"github.com/mankai/mankai-server/pkg/models"
	"github.com/mankai/mankai-server/pkg/version"
	"github.com/pkg/errors"
)

const (
	serverName        = "mankai"
	serverDescription = "Self-hosted manga library server"
)

type handler struct {
	config *config.Config
	images *imagestore.Store
}

// InfoResponse describes the server to clients before they log in.
type InfoResponse struct {
	Name                  string   `json:"name"`
	Version               string   `json:"version"`
	Description           string   `json:"description"`
	AuthenticationEnabled bool     `json:"authentication_enabled"`
	AvailableGenres       []string `json:"available_genres"`
}

func (h *handler) info(c echo.Context) error {
	genres := make([]string, 0, len(models.Genres)+1)
	genres = append(genres, models.GenreAll)
	for _, g := range models.Genres {
		genres = append(genres, string(g))
	}

	return errors.WithStack(c.JSON(http.StatusOK, InfoResponse{
		Name:                  serverName,
		Version:               version.Version,
		Description:           serverDescription,
		AuthenticationEnabled: h.config.EnableAuth,
		AvailableGenres:       genres,
	}))
}

// image serves a stored JPEG by its public filename, e.g. 42.jpg.
func (h *handler) image(c echo.Context) error {
	id, ok := imagestore.ParseFilename(c.Param("file"))
	if !ok || !h.images.Exists(id) {
		return errcodes.NotFound("Image")
	}

	c.Response().Header().Set(echo.HeaderContentType, "image/jpeg")
	return errors.WithStack(c.File(h.images.Path(id)))
}
