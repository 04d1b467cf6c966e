package hierarchy

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/mankai/mankai-server/pkg/errcodes"
	"github.com/mankai/mankai-server/pkg/imagestore"
	"github.com/pkg/errors"
)

type handler struct {
	hierarchyService *Service
	images           *imagestore.Store
}

// pathIDs parses the :mangaId/:groupId/:chapterId/:imageId params that are
// present on the route. A malformed id is reported as a missing entity.
type pathIDs struct {
	work, group, chapter, image int
}

func parsePath(c echo.Context) (pathIDs, error) {
	var ids pathIDs
	params := []struct {
		name   string
		entity string
		dst    *int
	}{
		{"mangaId", EntityWork, &ids.work},
		{"groupId", EntityGroup, &ids.group},
		{"chapterId", EntityChapter, &ids.chapter},
		{"imageId", EntityImage, &ids.image},
	}
	for _, p := range params {
		raw := c.Param(p.name)
		if raw == "" {
			continue
		}
		id, err := strconv.Atoi(raw)
		if err != nil {
			return ids, errcodes.NotFound(p.entity)
		}
		*p.dst = id
	}
	return ids, nil
}

func (h *handler) createGroup(c echo.Context) error {
	ctx := c.Request().Context()

	ids, err := parsePath(c)
	if err != nil {
		return err
	}

	params := CreateGroupPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	group, err := h.hierarchyService.CreateGroup(ctx, ids.work, params.Title, params.Sequence)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, group))
}

func (h *handler) deleteGroup(c echo.Context) error {
	ctx := c.Request().Context()

	ids, err := parsePath(c)
	if err != nil {
		return err
	}

	if err := h.hierarchyService.DeleteGroup(ctx, ids.work, ids.group); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, map[string]any{"id": ids.group}))
}

func (h *handler) createChapter(c echo.Context) error {
	ctx := c.Request().Context()

	ids, err := parsePath(c)
	if err != nil {
		return err
	}

	params := CreateChapterPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	chapter, err := h.hierarchyService.CreateChapter(ctx, ids.work, ids.group, params.Title, params.Sequence, params.Locked)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, chapter))
}

func (h *handler) deleteChapter(c echo.Context) error {
	ctx := c.Request().Context()

	ids, err := parsePath(c)
	if err != nil {
		return err
	}

	if err := h.hierarchyService.DeleteChapter(ctx, ids.work, ids.group, ids.chapter); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, map[string]any{"id": ids.chapter}))
}

func (h *handler) uploadImages(c echo.Context) error {
	ctx := c.Request().Context()

	ids, err := parsePath(c)
	if err != nil {
		return err
	}

	params := UploadImagesPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	raws := make([][]byte, 0, len(params.Images))
	for i, encoded := range params.Images {
		raw, err := imagestore.DecodeBase64(encoded)
		if err != nil {
			return errcodes.InvalidImage("image " + strconv.Itoa(i) + ": payload isn't valid base64")
		}
		raws = append(raws, raw)
	}

	images, err := h.hierarchyService.UploadImages(ctx, ids.work, ids.group, ids.chapter, raws)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, NewImageResponses(h.images, images)))
}

func (h *handler) detachImage(c echo.Context) error {
	ctx := c.Request().Context()

	ids, err := parsePath(c)
	if err != nil {
		return err
	}

	if err := h.hierarchyService.DetachImage(ctx, ids.work, ids.group, ids.chapter, ids.image); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}

func (h *handler) attachImage(c echo.Context) error {
	ctx := c.Request().Context()

	ids, err := parsePath(c)
	if err != nil {
		return err
	}

	image, err := h.hierarchyService.AttachImage(ctx, ids.work, ids.group, ids.chapter, ids.image)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, ImageResponse{
		ID:       image.ID,
		Sequence: image.Sequence,
		URL:      h.images.URL(image.ID),
	}))
}
