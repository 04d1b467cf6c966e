package works

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/mankai/mankai-server/pkg/errcodes"
	"github.com/mankai/mankai-server/pkg/hierarchy"
	"github.com/mankai/mankai-server/pkg/imagestore"
	"github.com/mankai/mankai-server/pkg/models"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/pointerutil"
	"github.com/segmentio/encoding/json"
)

// maxBatchIDs caps the number of works a single batch lookup can ask for.
const maxBatchIDs = 200

type handler struct {
	workService      *Service
	hierarchyService *hierarchy.Service
	images           *imagestore.Store
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	params := CreateWorkPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	opts := CreateWorkOptions{
		Title:       params.Title,
		Status:      toStatus(params.Status),
		Description: params.Description,
		Authors:     params.Authors,
		Genres:      toGenres(params.Genres),
		Remarks:     params.Remarks,
	}
	if params.Cover != nil && *params.Cover != "" {
		cover, err := imagestore.DecodeBase64(*params.Cover)
		if err != nil {
			return err
		}
		opts.Cover = cover
	}

	work, err := h.workService.CreateWork(ctx, opts)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, work))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound(hierarchy.EntityWork)
	}

	work, err := h.workService.RetrieveWork(ctx, RetrieveWorkOptions{ID: id, WithImages: true})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, work))
}

func (h *handler) edit(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound(hierarchy.EntityWork)
	}

	params := EditWorkPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	var cover []byte
	if params.Cover != nil && *params.Cover != "" {
		cover, err = imagestore.DecodeBase64(*params.Cover)
		if err != nil {
			return err
		}
	}

	work, err := h.workService.ApplyEdit(ctx, id, params.toEdit(cover))
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, work))
}

func (h *handler) delete(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound(hierarchy.EntityWork)
	}

	if err := h.workService.DeleteWork(ctx, id); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, map[string]any{"id": id}))
}

func (h *handler) list(c echo.Context) error {
	params := ListWorksQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	opts := ListWorksOptions{
		Limit:  pointerutil.Int(PageSize),
		Offset: pointerutil.Int((params.Page - 1) * PageSize),
	}
	if params.Status != "any" {
		opts.Status = toStatus(params.Status)
	}
	if params.Genre != models.GenreAll {
		genre := models.Genre(params.Genre)
		opts.Genre = &genre
	}

	return h.respondWithSummaries(c, opts)
}

// batch returns summaries for a JSON array of ids. Ids may be numbers or
// numeric strings; anything else is ignored.
func (h *handler) batch(c echo.Context) error {
	var raw []json.RawMessage
	if err := json.NewDecoder(c.Request().Body).Decode(&raw); err != nil {
		return errcodes.MalformedPayload()
	}
	if len(raw) > maxBatchIDs {
		return errcodes.ValidationError(`"ids" must contain at most ` + strconv.Itoa(maxBatchIDs) + ` items`)
	}

	ids := make([]int, 0, len(raw))
	for _, r := range raw {
		if id, ok := parseID(r); ok {
			ids = append(ids, id)
		}
	}

	return h.respondWithSummaries(c, ListWorksOptions{IDs: ids})
}

func (h *handler) respondWithSummaries(c echo.Context, opts ListWorksOptions) error {
	ctx := c.Request().Context()

	works, _, err := h.workService.ListWorks(ctx, opts)
	if err != nil {
		return errors.WithStack(err)
	}

	ids := make([]int, 0, len(works))
	for _, w := range works {
		ids = append(ids, w.ID)
	}
	latest, err := h.workService.LatestChapters(ctx, ids)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, NewWorkSummaries(h.images, works, latest)))
}

func (h *handler) detail(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound(hierarchy.EntityWork)
	}

	work, err := h.workService.RetrieveWork(ctx, RetrieveWorkOptions{ID: id})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, NewWorkDetail(h.images, work)))
}

// chapter returns the page URLs of a chapter in reading order. Locked
// chapters are only readable by admins.
func (h *handler) chapter(c echo.Context) error {
	ctx := c.Request().Context()

	workID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound(hierarchy.EntityWork)
	}
	chapterID, err := strconv.Atoi(c.Param("chapterId"))
	if err != nil {
		return errcodes.NotFound(hierarchy.EntityChapter)
	}

	chapter, err := h.hierarchyService.RetrieveChapter(ctx, hierarchy.RetrieveChapterOptions{
		ID:     chapterID,
		WorkID: &workID,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	if chapter.Locked {
		user, ok := c.Get("user").(*models.User)
		if !ok || !user.IsAdmin {
			return errcodes.Forbidden("Reading a locked chapter")
		}
	}

	urls := make([]string, 0, len(chapter.Images))
	for _, img := range chapter.Images {
		urls = append(urls, h.images.URL(img.ID))
	}

	return errors.WithStack(c.JSON(http.StatusOK, urls))
}

func parseID(raw json.RawMessage) (int, bool) {
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return n, true
}
