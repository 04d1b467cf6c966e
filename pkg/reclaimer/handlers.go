package reclaimer

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

type handler struct {
	reclaimer *Reclaimer
}

func (h *handler) sweep(c echo.Context) error {
	ctx := c.Request().Context()

	stats, err := h.reclaimer.SweepNow(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	logger.FromContext(ctx).Info("manual sweep finished", logger.Data{"found": stats.Found, "deleted": stats.Deleted})
	return errors.WithStack(c.JSON(http.StatusOK, stats))
}
