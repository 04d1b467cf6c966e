package errcodes

import (
	"net/http"

	"github.com/iancoleman/strcase"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/errutils"
)

// Response is the JSON body of every error reply.
type Response struct {
	Error ResponseBody `json:"error"`
}

type ResponseBody struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"status_code"`
}

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

// Handle is an Echo error handler. Errors from this package and echo keep
// their status; anything else is logged and reported as a 500 without
// leaking its message.
func (h *Handler) Handle(err error, c echo.Context) {
	log := logger.FromEchoContext(c)

	if errutils.IsIgnorableErr(err) {
		log.Err(err).Warn("broken pipe")
		return
	}

	resp := NewResponse(err)
	if resp.Error.StatusCode >= http.StatusInternalServerError {
		log.Err(err).Error("server error")
	}

	// A streamed image may fail after the headers went out.
	if c.Response().Committed {
		return
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(resp.Error.StatusCode)
	} else {
		err = c.JSON(resp.Error.StatusCode, resp)
	}
	if err != nil {
		log.Err(errors.WithStack(err)).Error("error handler json error")
	}
}

// NewResponse converts err into the body sent to clients.
func NewResponse(err error) Response {
	body := ResponseBody{StatusCode: http.StatusInternalServerError}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		body.StatusCode = he.Code
		if m, ok := he.Message.(string); ok {
			body.Message = m
		} else {
			body.Message = http.StatusText(he.Code)
		}
		body.Code = strcase.ToSnake(body.Message)
	}

	var e *Error
	if errors.As(err, &e) {
		body.StatusCode = e.HTTPCode
		body.Code = e.Code
		body.Message = e.Message
	}

	if body.StatusCode == http.StatusInternalServerError && body.Message == "" {
		body.Code = "internal_server_error"
		body.Message = "Internal Server Error"
	}

	return Response{Error: body}
}
