package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/mankai/mankai-server/pkg/auth"
	"github.com/mankai/mankai-server/pkg/binder"
	"github.com/mankai/mankai-server/pkg/config"
	"github.com/mankai/mankai-server/pkg/errcodes"
	"github.com/mankai/mankai-server/pkg/hierarchy"
	"github.com/mankai/mankai-server/pkg/imagestore"
	"github.com/mankai/mankai-server/pkg/reclaimer"
	"github.com/mankai/mankai-server/pkg/testutils"
	"github.com/mankai/mankai-server/pkg/users"
	"github.com/mankai/mankai-server/pkg/works"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/health"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/echo/v4/middleware/recovery"
	"github.com/uptrace/bun"
)

func New(cfg *config.Config, db *bun.DB, images *imagestore.Store, rec *reclaimer.Reclaimer) (*http.Server, error) {
	e, err := NewEcho(cfg, db, images, rec)
	if err != nil {
		return nil, err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort),
		Handler:           e,
		ReadHeaderTimeout: 3 * time.Second,
	}

	return srv, nil
}

// NewEcho builds the router with every route mounted. The public API lives
// under /api and the management API under /admin/api.
func NewEcho(cfg *config.Config, db *bun.DB, images *imagestore.Store, rec *reclaimer.Reclaimer) (*echo.Echo, error) {
	e := echo.New()

	b, err := binder.New()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	e.Binder = b

	e.Use(logger.Middleware())
	e.Use(recovery.Middleware())
	e.Use(middleware.CORS())

	health.RegisterRoutes(e)

	authService := auth.NewService(db, cfg)
	authMiddleware := auth.NewMiddleware(authService)

	userService := users.NewService(db)
	hierarchyService := hierarchy.NewService(db, images, rec)
	workService := works.NewService(db, images, rec)

	h := &handler{config: cfg, images: images}

	// Open endpoints.
	e.GET("/api", h.info)
	auth.RegisterRoutesWithGroup(e.Group("/api/auth"), authService, authMiddleware)

	// The signed-in user's own account, always behind a token.
	users.RegisterAccountRoutes(e.Group("/api/user"), userService, authService, authMiddleware)

	// Reading API. Anonymous access is allowed when auth is disabled, but a
	// valid token still identifies admins so they can read locked chapters.
	public := e.Group("/api", authMiddleware.AuthenticateIf(cfg.EnableAuth))
	public.GET("/images/:file", h.image)
	works.RegisterPublicRoutes(public, workService, hierarchyService)

	admin := e.Group("/admin/api",
		authMiddleware.Authenticate,
		authMiddleware.RequireAdmin,
		middleware.BodyLimit(cfg.MaxUploadSize),
	)
	works.RegisterAdminRoutes(admin, workService, hierarchyService)
	hierarchy.RegisterRoutesWithGroup(admin, hierarchyService)
	reclaimer.RegisterRoutesWithGroup(admin, rec)
	users.RegisterAdminRoutes(admin, userService)

	if cfg.Environment == "test" {
		testutils.RegisterRoutes(e, db)
	}

	e.RouteNotFound("/*", notFoundHandler)
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	return e, nil
}

func notFoundHandler(c echo.Context) error {
	c.SetPath("/:path")
	return errcodes.NotFound("Page")
}
