package main

import (
	"context"
	"net"
	"net/http"

	"github.com/mankai/mankai-server/pkg/auth"
	"github.com/mankai/mankai-server/pkg/config"
	"github.com/mankai/mankai-server/pkg/database"
	"github.com/mankai/mankai-server/pkg/imagestore"
	"github.com/mankai/mankai-server/pkg/migrations"
	"github.com/mankai/mankai-server/pkg/reclaimer"
	"github.com/mankai/mankai-server/pkg/server"
	"github.com/mankai/mankai-server/pkg/version"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/robinjoseph08/golib/signals"
)

func main() {
	log := logger.New()
	ctx := log.WithContext(context.Background())

	log.Info("starting mankai", logger.Data{"version": version.Version})

	cfg, err := config.New()
	if err != nil {
		log.Err(err).Fatal("config error")
	}

	images, err := imagestore.New(cfg)
	if err != nil {
		log.Err(err).Fatal("image directory error")
	}
	pruned, err := images.PruneStaging(reclaimer.StagingMaxAge)
	if err != nil {
		log.Err(err).Warn("failed to prune staging directory")
	}
	log.Info("image directory initialized", logger.Data{"path": images.Dir(), "pruned_staging_files": pruned})

	db, err := database.New(cfg)
	if err != nil {
		log.Err(err).Fatal("database error")
	}

	group, err := migrations.BringUpToDate(ctx, db)
	if err != nil {
		log.Err(err).Fatal("migrations error")
	}
	if group.ID == 0 {
		log.Info("no new migrations to run")
	} else {
		log.Info("migrated to new group", logger.Data{"group_id": group.ID, "migration_names": group.Migrations.String()})
	}

	if _, err := auth.NewService(db, cfg).EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Err(err).Fatal("admin bootstrap error")
	}
	if !cfg.EnableAuth {
		log.Warn("authentication is disabled for the public api")
	}

	rec := reclaimer.New(cfg, db, images)

	srv, err := server.New(cfg, db, images, rec)
	if err != nil {
		log.Err(err).Fatal("server error")
	}

	graceful := signals.Setup()

	go func() {
		lc := net.ListenConfig{}
		listener, err := lc.Listen(ctx, "tcp", srv.Addr)
		if err != nil {
			log.Err(err).Fatal("failed to bind port")
		}
		log.Info("server started", logger.Data{"addr": listener.Addr().String()})

		err = srv.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Err(err).Fatal("server stopped")
		}
		log.Info("server stopped")
	}()

	rec.Start()
	log.Info("reclaimer started", logger.Data{"interval": cfg.ReclaimInterval.String()})

	<-graceful
	log.Info("starting graceful shutdown")

	err = srv.Shutdown(ctx)
	if err != nil {
		log.Err(err).Error("server shutdown error")
	}
	log.Info("server shutdown")

	rec.Shutdown()
	log.Info("reclaimer shutdown")

	err = db.Close()
	if err != nil {
		log.Err(err).Error("database close error")
	}
	log.Info("database closed")
}
