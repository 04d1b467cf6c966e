package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/mankai/mankai-server/pkg/config"
	"github.com/mankai/mankai-server/pkg/database"
	"github.com/mankai/mankai-server/pkg/imagestore"
	"github.com/mankai/mankai-server/pkg/reclaimer"
	"github.com/robinjoseph08/golib/logger"
	"github.com/segmentio/encoding/json"
)

func main() {
	log := logger.New()
	ctx := log.WithContext(context.Background())

	var opts struct {
		DryRun       bool `short:"n" long:"dry-run" description:"List orphaned images without deleting anything"`
		PruneStaging bool `long:"prune-staging" description:"Also remove abandoned staged uploads"`
	}

	args, err := flags.Parse(&opts)
	if err != nil {
		if flags.WroteHelp(err) {
			os.Exit(0)
		}
		log.Err(err).Fatal("flags parse error")
	}
	if len(args) != 0 {
		fmt.Println("go run ./cmd/sweep [--dry-run] [--prune-staging]")
		os.Exit(1)
	}

	cfg, err := config.New()
	if err != nil {
		log.Err(err).Fatal("config error")
	}

	db, err := database.New(cfg)
	if err != nil {
		log.Err(err).Fatal("database error")
	}
	defer db.Close()

	images, err := imagestore.New(cfg)
	if err != nil {
		log.Err(err).Fatal("image directory error")
	}

	if opts.DryRun {
		ids, err := reclaimer.ListOrphans(ctx, db)
		if err != nil {
			log.Err(err).Fatal("list orphans error")
		}
		for _, id := range ids {
			fmt.Printf("%d\t%s\n", id, images.Path(id))
		}
		fmt.Printf("%d orphaned images\n", len(ids))
		return
	}

	if opts.PruneStaging {
		n, err := images.PruneStaging(reclaimer.StagingMaxAge)
		if err != nil {
			log.Err(err).Fatal("prune staging error")
		}
		log.Info("pruned staging directory", logger.Data{"count": n})
	}

	stats, err := reclaimer.Sweep(ctx, db, images)
	if err != nil {
		log.Err(err).Fatal("sweep error")
	}

	out, err := json.Marshal(stats)
	if err != nil {
		log.Err(err).Fatal("encode stats error")
	}
	fmt.Println(string(out))
}
