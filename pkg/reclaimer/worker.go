package reclaimer

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mankai/mankai-server/pkg/config"
	"github.com/mankai/mankai-server/pkg/database"
	"github.com/mankai/mankai-server/pkg/imagestore"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"
	"golang.org/x/time/rate"
)

// StagingMaxAge is how old an abandoned staged upload has to be before the
// periodic sweep removes it.
const StagingMaxAge = time.Hour

var sweepBackoff = database.Backoff{Base: 500 * time.Millisecond, Max: 30 * time.Second}

// Reclaimer removes orphaned images in the background. Sweeps run on a single
// goroutine, either periodically or when triggered after a delete.
type Reclaimer struct {
	config *config.Config
	log    logger.Logger

	db      *bun.DB
	images  *imagestore.Store
	limiter *rate.Limiter
	backoff database.Backoff

	trigger  chan struct{}
	shutdown chan struct{}
	done     chan struct{}
}

func New(cfg *config.Config, db *bun.DB, images *imagestore.Store) *Reclaimer {
	return &Reclaimer{
		config: cfg,
		log:    logger.New(),

		db:      db,
		images:  images,
		limiter: rate.NewLimiter(rate.Every(cfg.ReclaimMinGap), 1),
		backoff: sweepBackoff,

		trigger:  make(chan struct{}, 1),
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Trigger asks for a sweep without blocking. Triggers that arrive while one
// is already pending are merged into it.
func (r *Reclaimer) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

func (r *Reclaimer) Start() {
	go r.run()
}

func (r *Reclaimer) run() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-r.shutdown
		cancel()
	}()

	var tick <-chan time.Time
	if r.config.ReclaimInterval > 0 {
		ticker := time.NewTicker(r.config.ReclaimInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-r.shutdown:
			r.done <- struct{}{}
			return
		case <-tick:
			r.sweep(ctx, "interval")
			r.pruneStaging()
		case <-r.trigger:
			r.sweep(ctx, "trigger")
		}
	}
}

// sweep runs one sweep, retrying storage failures with backoff. Outcomes are
// only logged; a failed sweep leaves the orphans for the next one.
func (r *Reclaimer) sweep(ctx context.Context, reason string) {
	id, err := uuid.NewRandom()
	if err != nil {
		r.log.Err(err).Error("new uuid error")
		return
	}
	log := r.log.ID(id.String()).Root(logger.Data{"reason": reason})
	ctx = log.WithContext(ctx)

	if err := r.limiter.Wait(ctx); err != nil {
		// Only happens on shutdown.
		return
	}

	started := time.Now()
	var stats SweepStats
	err = r.backoff.Retry(ctx, r.config.ReclaimMaxRetries, shouldRetry, func() error {
		var err error
		stats, err = Sweep(ctx, r.db, r.images)
		if err != nil {
			log.Err(err).Warn("sweep attempt failed")
		}
		return err
	})
	if err != nil {
		log.Err(err).Error("sweep failed")
		return
	}

	log.Info("sweep finished", logger.Data{
		"found":       stats.Found,
		"deleted":     stats.Deleted,
		"skipped":     stats.Skipped,
		"file_errors": stats.FileErrors,
		"duration_ms": time.Since(started).Milliseconds(),
	})
}

func (r *Reclaimer) pruneStaging() {
	n, err := r.images.PruneStaging(StagingMaxAge)
	if err != nil {
		r.log.Err(err).Warn("failed to prune staging directory")
		return
	}
	if n > 0 {
		r.log.Info("pruned abandoned uploads", logger.Data{"count": n})
	}
}

// SweepNow runs a sweep on the calling goroutine, outside the rate limit.
func (r *Reclaimer) SweepNow(ctx context.Context) (SweepStats, error) {
	return Sweep(ctx, r.db, r.images)
}

func (r *Reclaimer) Shutdown() {
	close(r.shutdown)
	<-r.done
}

func shouldRetry(err error) bool {
	return !errors.Is(err, context.Canceled)
}
