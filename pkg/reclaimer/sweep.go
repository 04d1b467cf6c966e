package reclaimer

import (
	"context"

	"github.com/mankai/mankai-server/pkg/imagestore"
	"github.com/mankai/mankai-server/pkg/models"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"
)

// SweepStats summarizes a single sweep.
type SweepStats struct {
	// Found is the number of orphans seen when the sweep started.
	Found int `json:"found"`
	// Deleted orphans had their row removed.
	Deleted int `json:"deleted"`
	// Skipped orphans were attached again, or deleted by another sweep,
	// before this one got to them.
	Skipped int `json:"skipped"`
	// FileErrors counts deleted orphans whose file couldn't be removed.
	FileErrors int `json:"file_errors"`
}

// ListOrphans returns the ids of images that belong to neither a chapter nor
// a work.
func ListOrphans(ctx context.Context, db bun.IDB) ([]int, error) {
	ids := []int{}
	err := db.NewSelect().
		Model((*models.Image)(nil)).
		Column("img.id").
		Where("img.chapter_id IS NULL AND img.work_id IS NULL").
		Order("img.id ASC").
		Scan(ctx, &ids)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return ids, nil
}

// Sweep deletes every orphan row, then its file. The orphan condition is
// checked again by the DELETE itself, so an image attached after the listing
// survives. A file that can't be removed is logged and counted, but the row
// stays deleted and the sweep moves on.
//
// Running sweeps concurrently is safe: the row delete is a no-op for the
// sweep that gets there second, and a missing file counts as removed.
func Sweep(ctx context.Context, db bun.IDB, images *imagestore.Store) (SweepStats, error) {
	log := logger.FromContext(ctx)
	stats := SweepStats{}

	ids, err := ListOrphans(ctx, db)
	if err != nil {
		return stats, err
	}
	stats.Found = len(ids)

	for _, id := range ids {
		res, err := db.NewDelete().
			Model((*models.Image)(nil)).
			Where("id = ?", id).
			Where("chapter_id IS NULL AND work_id IS NULL").
			Exec(ctx)
		if err != nil {
			return stats, errors.WithStack(err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			stats.Skipped++
			continue
		}
		stats.Deleted++

		if err := images.Delete(id); err != nil {
			stats.FileErrors++
			log.Err(err).Warn("failed to remove orphaned image file", logger.Data{"image_id": id})
		}
	}

	return stats, nil
}
