package hierarchy

import (
	"context"
	"time"

	"github.com/mankai/mankai-server/pkg/errcodes"
	"github.com/mankai/mankai-server/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

// NextImageSequence returns the sequence the next page of the chapter gets:
// one past the highest existing one, or 1 for an empty chapter. It must run
// in the transaction that inserts the images.
//
// The chapter row is written before reading so the transaction holds the
// write lock from that point on and two uploads to the same chapter can't
// both read the same maximum.
func NextImageSequence(ctx context.Context, tx bun.IDB, chapterID int) (int, error) {
	res, err := tx.NewUpdate().
		Model((*models.Chapter)(nil)).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", chapterID).
		Exec(ctx)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, errcodes.NotFound(EntityChapter)
	}

	var next int
	err = tx.NewSelect().
		Model((*models.Image)(nil)).
		ColumnExpr("COALESCE(MAX(img.sequence), 0) + 1").
		Where("img.chapter_id = ?", chapterID).
		Scan(ctx, &next)
	if err != nil {
		return 0, errors.WithStack(err)
	}

	return next, nil
}
