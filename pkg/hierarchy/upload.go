package hierarchy

import (
	"context"
	"fmt"
	"time"

	"github.com/mankai/mankai-server/pkg/errcodes"
	"github.com/mankai/mankai-server/pkg/imagestore"
	"github.com/mankai/mankai-server/pkg/models"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"
)

// UploadImages appends pages to the end of a chapter and returns them in
// upload order.
//
// Every payload is transcoded to the staging area first, so an invalid image
// rejects the whole upload before any row exists. Files are promoted right
// after their row is inserted, inside the transaction; if the transaction
// fails the promoted files are removed again.
func (svc *Service) UploadImages(ctx context.Context, workID, groupID, chapterID int, raws [][]byte) ([]*models.Image, error) {
	log := logger.FromContext(ctx)

	if len(raws) == 0 {
		return nil, errcodes.ValidationError(`"images" length must be greater than or equal to 1 element`)
	}

	staged := make([]*imagestore.Staged, 0, len(raws))
	defer func() {
		for _, st := range staged {
			if err := st.Discard(); err != nil {
				log.Err(err).Warn("failed to discard staged image")
			}
		}
	}()
	for i, raw := range raws {
		st, err := svc.images.Stage(raw)
		if err != nil {
			var e *errcodes.Error
			if errors.As(err, &e) {
				return nil, errcodes.InvalidImage(fmt.Sprintf("image %d: %s", i, e.Message))
			}
			return nil, err
		}
		staged = append(staged, st)
	}

	var images []*models.Image
	var promoted []int
	err := svc.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := RequireOwnership(ctx, tx, ChapterPath(workID, groupID, chapterID)); err != nil {
			return err
		}

		next, err := NextImageSequence(ctx, tx, chapterID)
		if err != nil {
			return err
		}

		now := time.Now()
		images = make([]*models.Image, 0, len(staged))
		for i, st := range staged {
			image := &models.Image{
				CreatedAt: now,
				UpdatedAt: now,
				Sequence:  next + i,
				ChapterID: &chapterID,
			}
			if _, err := tx.NewInsert().Model(image).Exec(ctx); err != nil {
				return errors.WithStack(err)
			}
			if err := st.Promote(image.ID); err != nil {
				return err
			}
			promoted = append(promoted, image.ID)
			images = append(images, image)
		}
		return nil
	})
	if err != nil {
		for _, id := range promoted {
			if derr := svc.images.Delete(id); derr != nil {
				log.Err(derr).Error("failed to remove image file of rolled back upload", logger.Data{"image_id": id})
			}
		}
		return nil, errors.WithStack(err)
	}

	log.Info("images uploaded", logger.Data{"chapter_id": chapterID, "count": len(images), "first_sequence": images[0].Sequence})
	return images, nil
}
