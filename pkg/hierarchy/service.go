package hierarchy

import (
	"context"
	"database/sql"
	"time"

	"github.com/mankai/mankai-server/pkg/errcodes"
	"github.com/mankai/mankai-server/pkg/htmlutil"
	"github.com/mankai/mankai-server/pkg/imagestore"
	"github.com/mankai/mankai-server/pkg/models"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"
)

// Reclaimer is told when an operation may have left orphaned images behind.
type Reclaimer interface {
	Trigger()
}

type RetrieveChapterOptions struct {
	ID     int
	WorkID *int
}

type Service struct {
	db        *bun.DB
	images    *imagestore.Store
	reclaimer Reclaimer
}

// NewService returns a hierarchy service. reclaimer may be nil, in which case
// orphans wait for the next periodic sweep.
func NewService(db *bun.DB, images *imagestore.Store, reclaimer Reclaimer) *Service {
	return &Service{db: db, images: images, reclaimer: reclaimer}
}

// VerifyOwnership reports whether the path is a valid chain in the tree.
func (svc *Service) VerifyOwnership(ctx context.Context, path Path) (bool, error) {
	return VerifyOwnership(ctx, svc.db, path)
}

func (svc *Service) RequireOwnership(ctx context.Context, path Path) error {
	return RequireOwnership(ctx, svc.db, path)
}

func (svc *Service) CreateGroup(ctx context.Context, workID int, title string, sequence int) (*models.ChapterGroup, error) {
	now := time.Now()
	group := &models.ChapterGroup{
		CreatedAt: now,
		UpdatedAt: now,
		WorkID:    workID,
		Title:     htmlutil.Sanitize(title),
		Sequence:  sequence,
	}

	err := svc.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := RequireOwnership(ctx, tx, WorkPath(workID)); err != nil {
			return err
		}
		_, err := tx.NewInsert().Model(group).Exec(ctx)
		return errors.WithStack(err)
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return group, nil
}

// DeleteGroup deletes a group and its chapters. Their pages are detached and
// left for the reclaimer.
func (svc *Service) DeleteGroup(ctx context.Context, workID, groupID int) error {
	err := svc.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := RequireOwnership(ctx, tx, GroupPath(workID, groupID)); err != nil {
			return err
		}
		return DeleteGroupTree(ctx, tx, []int{groupID})
	})
	if err != nil {
		return errors.WithStack(err)
	}

	logger.FromContext(ctx).Info("chapter group deleted", logger.Data{"work_id": workID, "group_id": groupID})
	svc.triggerReclaim()
	return nil
}

func (svc *Service) CreateChapter(ctx context.Context, workID, groupID int, title string, sequence int, locked bool) (*models.Chapter, error) {
	now := time.Now()
	chapter := &models.Chapter{
		CreatedAt: now,
		UpdatedAt: now,
		GroupID:   groupID,
		Title:     htmlutil.Sanitize(title),
		Sequence:  sequence,
		Locked:    locked,
	}

	err := svc.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := RequireOwnership(ctx, tx, GroupPath(workID, groupID)); err != nil {
			return err
		}
		_, err := tx.NewInsert().Model(chapter).Exec(ctx)
		return errors.WithStack(err)
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return chapter, nil
}

// DeleteChapter deletes a chapter. Its pages are detached and left for the
// reclaimer.
func (svc *Service) DeleteChapter(ctx context.Context, workID, groupID, chapterID int) error {
	err := svc.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := RequireOwnership(ctx, tx, ChapterPath(workID, groupID, chapterID)); err != nil {
			return err
		}
		if err := detachImages(ctx, tx, "chapter_id = ?", chapterID); err != nil {
			return err
		}
		_, err := tx.NewDelete().
			Model((*models.Chapter)(nil)).
			Where("id = ?", chapterID).
			Exec(ctx)
		return errors.WithStack(err)
	})
	if err != nil {
		return errors.WithStack(err)
	}

	logger.FromContext(ctx).Info("chapter deleted", logger.Data{"work_id": workID, "group_id": groupID, "chapter_id": chapterID})
	svc.triggerReclaim()
	return nil
}

// DetachImage removes a page from its chapter without deleting anything. The
// image becomes an orphan unless it's attached again before the next sweep.
func (svc *Service) DetachImage(ctx context.Context, workID, groupID, chapterID, imageID int) error {
	err := svc.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := RequireOwnership(ctx, tx, ImagePath(workID, groupID, chapterID, imageID)); err != nil {
			return err
		}
		_, err := tx.NewUpdate().
			Model((*models.Image)(nil)).
			Set("chapter_id = NULL").
			Set("updated_at = ?", time.Now()).
			Where("id = ?", imageID).
			Exec(ctx)
		return errors.WithStack(err)
	})
	if err != nil {
		return errors.WithStack(err)
	}

	logger.FromContext(ctx).Info("image detached", logger.Data{"chapter_id": chapterID, "image_id": imageID})
	svc.triggerReclaim()
	return nil
}

// AttachImage appends an orphaned image to the end of a chapter. It fails with
// NotFound once the reclaimer has taken the image, and with Conflict if the
// image still belongs somewhere.
func (svc *Service) AttachImage(ctx context.Context, workID, groupID, chapterID, imageID int) (*models.Image, error) {
	image := &models.Image{}

	err := svc.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := RequireOwnership(ctx, tx, ChapterPath(workID, groupID, chapterID)); err != nil {
			return err
		}

		err := tx.NewSelect().Model(image).Where("img.id = ?", imageID).Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errcodes.NotFound(EntityImage)
			}
			return errors.WithStack(err)
		}
		if !image.IsOrphan() {
			return errcodes.Conflict("Image is still attached.")
		}

		next, err := NextImageSequence(ctx, tx, chapterID)
		if err != nil {
			return err
		}

		image.ChapterID = &chapterID
		image.Sequence = next
		image.UpdatedAt = time.Now()
		// The orphan condition is repeated so an attach can't resurrect a row
		// a concurrent sweep already claimed.
		res, err := tx.NewUpdate().
			Model(image).
			Column("chapter_id", "sequence", "updated_at").
			WherePK().
			Where("chapter_id IS NULL AND work_id IS NULL").
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errcodes.NotFound(EntityImage)
		}
		return nil
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return image, nil
}

// RetrieveChapter returns a chapter with its pages in reading order. When
// WorkID is set the chapter must belong to that work.
func (svc *Service) RetrieveChapter(ctx context.Context, opts RetrieveChapterOptions) (*models.Chapter, error) {
	chapter := &models.Chapter{}

	q := svc.db.
		NewSelect().
		Model(chapter).
		Relation("Images", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Order("img.sequence ASC", "img.id ASC")
		}).
		Where("ch.id = ?", opts.ID)

	if opts.WorkID != nil {
		q = q.Where("ch.group_id IN (?)", svc.db.NewSelect().
			Model((*models.ChapterGroup)(nil)).
			Column("cg.id").
			Where("cg.work_id = ?", *opts.WorkID))
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound(EntityChapter)
		}
		return nil, errors.WithStack(err)
	}

	return chapter, nil
}

// ListImages returns the pages of a chapter in reading order.
func (svc *Service) ListImages(ctx context.Context, chapterID int) ([]*models.Image, error) {
	images := []*models.Image{}
	err := svc.db.NewSelect().
		Model(&images).
		Where("img.chapter_id = ?", chapterID).
		Order("img.sequence ASC", "img.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return images, nil
}

// DeleteGroupTree deletes the given groups and their chapters, detaching every
// page first. It only touches rows; files are the reclaimer's job.
func DeleteGroupTree(ctx context.Context, db bun.IDB, groupIDs []int) error {
	if len(groupIDs) == 0 {
		return nil
	}

	err := detachImages(ctx, db, "chapter_id IN (?)", db.NewSelect().
		Model((*models.Chapter)(nil)).
		Column("ch.id").
		Where("ch.group_id IN (?)", bun.In(groupIDs)))
	if err != nil {
		return err
	}

	_, err = db.NewDelete().
		Model((*models.Chapter)(nil)).
		Where("group_id IN (?)", bun.In(groupIDs)).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	_, err = db.NewDelete().
		Model((*models.ChapterGroup)(nil)).
		Where("id IN (?)", bun.In(groupIDs)).
		Exec(ctx)
	return errors.WithStack(err)
}

func detachImages(ctx context.Context, db bun.IDB, where string, args ...any) error {
	_, err := db.NewUpdate().
		Model((*models.Image)(nil)).
		Set("chapter_id = NULL").
		Set("updated_at = ?", time.Now()).
		Where(where, args...).
		Exec(ctx)
	return errors.WithStack(err)
}

func (svc *Service) triggerReclaim() {
	if svc.reclaimer != nil {
		svc.reclaimer.Trigger()
	}
}
