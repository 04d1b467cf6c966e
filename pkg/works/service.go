package works

import (
	"context"
	"database/sql"
	"time"

	"github.com/mankai/mankai-server/pkg/errcodes"
	"github.com/mankai/mankai-server/pkg/hierarchy"
	"github.com/mankai/mankai-server/pkg/htmlutil"
	"github.com/mankai/mankai-server/pkg/imagestore"
	"github.com/mankai/mankai-server/pkg/models"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"
)

// PageSize is the number of works per page of the public list.
const PageSize = 50

type CreateWorkOptions struct {
	Title       string
	Status      models.Status
	Description *string
	Authors     []string
	Genres      []models.Genre
	Remarks     string
	Cover       []byte
}

type RetrieveWorkOptions struct {
	ID int
	// WithImages also loads the pages of every chapter.
	WithImages bool
}

type ListWorksOptions struct {
	Limit  *int
	Offset *int
	Status models.Status
	Genre  *models.Genre
	IDs    []int
}

type Service struct {
	db        *bun.DB
	images    *imagestore.Store
	reclaimer hierarchy.Reclaimer
}

func NewService(db *bun.DB, images *imagestore.Store, reclaimer hierarchy.Reclaimer) *Service {
	return &Service{db: db, images: images, reclaimer: reclaimer}
}

// CreateWork inserts a work with its authors, genres and optional cover. The
// cover is transcoded before the transaction starts and promoted inside it, so
// a bad image never leaves a work behind and a failed commit removes the file.
func (svc *Service) CreateWork(ctx context.Context, opts CreateWorkOptions) (*models.Work, error) {
	log := logger.FromContext(ctx)

	title := htmlutil.Sanitize(opts.Title)
	if title == "" {
		return nil, errcodes.ValidationError(`"title" can't be blank`)
	}

	var staged *imagestore.Staged
	if len(opts.Cover) > 0 {
		st, err := svc.images.Stage(opts.Cover)
		if err != nil {
			return nil, err
		}
		staged = st
		defer func() {
			if err := staged.Discard(); err != nil {
				log.Err(err).Warn("failed to discard staged cover")
			}
		}()
	}

	now := time.Now()
	work := &models.Work{
		CreatedAt: now,
		UpdatedAt: now,
		Title:     title,
		Status:    opts.Status,
		Remarks:   htmlutil.StripTags(opts.Remarks),
	}
	if opts.Description != nil {
		if d := htmlutil.StripTags(*opts.Description); d != "" {
			work.Description = &d
		}
	}

	var coverID *int
	err := svc.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(work).Exec(ctx); err != nil {
			return errors.WithStack(err)
		}
		if err := hierarchy.ReplaceAuthors(ctx, tx, work.ID, opts.Authors); err != nil {
			return err
		}
		if err := hierarchy.ReplaceGenres(ctx, tx, work.ID, opts.Genres); err != nil {
			return err
		}
		if staged == nil {
			return nil
		}

		cover := &models.Image{CreatedAt: now, UpdatedAt: now, WorkID: &work.ID}
		if _, err := tx.NewInsert().Model(cover).Exec(ctx); err != nil {
			return errors.WithStack(err)
		}
		if err := staged.Promote(cover.ID); err != nil {
			return err
		}
		coverID = &cover.ID
		return nil
	})
	if err != nil {
		if coverID != nil {
			svc.removeFile(ctx, *coverID)
		}
		return nil, errors.WithStack(err)
	}

	log.Info("work created", logger.Data{"work_id": work.ID, "has_cover": coverID != nil})
	return svc.RetrieveWork(ctx, RetrieveWorkOptions{ID: work.ID})
}

// RetrieveWork returns a work with its authors, genres, cover and chapter
// groups, everything in reading order.
func (svc *Service) RetrieveWork(ctx context.Context, opts RetrieveWorkOptions) (*models.Work, error) {
	work := &models.Work{}

	q := svc.db.
		NewSelect().
		Model(work).
		Relation("Authors", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Order("wa.sequence ASC")
		}).
		Relation("Genres", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Order("wg.sequence ASC")
		}).
		Relation("Cover").
		Relation("ChapterGroups", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Order("cg.sequence ASC", "cg.id ASC")
		}).
		Relation("ChapterGroups.Chapters", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Order("ch.sequence ASC", "ch.id ASC")
		}).
		Where("w.id = ?", opts.ID)

	if opts.WithImages {
		q = q.Relation("ChapterGroups.Chapters.Images", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Order("img.sequence ASC", "img.id ASC")
		})
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound(hierarchy.EntityWork)
		}
		return nil, errors.WithStack(err)
	}

	return work, nil
}

// ListWorks returns works with their authors, genres and cover, most recently
// updated first, along with the total number of matches.
func (svc *Service) ListWorks(ctx context.Context, opts ListWorksOptions) ([]*models.Work, int, error) {
	works := []*models.Work{}

	q := svc.db.
		NewSelect().
		Model(&works).
		Relation("Authors", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Order("wa.sequence ASC")
		}).
		Relation("Genres", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Order("wg.sequence ASC")
		}).
		Relation("Cover").
		Order("w.updated_at DESC", "w.id DESC")

	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}
	if opts.Status != models.StatusAny {
		q = q.Where("w.status = ?", opts.Status)
	}
	if opts.Genre != nil {
		q = q.Where("w.id IN (?)", svc.db.NewSelect().
			Model((*models.WorkGenre)(nil)).
			Column("wg.work_id").
			Where("wg.genre = ?", *opts.Genre))
	}
	if opts.IDs != nil {
		if len(opts.IDs) == 0 {
			return works, 0, nil
		}
		q = q.Where("w.id IN (?)", bun.In(opts.IDs))
	}

	total, err := q.ScanAndCount(ctx)
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	return works, total, nil
}

// LatestChapters returns the most recently created chapter of each of the
// given works. Works without chapters are absent from the map.
func (svc *Service) LatestChapters(ctx context.Context, workIDs []int) (map[int]*models.Chapter, error) {
	latest := map[int]*models.Chapter{}
	if len(workIDs) == 0 {
		return latest, nil
	}

	var rows []struct {
		WorkID    int       `bun:"work_id"`
		ID        int       `bun:"id"`
		Title     string    `bun:"title"`
		Locked    bool      `bun:"locked"`
		CreatedAt time.Time `bun:"created_at"`
	}
	err := svc.db.NewSelect().
		Model((*models.Chapter)(nil)).
		ColumnExpr("cg.work_id, ch.id, ch.title, ch.locked, ch.created_at").
		Join("JOIN chapter_groups AS cg ON cg.id = ch.group_id").
		Where("cg.work_id IN (?)", bun.In(workIDs)).
		Order("ch.created_at DESC", "ch.id DESC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	// Rows are newest first, so the first one seen for a work wins.
	for _, row := range rows {
		if _, ok := latest[row.WorkID]; ok {
			continue
		}
		latest[row.WorkID] = &models.Chapter{
			ID:        row.ID,
			CreatedAt: row.CreatedAt,
			Title:     row.Title,
			Locked:    row.Locked,
		}
	}

	return latest, nil
}

// DeleteWork deletes a work and its whole tree in one transaction. The cover
// and every page are detached rather than deleted; the reclaimer removes them.
func (svc *Service) DeleteWork(ctx context.Context, workID int) error {
	err := svc.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := hierarchy.RequireOwnership(ctx, tx, hierarchy.WorkPath(workID)); err != nil {
			return err
		}

		_, err := tx.NewUpdate().
			Model((*models.Image)(nil)).
			Set("work_id = NULL").
			Set("updated_at = ?", time.Now()).
			Where("work_id = ?", workID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		var groupIDs []int
		err = tx.NewSelect().
			Model((*models.ChapterGroup)(nil)).
			Column("cg.id").
			Where("cg.work_id = ?", workID).
			Scan(ctx, &groupIDs)
		if err != nil {
			return errors.WithStack(err)
		}
		if err := hierarchy.DeleteGroupTree(ctx, tx, groupIDs); err != nil {
			return err
		}

		for _, model := range []any{(*models.WorkAuthor)(nil), (*models.WorkGenre)(nil)} {
			_, err := tx.NewDelete().Model(model).Where("work_id = ?", workID).Exec(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
		}

		_, err = tx.NewDelete().
			Model((*models.Work)(nil)).
			Where("id = ?", workID).
			Exec(ctx)
		return errors.WithStack(err)
	})
	if err != nil {
		return errors.WithStack(err)
	}

	logger.FromContext(ctx).Info("work deleted", logger.Data{"work_id": workID})
	svc.triggerReclaim()
	return nil
}

func (svc *Service) removeFile(ctx context.Context, id int) {
	if err := svc.images.Delete(id); err != nil {
		logger.FromContext(ctx).Err(err).Error("failed to remove image file", logger.Data{"image_id": id})
	}
}

func (svc *Service) triggerReclaim() {
	if svc.reclaimer != nil {
		svc.reclaimer.Trigger()
	}
}
