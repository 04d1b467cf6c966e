package works

import (
	"context"
	"database/sql"
	"time"

	"github.com/mankai/mankai-server/pkg/hierarchy"
	"github.com/mankai/mankai-server/pkg/imagestore"
	"github.com/mankai/mankai-server/pkg/models"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"
)

// Edit is a nested change to a work. Nil fields are left alone. Groups and
// chapters without an id are skipped; nothing is created through an edit.
type Edit struct {
	hierarchy.WorkFields
	Cover         []byte
	ChapterGroups []GroupEdit
}

type GroupEdit struct {
	ID *int
	hierarchy.GroupFields
	Chapters []ChapterEdit
}

type ChapterEdit struct {
	ID *int
	hierarchy.ChapterFields
	Images []ImageEdit
}

type ImageEdit struct {
	ID       *int
	Sequence *int
}

// ApplyEdit applies a nested edit in a single transaction. Every nested id has
// to belong to the parent it's listed under; the first one that doesn't
// aborts the whole edit with NotFound.
//
// A new cover is promoted inside the transaction and removed again if the
// commit fails. A replacement cover is only swapped in after the commit, since
// the old file is still referenced until then.
func (svc *Service) ApplyEdit(ctx context.Context, workID int, edit Edit) (*models.Work, error) {
	log := logger.FromContext(ctx)

	var staged *imagestore.Staged
	if len(edit.Cover) > 0 {
		st, err := svc.images.Stage(edit.Cover)
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

	var createdCoverID, replacedCoverID *int
	err := svc.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := hierarchy.UpdateWorkFields(ctx, tx, workID, edit.WorkFields); err != nil {
			return err
		}

		for _, group := range edit.ChapterGroups {
			if err := applyGroupEdit(ctx, tx, workID, group); err != nil {
				return err
			}
		}

		if staged == nil {
			return nil
		}

		now := time.Now()
		cover := &models.Image{}
		err := tx.NewSelect().Model(cover).Where("img.work_id = ?", workID).Scan(ctx)
		switch {
		case err == nil:
			_, err = tx.NewUpdate().
				Model(cover).
				Set("updated_at = ?", now).
				WherePK().
				Exec(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
			replacedCoverID = &cover.ID
			return nil
		case !errors.Is(err, sql.ErrNoRows):
			return errors.WithStack(err)
		}

		cover = &models.Image{CreatedAt: now, UpdatedAt: now, WorkID: &workID}
		if _, err := tx.NewInsert().Model(cover).Exec(ctx); err != nil {
			return errors.WithStack(err)
		}
		if err := staged.Promote(cover.ID); err != nil {
			return err
		}
		createdCoverID = &cover.ID
		return nil
	})
	if err != nil {
		if createdCoverID != nil {
			svc.removeFile(ctx, *createdCoverID)
		}
		return nil, errors.WithStack(err)
	}

	if replacedCoverID != nil {
		if err := staged.Promote(*replacedCoverID); err != nil {
			log.Err(err).Error("failed to replace cover file", logger.Data{"work_id": workID, "image_id": *replacedCoverID})
		}
	}

	log.Info("work edited", logger.Data{"work_id": workID, "groups": len(edit.ChapterGroups), "cover": staged != nil})
	return svc.RetrieveWork(ctx, RetrieveWorkOptions{ID: workID, WithImages: true})
}

func applyGroupEdit(ctx context.Context, tx bun.IDB, workID int, edit GroupEdit) error {
	if edit.ID == nil {
		return nil
	}
	groupID := *edit.ID
	if err := hierarchy.RequireOwnership(ctx, tx, hierarchy.GroupPath(workID, groupID)); err != nil {
		return err
	}
	if err := hierarchy.UpdateGroupFields(ctx, tx, groupID, edit.GroupFields); err != nil {
		return err
	}

	for _, chapter := range edit.Chapters {
		if chapter.ID == nil {
			continue
		}
		chapterID := *chapter.ID
		if err := hierarchy.RequireOwnership(ctx, tx, hierarchy.ChapterPath(workID, groupID, chapterID)); err != nil {
			return err
		}
		if err := hierarchy.UpdateChapterFields(ctx, tx, chapterID, chapter.ChapterFields); err != nil {
			return err
		}

		for _, image := range chapter.Images {
			if image.ID == nil {
				continue
			}
			if err := hierarchy.RequireOwnership(ctx, tx, hierarchy.ImagePath(workID, groupID, chapterID, *image.ID)); err != nil {
				return err
			}
			if image.Sequence == nil {
				continue
			}
			if err := hierarchy.UpdateImageSequence(ctx, tx, *image.ID, *image.Sequence); err != nil {
				return err
			}
		}
	}

	return nil
}
