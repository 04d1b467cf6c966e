package hierarchy

import (
	"context"
	"time"

	"github.com/mankai/mankai-server/pkg/errcodes"
	"github.com/mankai/mankai-server/pkg/htmlutil"
	"github.com/mankai/mankai-server/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

// Entity names used in NotFound errors.
const (
	EntityWork    = "Work"
	EntityGroup   = "Chapter group"
	EntityChapter = "Chapter"
	EntityImage   = "Image"
)

// WorkFields holds the scalar fields of a work to change. Nil fields are left
// alone. An empty Description clears it.
type WorkFields struct {
	Title       *string
	Status      *models.Status
	Description *string
	Authors     *[]string
	Genres      *[]models.Genre
	Remarks     *string
}

type GroupFields struct {
	Title    *string
	Sequence *int
}

type ChapterFields struct {
	Title    *string
	Sequence *int
	Locked   *bool
}

// UpdateWorkFields updates the scalars of a work and, when given, replaces its
// authors and genres. updated_at is always bumped, so a missing work is
// reported as NotFound even when nothing else changes.
func UpdateWorkFields(ctx context.Context, db bun.IDB, workID int, fields WorkFields) error {
	work := &models.Work{ID: workID, UpdatedAt: time.Now()}
	columns := []string{"updated_at"}

	if fields.Title != nil {
		work.Title = htmlutil.Sanitize(*fields.Title)
		if work.Title == "" {
			return errcodes.ValidationError(`"title" can't be blank`)
		}
		columns = append(columns, "title")
	}
	if fields.Status != nil {
		work.Status = *fields.Status
		columns = append(columns, "status")
	}
	if fields.Description != nil {
		if d := htmlutil.StripTags(*fields.Description); d != "" {
			work.Description = &d
		}
		columns = append(columns, "description")
	}
	if fields.Remarks != nil {
		work.Remarks = htmlutil.StripTags(*fields.Remarks)
		columns = append(columns, "remarks")
	}

	res, err := db.NewUpdate().
		Model(work).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errcodes.NotFound(EntityWork)
	}

	if fields.Authors != nil {
		if err := ReplaceAuthors(ctx, db, workID, *fields.Authors); err != nil {
			return err
		}
	}
	if fields.Genres != nil {
		if err := ReplaceGenres(ctx, db, workID, *fields.Genres); err != nil {
			return err
		}
	}

	return nil
}

// ReplaceAuthors deletes the authors of a work and inserts the given ones in
// order.
func ReplaceAuthors(ctx context.Context, db bun.IDB, workID int, names []string) error {
	_, err := db.NewDelete().
		Model((*models.WorkAuthor)(nil)).
		Where("work_id = ?", workID).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	names = htmlutil.SanitizeAll(names)
	if len(names) == 0 {
		return nil
	}

	authors := make([]*models.WorkAuthor, 0, len(names))
	for i, name := range names {
		authors = append(authors, &models.WorkAuthor{WorkID: workID, Name: name, Sequence: i + 1})
	}
	_, err = db.NewInsert().Model(&authors).Exec(ctx)
	return errors.WithStack(err)
}

// ReplaceGenres deletes the genres of a work and inserts the given ones in
// order. Repeats are dropped.
func ReplaceGenres(ctx context.Context, db bun.IDB, workID int, genres []models.Genre) error {
	_, err := db.NewDelete().
		Model((*models.WorkGenre)(nil)).
		Where("work_id = ?", workID).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	seen := map[models.Genre]bool{}
	rows := make([]*models.WorkGenre, 0, len(genres))
	for _, g := range genres {
		if !g.Valid() {
			return errcodes.ValidationError(`"genres" contains an unknown genre`)
		}
		if seen[g] {
			continue
		}
		seen[g] = true
		rows = append(rows, &models.WorkGenre{WorkID: workID, Genre: g, Sequence: len(rows) + 1})
	}
	if len(rows) == 0 {
		return nil
	}

	_, err = db.NewInsert().Model(&rows).Exec(ctx)
	return errors.WithStack(err)
}

// UpdateGroupFields changes a group in place. Ownership has to be checked by
// the caller.
func UpdateGroupFields(ctx context.Context, db bun.IDB, groupID int, fields GroupFields) error {
	group := &models.ChapterGroup{ID: groupID, UpdatedAt: time.Now()}
	columns := []string{"updated_at"}

	if fields.Title != nil {
		group.Title = htmlutil.Sanitize(*fields.Title)
		columns = append(columns, "title")
	}
	if fields.Sequence != nil {
		group.Sequence = *fields.Sequence
		columns = append(columns, "sequence")
	}

	return updateColumns(ctx, db, group, columns, EntityGroup)
}

// UpdateChapterFields changes a chapter in place. Ownership has to be checked
// by the caller.
func UpdateChapterFields(ctx context.Context, db bun.IDB, chapterID int, fields ChapterFields) error {
	chapter := &models.Chapter{ID: chapterID, UpdatedAt: time.Now()}
	columns := []string{"updated_at"}

	if fields.Title != nil {
		chapter.Title = htmlutil.Sanitize(*fields.Title)
		columns = append(columns, "title")
	}
	if fields.Sequence != nil {
		chapter.Sequence = *fields.Sequence
		columns = append(columns, "sequence")
	}
	if fields.Locked != nil {
		chapter.Locked = *fields.Locked
		columns = append(columns, "locked")
	}

	return updateColumns(ctx, db, chapter, columns, EntityChapter)
}

// UpdateImageSequence moves a page within its chapter. Sequences aren't
// checked for collisions; reads break ties by id.
func UpdateImageSequence(ctx context.Context, db bun.IDB, imageID, sequence int) error {
	image := &models.Image{ID: imageID, Sequence: sequence, UpdatedAt: time.Now()}
	return updateColumns(ctx, db, image, []string{"sequence", "updated_at"}, EntityImage)
}

func updateColumns(ctx context.Context, db bun.IDB, model any, columns []string, entity string) error {
	res, err := db.NewUpdate().
		Model(model).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errcodes.NotFound(entity)
	}
	return nil
}
