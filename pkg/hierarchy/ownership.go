package hierarchy

import (
	"context"

	"github.com/mankai/mankai-server/pkg/errcodes"
	"github.com/mankai/mankai-server/pkg/models"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/pointerutil"
	"github.com/uptrace/bun"
)

// Path names a node of the tree by the ids of all of its ancestors. Each id
// has to be a child of the one before it.
type Path struct {
	WorkID    int
	GroupID   *int
	ChapterID *int
	ImageID   *int
}

func WorkPath(workID int) Path {
	return Path{WorkID: workID}
}

func GroupPath(workID, groupID int) Path {
	return Path{WorkID: workID, GroupID: pointerutil.Int(groupID)}
}

func ChapterPath(workID, groupID, chapterID int) Path {
	return Path{WorkID: workID, GroupID: pointerutil.Int(groupID), ChapterID: pointerutil.Int(chapterID)}
}

func ImagePath(workID, groupID, chapterID, imageID int) Path {
	return Path{WorkID: workID, GroupID: pointerutil.Int(groupID), ChapterID: pointerutil.Int(chapterID), ImageID: pointerutil.Int(imageID)}
}

// VerifyOwnership reports whether every id of the path is a child of the one
// before it.
func VerifyOwnership(ctx context.Context, db bun.IDB, path Path) (bool, error) {
	failing, err := firstBrokenLink(ctx, db, path)
	if err != nil {
		return false, err
	}
	return failing == "", nil
}

// RequireOwnership is VerifyOwnership for write paths: a broken chain is a
// NotFound naming the first entity that isn't where the path says it is.
func RequireOwnership(ctx context.Context, db bun.IDB, path Path) error {
	failing, err := firstBrokenLink(ctx, db, path)
	if err != nil {
		return err
	}
	if failing != "" {
		return errcodes.NotFound(failing)
	}
	return nil
}

func firstBrokenLink(ctx context.Context, db bun.IDB, path Path) (string, error) {
	ok, err := db.NewSelect().
		Model((*models.Work)(nil)).
		Where("w.id = ?", path.WorkID).
		Exists(ctx)
	if err != nil {
		return "", errors.WithStack(err)
	}
	if !ok {
		return EntityWork, nil
	}

	if path.GroupID == nil {
		if path.ChapterID != nil || path.ImageID != nil {
			return EntityGroup, nil
		}
		return "", nil
	}
	ok, err = db.NewSelect().
		Model((*models.ChapterGroup)(nil)).
		Where("cg.id = ?", *path.GroupID).
		Where("cg.work_id = ?", path.WorkID).
		Exists(ctx)
	if err != nil {
		return "", errors.WithStack(err)
	}
	if !ok {
		return EntityGroup, nil
	}

	if path.ChapterID == nil {
		if path.ImageID != nil {
			return EntityChapter, nil
		}
		return "", nil
	}
	ok, err = db.NewSelect().
		Model((*models.Chapter)(nil)).
		Where("ch.id = ?", *path.ChapterID).
		Where("ch.group_id = ?", *path.GroupID).
		Exists(ctx)
	if err != nil {
		return "", errors.WithStack(err)
	}
	if !ok {
		return EntityChapter, nil
	}

	if path.ImageID == nil {
		return "", nil
	}
	ok, err = db.NewSelect().
		Model((*models.Image)(nil)).
		Where("img.id = ?", *path.ImageID).
		Where("img.chapter_id = ?", *path.ChapterID).
		Exists(ctx)
	if err != nil {
		return "", errors.WithStack(err)
	}
	if !ok {
		return EntityImage, nil
	}

	return "", nil
}
