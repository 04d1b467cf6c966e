package testutils

import (
	"context"
	"testing"
	"time"

	"github.com/mankai/mankai-server/pkg/models"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"
)

func CreateWork(t testing.TB, db bun.IDB, title string) *models.Work {
	t.Helper()

	now := time.Now()
	work := &models.Work{
		CreatedAt: now,
		UpdatedAt: now,
		Title:     title,
		Status:    models.StatusOngoing,
	}
	_, err := db.NewInsert().Model(work).Exec(context.Background())
	require.NoError(t, err)
	return work
}

func CreateGroup(t testing.TB, db bun.IDB, workID int, title string, sequence int) *models.ChapterGroup {
	t.Helper()

	now := time.Now()
	group := &models.ChapterGroup{
		CreatedAt: now,
		UpdatedAt: now,
		WorkID:    workID,
		Title:     title,
		Sequence:  sequence,
	}
	_, err := db.NewInsert().Model(group).Exec(context.Background())
	require.NoError(t, err)
	return group
}

func CreateChapter(t testing.TB, db bun.IDB, groupID int, title string, sequence int) *models.Chapter {
	t.Helper()

	now := time.Now()
	chapter := &models.Chapter{
		CreatedAt: now,
		UpdatedAt: now,
		GroupID:   groupID,
		Title:     title,
		Sequence:  sequence,
	}
	_, err := db.NewInsert().Model(chapter).Exec(context.Background())
	require.NoError(t, err)
	return chapter
}

// CreateImageRow inserts an image row without a file. chapterID and workID
// may be nil to create an orphan.
func CreateImageRow(t testing.TB, db bun.IDB, chapterID, workID *int, sequence int) *models.Image {
	t.Helper()

	now := time.Now()
	image := &models.Image{
		CreatedAt: now,
		UpdatedAt: now,
		Sequence:  sequence,
		ChapterID: chapterID,
		WorkID:    workID,
	}
	_, err := db.NewInsert().Model(image).Exec(context.Background())
	require.NoError(t, err)
	return image
}

// CreateUser inserts a user hashed at bcrypt's minimum cost to keep tests fast.
func CreateUser(t testing.TB, db bun.IDB, email, password string, isAdmin bool) *models.User {
	t.Helper()

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	now := time.Now()
	user := &models.User{
		CreatedAt:    now,
		UpdatedAt:    now,
		Email:        email,
		PasswordHash: string(hashed),
		IsAdmin:      isAdmin,
	}
	_, err = db.NewInsert().Model(user).Exec(context.Background())
	require.NoError(t, err)
	return user
}
