package works

import (
	"image/color"
	"testing"
	"time"

	"github.com/mankai/mankai-server/pkg/hierarchy"
	"github.com/mankai/mankai-server/pkg/models"
	"github.com/mankai/mankai-server/pkg/testutils"
	"github.com/robinjoseph08/golib/pointerutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateWork(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	work, err := env.svc.CreateWork(env.ctx, CreateWorkOptions{
		Title:       "  A <em>Title</em> ",
		Status:      models.StatusOngoing,
		Description: pointerutil.String("<p>About</p>"),
		Authors:     []string{"Alice", "Bob"},
		Genres:      []models.Genre{models.GenreRomance, models.GenreComedy},
		Remarks:     "weekly",
		Cover:       testutils.PNG(t, 20, 30, color.White),
	})
	require.NoError(t, err)

	assert.Equal(t, "A Title", work.Title)
	assert.Equal(t, "About", *work.Description)
	assert.Equal(t, []string{"Alice", "Bob"}, work.AuthorNames())
	assert.Equal(t, []models.Genre{models.GenreRomance, models.GenreComedy}, work.GenreNames())
	require.NotNil(t, work.Cover)
	assert.True(t, work.Cover.IsCover())
	assert.True(t, env.images.Exists(work.Cover.ID))
}

func TestCreateWork_InvalidCoverLeavesNothing(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	_, err := env.svc.CreateWork(env.ctx, CreateWorkOptions{
		Title:  "Title",
		Status: models.StatusOngoing,
		Cover:  []byte("not an image"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid image")

	count, err := env.db.NewSelect().Model((*models.Work)(nil)).Count(env.ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCreateWork_InvalidGenreRollsBackCover(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	_, err := env.svc.CreateWork(env.ctx, CreateWorkOptions{
		Title:  "Title",
		Status: models.StatusOngoing,
		Genres: []models.Genre{"cooking"},
		Cover:  testutils.Page(t),
	})
	require.Error(t, err)

	count, err := env.db.NewSelect().Model((*models.Image)(nil)).Count(env.ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
	// The row was never inserted, so the cover never left staging.
	assert.False(t, env.images.Exists(1))
}

func TestRetrieveWork_Ordering(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	tr := env.newTree(t, "Work")
	g0 := testutils.CreateGroup(t, env.db, tr.work.ID, "Prologue", 0)
	testutils.CreateChapter(t, env.db, tr.group.ID, "Chapter 0", 0)

	work, err := env.svc.RetrieveWork(env.ctx, RetrieveWorkOptions{ID: tr.work.ID, WithImages: true})
	require.NoError(t, err)
	require.Len(t, work.ChapterGroups, 2)
	assert.Equal(t, g0.ID, work.ChapterGroups[0].ID)
	chapters := work.ChapterGroups[1].Chapters
	require.Len(t, chapters, 2)
	assert.Equal(t, "Chapter 0", chapters[0].Title)
	require.Len(t, chapters[1].Images, 2)
	assert.Equal(t, 1, chapters[1].Images[0].Sequence)

	_, err = env.svc.RetrieveWork(env.ctx, RetrieveWorkOptions{ID: tr.work.ID + 100})
	assertNotFound(t, err, hierarchy.EntityWork)
}

func TestListWorks(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	a := testutils.CreateWork(t, env.db, "A")
	b := testutils.CreateWork(t, env.db, "B")
	c := testutils.CreateWork(t, env.db, "C")
	ended := models.StatusEnded
	require.NoError(t, hierarchy.UpdateWorkFields(env.ctx, env.db, b.ID, hierarchy.WorkFields{Status: &ended}))
	genres := []models.Genre{models.GenreHorror}
	require.NoError(t, hierarchy.UpdateWorkFields(env.ctx, env.db, c.ID, hierarchy.WorkFields{Genres: &genres}))

	works, total, err := env.svc.ListWorks(env.ctx, ListWorksOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	// Most recently updated first.
	assert.Equal(t, c.ID, works[0].ID)

	works, total, err = env.svc.ListWorks(env.ctx, ListWorksOptions{Status: models.StatusEnded})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, b.ID, works[0].ID)

	horror := models.GenreHorror
	works, _, err = env.svc.ListWorks(env.ctx, ListWorksOptions{Genre: &horror})
	require.NoError(t, err)
	require.Len(t, works, 1)
	assert.Equal(t, c.ID, works[0].ID)

	works, total, err = env.svc.ListWorks(env.ctx, ListWorksOptions{Limit: pointerutil.Int(1), Offset: pointerutil.Int(2)})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, works, 1)
	assert.Equal(t, a.ID, works[0].ID)

	works, _, err = env.svc.ListWorks(env.ctx, ListWorksOptions{IDs: []int{a.ID, c.ID, 999}})
	require.NoError(t, err)
	assert.Len(t, works, 2)

	works, _, err = env.svc.ListWorks(env.ctx, ListWorksOptions{IDs: []int{}})
	require.NoError(t, err)
	assert.Empty(t, works)
}

func TestLatestChapters(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	w1 := env.newTree(t, "First")
	w2 := testutils.CreateWork(t, env.db, "Empty")

	// A later chapter in an earlier group is still the latest.
	g2 := testutils.CreateGroup(t, env.db, w1.work.ID, "Volume 2", 2)
	testutils.CreateChapter(t, env.db, g2.ID, "Chapter 10", 10)
	time.Sleep(time.Millisecond)
	newest := testutils.CreateChapter(t, env.db, w1.group.ID, "Extra", 99)

	latest, err := env.svc.LatestChapters(env.ctx, []int{w1.work.ID, w2.ID})
	require.NoError(t, err)
	require.Contains(t, latest, w1.work.ID)
	assert.Equal(t, newest.ID, latest[w1.work.ID].ID)
	assert.NotContains(t, latest, w2.ID)
}

func TestDeleteWork(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	tr := env.newTree(t, "Doomed")
	keep := env.newTree(t, "Kept")
	cover := testutils.CreateImageRow(t, env.db, nil, &tr.work.ID, 0)

	require.NoError(t, env.svc.DeleteWork(env.ctx, tr.work.ID))

	groups, err := env.db.NewSelect().Model((*models.ChapterGroup)(nil)).Where("cg.work_id = ?", tr.work.ID).Count(env.ctx)
	require.NoError(t, err)
	assert.Zero(t, groups)
	chapters, err := env.db.NewSelect().Model((*models.Chapter)(nil)).Where("ch.id = ?", tr.chapter.ID).Count(env.ctx)
	require.NoError(t, err)
	assert.Zero(t, chapters)

	assert.True(t, env.image(t, cover.ID).IsOrphan())
	for _, p := range tr.pages {
		assert.True(t, env.image(t, p.ID).IsOrphan())
	}
	assert.False(t, env.image(t, keep.pages[0].ID).IsOrphan())
	assert.Equal(t, int32(1), env.reclaimer.triggers.Load())

	assertNotFound(t, env.svc.DeleteWork(env.ctx, tr.work.ID), hierarchy.EntityWork)
}
