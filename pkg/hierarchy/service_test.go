package hierarchy

import (
	"testing"

	"github.com/mankai/mankai-server/pkg/errcodes"
	"github.com/mankai/mankai-server/pkg/models"
	"github.com/mankai/mankai-server/pkg/testutils"
	"github.com/robinjoseph08/golib/pointerutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateGroup(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	work := testutils.CreateWork(t, env.db, "Work")

	group, err := env.svc.CreateGroup(env.ctx, work.ID, "<b>Volume</b> 1", 3)
	require.NoError(t, err)
	assert.NotZero(t, group.ID)
	assert.Equal(t, "Volume 1", group.Title)
	assert.Equal(t, 3, group.Sequence)
	assert.Equal(t, work.ID, group.WorkID)

	_, err = env.svc.CreateGroup(env.ctx, work.ID+1, "Volume 1", 1)
	assertNotFound(t, err, EntityWork)
}

func TestCreateChapter(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	w1 := env.newTree(t, "First")
	w2 := env.newTree(t, "Second")

	chapter, err := env.svc.CreateChapter(env.ctx, w1.work.ID, w1.group.ID, "Chapter 2", 2, true)
	require.NoError(t, err)
	assert.Equal(t, w1.group.ID, chapter.GroupID)
	assert.True(t, chapter.Locked)

	_, err = env.svc.CreateChapter(env.ctx, w1.work.ID, w2.group.ID, "Chapter 2", 2, false)
	assertNotFound(t, err, EntityGroup)
}

func TestDeleteGroup_DetachesPages(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	tr := env.newTree(t, "Work")
	second := testutils.CreateChapter(t, env.db, tr.group.ID, "Chapter 2", 2)
	pages := env.upload(t, tr, 2)
	other := testutils.CreateImageRow(t, env.db, &second.ID, nil, 1)

	require.NoError(t, env.svc.DeleteGroup(env.ctx, tr.work.ID, tr.group.ID))

	count, err := env.db.NewSelect().Model((*models.Chapter)(nil)).Where("ch.group_id = ?", tr.group.ID).Count(env.ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
	count, err = env.db.NewSelect().Model((*models.ChapterGroup)(nil)).Where("cg.id = ?", tr.group.ID).Count(env.ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	for _, id := range []int{pages[0].ID, pages[1].ID, other.ID} {
		assert.True(t, env.image(t, id).IsOrphan())
	}
	// Files stay until the reclaimer runs.
	assert.True(t, env.images.Exists(pages[0].ID))
	assert.Equal(t, int32(1), env.reclaimer.triggers.Load())
}

func TestDeleteGroup_WrongWork(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	w1 := env.newTree(t, "First")
	w2 := env.newTree(t, "Second")

	err := env.svc.DeleteGroup(env.ctx, w1.work.ID, w2.group.ID)
	assertNotFound(t, err, EntityGroup)

	exists, err := env.db.NewSelect().Model((*models.ChapterGroup)(nil)).Where("cg.id = ?", w2.group.ID).Exists(env.ctx)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Zero(t, env.reclaimer.triggers.Load())
}

func TestDeleteChapter(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	tr := env.newTree(t, "Work")
	pages := env.upload(t, tr, 2)

	require.NoError(t, env.svc.DeleteChapter(env.ctx, tr.work.ID, tr.group.ID, tr.chapter.ID))

	_, err := env.svc.RetrieveChapter(env.ctx, RetrieveChapterOptions{ID: tr.chapter.ID})
	assertNotFound(t, err, EntityChapter)
	for _, p := range pages {
		assert.True(t, env.image(t, p.ID).IsOrphan())
	}
	assert.Equal(t, int32(1), env.reclaimer.triggers.Load())

	err = env.svc.DeleteChapter(env.ctx, tr.work.ID, tr.group.ID, tr.chapter.ID)
	assertNotFound(t, err, EntityChapter)
}

func TestDetachAndAttachImage(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	tr := env.newTree(t, "Work")
	target := testutils.CreateChapter(t, env.db, tr.group.ID, "Chapter 2", 2)
	targetTree := tree{work: tr.work, group: tr.group, chapter: target}
	env.upload(t, targetTree, 2)
	pages := env.upload(t, tr, 3)

	require.NoError(t, env.svc.DetachImage(env.ctx, tr.work.ID, tr.group.ID, tr.chapter.ID, pages[1].ID))
	assert.True(t, env.image(t, pages[1].ID).IsOrphan())
	assert.Equal(t, int32(1), env.reclaimer.triggers.Load())

	// Detaching twice fails: the page no longer belongs to the chapter.
	err := env.svc.DetachImage(env.ctx, tr.work.ID, tr.group.ID, tr.chapter.ID, pages[1].ID)
	assertNotFound(t, err, EntityImage)

	attached, err := env.svc.AttachImage(env.ctx, tr.work.ID, tr.group.ID, target.ID, pages[1].ID)
	require.NoError(t, err)
	assert.Equal(t, 3, attached.Sequence)
	assert.Equal(t, pointerutil.Int(target.ID), attached.ChapterID)

	_, err = env.svc.AttachImage(env.ctx, tr.work.ID, tr.group.ID, target.ID, pages[0].ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, errcodes.Conflict("Image is still attached."))

	_, err = env.svc.AttachImage(env.ctx, tr.work.ID, tr.group.ID, target.ID, 9999)
	assertNotFound(t, err, EntityImage)
}

func TestAttachImage_RejectsCover(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	tr := env.newTree(t, "Work")
	cover := testutils.CreateImageRow(t, env.db, nil, &tr.work.ID, 0)

	_, err := env.svc.AttachImage(env.ctx, tr.work.ID, tr.group.ID, tr.chapter.ID, cover.ID)
	assert.ErrorIs(t, err, errcodes.Conflict("Image is still attached."))
	assert.True(t, env.image(t, cover.ID).IsCover())
}

func TestRetrieveChapter(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	w1 := env.newTree(t, "First")
	w2 := env.newTree(t, "Second")
	testutils.CreateImageRow(t, env.db, &w1.chapter.ID, nil, 2)
	testutils.CreateImageRow(t, env.db, &w1.chapter.ID, nil, 1)

	chapter, err := env.svc.RetrieveChapter(env.ctx, RetrieveChapterOptions{ID: w1.chapter.ID, WorkID: &w1.work.ID})
	require.NoError(t, err)
	require.Len(t, chapter.Images, 2)
	assert.Equal(t, 1, chapter.Images[0].Sequence)
	assert.Equal(t, 2, chapter.Images[1].Sequence)

	_, err = env.svc.RetrieveChapter(env.ctx, RetrieveChapterOptions{ID: w1.chapter.ID, WorkID: &w2.work.ID})
	assertNotFound(t, err, EntityChapter)
}

func TestDeleteGroupTree_Empty(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	require.NoError(t, DeleteGroupTree(env.ctx, env.db, nil))
}
