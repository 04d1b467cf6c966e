package works

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/mankai/mankai-server/pkg/errcodes"
	"github.com/mankai/mankai-server/pkg/hierarchy"
	"github.com/mankai/mankai-server/pkg/imagestore"
	"github.com/mankai/mankai-server/pkg/models"
	"github.com/mankai/mankai-server/pkg/testutils"
	"github.com/robinjoseph08/golib/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type countingReclaimer struct {
	triggers atomic.Int32
}

func (r *countingReclaimer) Trigger() {
	r.triggers.Add(1)
}

type testEnv struct {
	ctx       context.Context
	db        *bun.DB
	images    *imagestore.Store
	reclaimer *countingReclaimer
	svc       *Service
	hierarchy *hierarchy.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutils.NewDB(t)
	images, err := imagestore.NewStore(t.TempDir(), 64, 0, 85)
	require.NoError(t, err)
	reclaimer := &countingReclaimer{}

	return &testEnv{
		ctx:       logger.New().WithContext(context.Background()),
		db:        db,
		images:    images,
		reclaimer: reclaimer,
		svc:       NewService(db, images, reclaimer),
		hierarchy: hierarchy.NewService(db, images, reclaimer),
	}
}

// tree is a work with one group holding one chapter of two pages.
type tree struct {
	work    *models.Work
	group   *models.ChapterGroup
	chapter *models.Chapter
	pages   []*models.Image
}

func (env *testEnv) newTree(t *testing.T, title string) tree {
	t.Helper()
	work := testutils.CreateWork(t, env.db, title)
	group := testutils.CreateGroup(t, env.db, work.ID, "Volume 1", 1)
	chapter := testutils.CreateChapter(t, env.db, group.ID, "Chapter 1", 1)
	pages, err := env.hierarchy.UploadImages(env.ctx, work.ID, group.ID, chapter.ID, [][]byte{testutils.Page(t), testutils.Page(t)})
	require.NoError(t, err)
	return tree{work: work, group: group, chapter: chapter, pages: pages}
}

func (env *testEnv) image(t *testing.T, id int) *models.Image {
	t.Helper()
	image := &models.Image{}
	require.NoError(t, env.db.NewSelect().Model(image).Where("img.id = ?", id).Scan(env.ctx))
	return image
}

func assertNotFound(t *testing.T, err error, entity string) {
	t.Helper()
	require.Error(t, err)
	var e *errcodes.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, 404, e.HTTPCode)
	assert.Equal(t, entity+" not found.", e.Message)
}
