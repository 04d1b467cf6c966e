package hierarchy

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/mankai/mankai-server/pkg/errcodes"
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
	}
}

// tree is a work with one group holding one chapter.
type tree struct {
	work    *models.Work
	group   *models.ChapterGroup
	chapter *models.Chapter
}

func (env *testEnv) newTree(t *testing.T, title string) tree {
	t.Helper()
	work := testutils.CreateWork(t, env.db, title)
	group := testutils.CreateGroup(t, env.db, work.ID, "Volume 1", 1)
	chapter := testutils.CreateChapter(t, env.db, group.ID, "Chapter 1", 1)
	return tree{work: work, group: group, chapter: chapter}
}

func (env *testEnv) upload(t *testing.T, tr tree, n int) []*models.Image {
	t.Helper()
	raws := make([][]byte, n)
	for i := range raws {
		raws[i] = testutils.Page(t)
	}
	images, err := env.svc.UploadImages(env.ctx, tr.work.ID, tr.group.ID, tr.chapter.ID, raws)
	require.NoError(t, err)
	return images
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
