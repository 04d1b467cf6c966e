package hierarchy

import (
	"testing"

	"github.com/mankai/mankai-server/pkg/testutils"
	"github.com/robinjoseph08/golib/pointerutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyOwnership(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	w1 := env.newTree(t, "First")
	w2 := env.newTree(t, "Second")
	page := testutils.CreateImageRow(t, env.db, &w1.chapter.ID, nil, 1)

	tests := []struct {
		name string
		path Path
		ok   bool
	}{
		{"work", WorkPath(w1.work.ID), true},
		{"missing work", WorkPath(w1.work.ID + 100), false},
		{"group", GroupPath(w1.work.ID, w1.group.ID), true},
		{"group of another work", GroupPath(w1.work.ID, w2.group.ID), false},
		{"chapter", ChapterPath(w1.work.ID, w1.group.ID, w1.chapter.ID), true},
		{"chapter of another work's group", ChapterPath(w1.work.ID, w1.group.ID, w2.chapter.ID), false},
		{"chapter under a foreign group", ChapterPath(w1.work.ID, w2.group.ID, w2.chapter.ID), false},
		{"image", ImagePath(w1.work.ID, w1.group.ID, w1.chapter.ID, page.ID), true},
		{"image of another chapter", ImagePath(w2.work.ID, w2.group.ID, w2.chapter.ID, page.ID), false},
		{"chapter without group", Path{WorkID: w1.work.ID, ChapterID: pointerutil.Int(w1.chapter.ID)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := env.svc.VerifyOwnership(env.ctx, tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestRequireOwnership_NamesFailingEntity(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	w1 := env.newTree(t, "First")
	w2 := env.newTree(t, "Second")
	page := testutils.CreateImageRow(t, env.db, &w2.chapter.ID, nil, 1)

	require.NoError(t, env.svc.RequireOwnership(env.ctx, ChapterPath(w1.work.ID, w1.group.ID, w1.chapter.ID)))

	assertNotFound(t, env.svc.RequireOwnership(env.ctx, WorkPath(999)), EntityWork)
	assertNotFound(t, env.svc.RequireOwnership(env.ctx, GroupPath(w1.work.ID, w2.group.ID)), EntityGroup)
	assertNotFound(t, env.svc.RequireOwnership(env.ctx, ChapterPath(w1.work.ID, w1.group.ID, w2.chapter.ID)), EntityChapter)
	assertNotFound(t, env.svc.RequireOwnership(env.ctx, ImagePath(w1.work.ID, w1.group.ID, w1.chapter.ID, page.ID)), EntityImage)
}
