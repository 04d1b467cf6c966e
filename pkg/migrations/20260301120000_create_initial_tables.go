package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

func init() {
	up := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec(`
			CREATE TABLE works (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				title TEXT NOT NULL,
				status INTEGER NOT NULL,
				description TEXT,
				remarks TEXT NOT NULL DEFAULT ''
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE INDEX ix_works_status ON works (status)`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`
			CREATE TABLE work_authors (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				work_id INTEGER REFERENCES works (id) NOT NULL,
				name TEXT NOT NULL,
				sequence INTEGER NOT NULL
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE INDEX ix_work_authors_work_id ON work_authors (work_id)`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`
			CREATE TABLE work_genres (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				work_id INTEGER REFERENCES works (id) NOT NULL,
				genre TEXT NOT NULL,
				sequence INTEGER NOT NULL
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE UNIQUE INDEX ux_work_genres_work_id_genre ON work_genres (work_id, genre)`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE INDEX ix_work_genres_genre ON work_genres (genre)`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`
			CREATE TABLE chapter_groups (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				work_id INTEGER REFERENCES works (id) NOT NULL,
				title TEXT NOT NULL,
				sequence INTEGER NOT NULL
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE INDEX ix_chapter_groups_work_id ON chapter_groups (work_id, sequence)`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`
			CREATE TABLE chapters (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				group_id INTEGER REFERENCES chapter_groups (id) NOT NULL,
				title TEXT NOT NULL,
				sequence INTEGER NOT NULL,
				locked BOOLEAN NOT NULL DEFAULT FALSE
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE INDEX ix_chapters_group_id ON chapters (group_id, sequence)`)
		if err != nil {
			return errors.WithStack(err)
		}
		// chapter_id and work_id are both null for detached images that are
		// waiting to be reclaimed.
		_, err = db.Exec(`
			CREATE TABLE images (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				sequence INTEGER NOT NULL,
				chapter_id INTEGER REFERENCES chapters (id),
				work_id INTEGER REFERENCES works (id)
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE INDEX ix_images_chapter_id ON images (chapter_id, sequence)`)
		if err != nil {
			return errors.WithStack(err)
		}
		// A work has at most one cover.
		_, err = db.Exec(`CREATE UNIQUE INDEX ux_images_work_id ON images (work_id) WHERE work_id IS NOT NULL`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE INDEX ix_images_orphans ON images (id) WHERE chapter_id IS NULL AND work_id IS NULL`)
		return errors.WithStack(err)
	}

	down := func(_ context.Context, db *bun.DB) error {
		for _, table := range []string{"images", "chapters", "chapter_groups", "work_genres", "work_authors", "works"} {
			_, err := db.Exec("DROP TABLE IF EXISTS " + table)
			if err != nil {
				return errors.WithStack(err)
			}
		}
		return nil
	}

	Migrations.MustRegister(up, down)
}
