package models

import (
	"time"

	"github.com/segmentio/encoding/json"
	"github.com/uptrace/bun"
)

type Work struct {
	bun.BaseModel `bun:"table:works,alias:w"`

	ID          int       `bun:",pk,autoincrement" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Title       string    `bun:",notnull" json:"title"`
	Status      Status    `bun:",notnull" json:"status"`
	Description *string   `json:"description"`
	Remarks     string    `bun:",notnull" json:"remarks"`

	// Relations
	Authors       []*WorkAuthor   `bun:"rel:has-many,join:id=work_id" json:"authors"`
	Genres        []*WorkGenre    `bun:"rel:has-many,join:id=work_id" json:"genres"`
	Cover         *Image          `bun:"rel:has-one,join:id=work_id" json:"cover,omitempty"`
	ChapterGroups []*ChapterGroup `bun:"rel:has-many,join:id=work_id" json:"chapter_groups,omitempty"`
}

// AuthorNames returns the author names in order.
func (w *Work) AuthorNames() []string {
	names := make([]string, 0, len(w.Authors))
	for _, a := range w.Authors {
		names = append(names, a.Name)
	}
	return names
}

// GenreNames returns the genres in order.
func (w *Work) GenreNames() []Genre {
	genres := make([]Genre, 0, len(w.Genres))
	for _, g := range w.Genres {
		genres = append(genres, g.Genre)
	}
	return genres
}

type WorkAuthor struct {
	bun.BaseModel `bun:"table:work_authors,alias:wa"`

	ID       int    `bun:",pk,autoincrement" json:"-"`
	WorkID   int    `bun:",notnull" json:"-"`
	Name     string `bun:",notnull" json:"name"`
	Sequence int    `bun:",notnull" json:"-"`
}

// MarshalJSON renders an author as its bare name.
func (a *WorkAuthor) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Name)
}

type WorkGenre struct {
	bun.BaseModel `bun:"table:work_genres,alias:wg"`

	ID       int   `bun:",pk,autoincrement" json:"-"`
	WorkID   int   `bun:",notnull" json:"-"`
	Genre    Genre `bun:",notnull" json:"genre"`
	Sequence int   `bun:",notnull" json:"-"`
}

// MarshalJSON renders a genre as its bare name.
func (g *WorkGenre) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.Genre)
}
