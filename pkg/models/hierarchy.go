package models

import (
	"time"

	"github.com/uptrace/bun"
)

type ChapterGroup struct {
	bun.BaseModel `bun:"table:chapter_groups,alias:cg"`

	ID        int       `bun:",pk,autoincrement" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	WorkID    int       `bun:",notnull" json:"work_id"`
	Title     string    `bun:",notnull" json:"title"`
	Sequence  int       `bun:",notnull" json:"sequence"`

	// Relations
	Chapters []*Chapter `bun:"rel:has-many,join:id=group_id" json:"chapters,omitempty"`
}

type Chapter struct {
	bun.BaseModel `bun:"table:chapters,alias:ch"`

	ID        int       `bun:",pk,autoincrement" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	GroupID   int       `bun:",notnull" json:"group_id"`
	Title     string    `bun:",notnull" json:"title"`
	Sequence  int       `bun:",notnull" json:"sequence"`
	Locked    bool      `bun:",notnull" json:"locked"`

	// Relations
	Group  *ChapterGroup `bun:"rel:belongs-to,join:group_id=id" json:"-"`
	Images []*Image      `bun:"rel:has-many,join:id=chapter_id" json:"images,omitempty"`
}

// Image is a page of a Chapter or the cover of a Work. An image with neither
// a chapter nor a work is an orphan waiting to be reclaimed.
type Image struct {
	bun.BaseModel `bun:"table:images,alias:img"`

	ID        int       `bun:",pk,autoincrement" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Sequence  int       `bun:",notnull" json:"sequence"`
	ChapterID *int      `json:"chapter_id"`
	WorkID    *int      `json:"work_id,omitempty"`
}

func (i *Image) IsOrphan() bool {
	return i.ChapterID == nil && i.WorkID == nil
}

func (i *Image) IsCover() bool {
	return i.ChapterID == nil && i.WorkID != nil
}
