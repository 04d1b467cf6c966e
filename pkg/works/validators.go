package works

import (
	"github.com/mankai/mankai-server/pkg/hierarchy"
	"github.com/mankai/mankai-server/pkg/models"
)

type CreateWorkPayload struct {
	Title       string   `json:"title" validate:"required,max=500"`
	Status      string   `json:"status" validate:"required,status"`
	Description *string  `json:"description" validate:"omitempty,max=10000"`
	Authors     []string `json:"authors" validate:"max=50,dive,max=200"`
	Genres      []string `json:"genres" validate:"max=50,dive,genre"`
	Remarks     string   `json:"remarks" validate:"max=2000"`
	// Cover is a base64 encoded image, optionally as a data URL.
	Cover *string `json:"cover"`
}

type EditWorkPayload struct {
	Title         *string            `json:"title" validate:"omitempty,max=500"`
	Status        *string            `json:"status" validate:"omitempty,status"`
	Description   *string            `json:"description" validate:"omitempty,max=10000"`
	Authors       *[]string          `json:"authors" validate:"omitempty,max=50,dive,max=200"`
	Genres        *[]string          `json:"genres" validate:"omitempty,max=50,dive,genre"`
	Remarks       *string            `json:"remarks" validate:"omitempty,max=2000"`
	Cover         *string            `json:"cover"`
	ChapterGroups []GroupEditPayload `json:"chapter_groups" validate:"omitempty,dive"`
}

type GroupEditPayload struct {
	ID       *int                 `json:"id" validate:"omitempty,min=1"`
	Title    *string              `json:"title" validate:"omitempty,max=300"`
	Sequence *int                 `json:"sequence"`
	Chapters []ChapterEditPayload `json:"chapters" validate:"omitempty,dive"`
}

type ChapterEditPayload struct {
	ID       *int               `json:"id" validate:"omitempty,min=1"`
	Title    *string            `json:"title" validate:"omitempty,max=300"`
	Sequence *int               `json:"sequence"`
	Locked   *bool              `json:"locked"`
	Images   []ImageEditPayload `json:"images" validate:"omitempty,dive"`
}

type ImageEditPayload struct {
	ID       *int `json:"id" validate:"omitempty,min=1"`
	Sequence *int `json:"sequence"`
}

// ListWorksQuery is the query string of the public list.
type ListWorksQuery struct {
	Page   int    `query:"page" json:"page,omitempty" default:"1" validate:"min=1"`
	Genre  string `query:"genre" json:"genre,omitempty" default:"all" validate:"genre_filter"`
	Status string `query:"status" json:"status,omitempty" default:"any" validate:"oneof=any ongoing ended"`
}

func toGenres(names []string) []models.Genre {
	genres := make([]models.Genre, 0, len(names))
	for _, n := range names {
		genres = append(genres, models.Genre(n))
	}
	return genres
}

// toStatus converts a validated status name.
func toStatus(name string) models.Status {
	s, _ := models.ParseStatus(name)
	return s
}

// toEdit converts a validated payload. The cover has already been decoded by
// the caller.
func (p *EditWorkPayload) toEdit(cover []byte) Edit {
	edit := Edit{
		WorkFields: hierarchy.WorkFields{
			Title:       p.Title,
			Description: p.Description,
			Authors:     p.Authors,
			Remarks:     p.Remarks,
		},
		Cover: cover,
	}
	if p.Status != nil {
		s := toStatus(*p.Status)
		edit.Status = &s
	}
	if p.Genres != nil {
		genres := toGenres(*p.Genres)
		edit.Genres = &genres
	}

	for _, g := range p.ChapterGroups {
		group := GroupEdit{
			ID:          g.ID,
			GroupFields: hierarchy.GroupFields{Title: g.Title, Sequence: g.Sequence},
		}
		for _, ch := range g.Chapters {
			chapter := ChapterEdit{
				ID:            ch.ID,
				ChapterFields: hierarchy.ChapterFields{Title: ch.Title, Sequence: ch.Sequence, Locked: ch.Locked},
			}
			for _, img := range ch.Images {
				chapter.Images = append(chapter.Images, ImageEdit{ID: img.ID, Sequence: img.Sequence})
			}
			group.Chapters = append(group.Chapters, chapter)
		}
		edit.ChapterGroups = append(edit.ChapterGroups, group)
	}

	return edit
}
