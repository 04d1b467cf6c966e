package works

import (
	"time"

	"github.com/mankai/mankai-server/pkg/imagestore"
	"github.com/mankai/mankai-server/pkg/models"
)

type ChapterSummary struct {
	ID     int    `json:"id"`
	Title  string `json:"title"`
	Locked bool   `json:"locked"`
}

// WorkSummary is the shape of a work in public lists.
type WorkSummary struct {
	ID            int             `json:"id"`
	Title         string          `json:"title"`
	Cover         *string         `json:"cover,omitempty"`
	Status        models.Status   `json:"status"`
	LatestChapter *ChapterSummary `json:"latest_chapter,omitempty"`
}

type GroupDetail struct {
	ID       int              `json:"id"`
	Title    string           `json:"title"`
	Sequence int              `json:"sequence"`
	Chapters []ChapterSummary `json:"chapters"`
}

// WorkDetail is the public view of a single work.
type WorkDetail struct {
	WorkSummary
	Description   *string        `json:"description,omitempty"`
	UpdatedAt     time.Time      `json:"updated_at"`
	Authors       []string       `json:"authors"`
	Genres        []models.Genre `json:"genres"`
	Remarks       string         `json:"remarks"`
	ChapterGroups []GroupDetail  `json:"chapter_groups"`
}

func newChapterSummary(ch *models.Chapter) *ChapterSummary {
	if ch == nil {
		return nil
	}
	return &ChapterSummary{ID: ch.ID, Title: ch.Title, Locked: ch.Locked}
}

func newWorkSummary(store *imagestore.Store, work *models.Work, latest *models.Chapter) WorkSummary {
	summary := WorkSummary{
		ID:            work.ID,
		Title:         work.Title,
		Status:        work.Status,
		LatestChapter: newChapterSummary(latest),
	}
	if work.Cover != nil {
		url := store.URL(work.Cover.ID)
		summary.Cover = &url
	}
	return summary
}

// NewWorkSummaries projects works onto the list shape, preserving their
// order.
func NewWorkSummaries(store *imagestore.Store, works []*models.Work, latest map[int]*models.Chapter) []WorkSummary {
	summaries := make([]WorkSummary, 0, len(works))
	for _, w := range works {
		summaries = append(summaries, newWorkSummary(store, w, latest[w.ID]))
	}
	return summaries
}

// NewWorkDetail projects a work loaded with its groups and chapters. The
// latest chapter is the most recently created one across all groups.
func NewWorkDetail(store *imagestore.Store, work *models.Work) WorkDetail {
	var latest *models.Chapter
	groups := make([]GroupDetail, 0, len(work.ChapterGroups))
	for _, g := range work.ChapterGroups {
		chapters := make([]ChapterSummary, 0, len(g.Chapters))
		for _, ch := range g.Chapters {
			chapters = append(chapters, *newChapterSummary(ch))
			if latest == nil || ch.CreatedAt.After(latest.CreatedAt) ||
				(ch.CreatedAt.Equal(latest.CreatedAt) && ch.ID > latest.ID) {
				latest = ch
			}
		}
		groups = append(groups, GroupDetail{
			ID:       g.ID,
			Title:    g.Title,
			Sequence: g.Sequence,
			Chapters: chapters,
		})
	}

	return WorkDetail{
		WorkSummary:   newWorkSummary(store, work, latest),
		Description:   work.Description,
		UpdatedAt:     work.UpdatedAt,
		Authors:       work.AuthorNames(),
		Genres:        work.GenreNames(),
		Remarks:       work.Remarks,
		ChapterGroups: groups,
	}
}
