package hierarchy

import (
	"github.com/mankai/mankai-server/pkg/imagestore"
	"github.com/mankai/mankai-server/pkg/models"
)

type ImageResponse struct {
	ID       int    `json:"id"`
	Sequence int    `json:"sequence"`
	URL      string `json:"url"`
}

func NewImageResponses(store *imagestore.Store, images []*models.Image) []ImageResponse {
	resp := make([]ImageResponse, 0, len(images))
	for _, img := range images {
		resp = append(resp, ImageResponse{
			ID:       img.ID,
			Sequence: img.Sequence,
			URL:      store.URL(img.ID),
		})
	}
	return resp
}
