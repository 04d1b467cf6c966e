package hierarchy

type CreateGroupPayload struct {
	Title    string `json:"title" validate:"required,max=300"`
	Sequence int    `json:"sequence"`
}

type CreateChapterPayload struct {
	Title    string `json:"title" validate:"required,max=300"`
	Sequence int    `json:"sequence"`
	Locked   bool   `json:"locked"`
}

// UploadImagesPayload carries base64 encoded pages, optionally as data URLs.
type UploadImagesPayload struct {
	Images []string `json:"images" validate:"required,min=1,max=500,dive,required"`
}
