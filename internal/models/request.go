package models

type AuthRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Username string `json:"username,omitempty"`
}

// CreatePostRequest is the JSON alternative to a multipart upload.
type CreatePostRequest struct {
	DataURI string `json:"data_uri" binding:"required"`
}

type SwipeReleaseRequest struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

type SwipeVoteRequest struct {
	Direction string `json:"direction" binding:"required,oneof=left right"`
}

// TryOnImageRequest carries one image for a try-on session. Exactly one of
// the fields is expected; multipart uploads use the "image" form field.
type TryOnImageRequest struct {
	DataURI   string `json:"data_uri,omitempty"`
	GarmentID string `json:"garment_id,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
