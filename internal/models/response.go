package models

import "time"

type HealthResponse struct {
	Status string `json:"status"`
}

type AuthResponse struct {
	UserID       string `json:"user_id"`
	Email        string `json:"email"`
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
}

type PostsResponse struct {
	Posts []Post `json:"posts"`
}

type LeaderboardEntry struct {
	Rank  int  `json:"rank"`
	Score int  `json:"score"`
	Post  Post `json:"post"`
}

type LeaderboardResponse struct {
	Entries []LeaderboardEntry `json:"entries"`
}

// SwipeCardResponse is the current card of a deck, or the empty state when
// the deck has been swiped through.
type SwipeCardResponse struct {
	Empty   bool   `json:"empty"`
	Message string `json:"message,omitempty"`
	Index   int    `json:"index"`
	Post    *Post  `json:"post,omitempty"`
}

type SwipeResultResponse struct {
	Direction string  `json:"direction,omitempty"`
	Decided   bool    `json:"decided"`
	OffsetX   float64 `json:"offset_x"`
	OffsetY   float64 `json:"offset_y"`
	Applied   bool    `json:"applied"`
	Error     string  `json:"error,omitempty"`
	Post      *Post   `json:"post,omitempty"`
}

type TryOnSessionResponse struct {
	SessionID         string    `json:"session_id"`
	State             string    `json:"state"`
	JobID             string    `json:"job_id,omitempty"`
	HasModelImage     bool      `json:"has_model_image"`
	HasGarmentImage   bool      `json:"has_garment_image"`
	ShowUploadGarment bool      `json:"show_upload_garment"`
	ResultURL         string    `json:"result_url,omitempty"`
	ArchiveURL        string    `json:"archive_url,omitempty"`
	Attempts          int       `json:"attempts"`
	Error             string    `json:"error,omitempty"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type TryOnJobResponse struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	RemoteID   string    `json:"remote_id"`
	Status     string    `json:"status"`
	ResultURL  string    `json:"result_url,omitempty"`
	ArchiveURL string    `json:"archive_url,omitempty"`
	Error      string    `json:"error,omitempty"`
	Attempts   int       `json:"attempts"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
