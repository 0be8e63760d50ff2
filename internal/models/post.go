package models

import (
	"time"

	"github.com/google/uuid"
)

// Post is a row of the posts table. Rows are mutated by votes and by the
// realtime feed; this service never deletes them.
type Post struct {
	ID        int64      `json:"id"`
	Image     string     `json:"image"`
	Likes     int        `json:"likes"`
	Dislikes  int        `json:"dislikes"`
	CreatedBy *uuid.UUID `json:"created_by,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Score ranks posts on the leaderboard.
func (p Post) Score() int {
	return p.Likes - p.Dislikes
}

// NewPost is the insert payload for an uploaded outfit photo.
type NewPost struct {
	Image     string     `json:"image"`
	CreatedBy *uuid.UUID `json:"created_by,omitempty"`
}
