package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/PJ1229/OOTD/internal/feed"
	"github.com/PJ1229/OOTD/internal/models"
	"github.com/PJ1229/OOTD/internal/supabase"
)

// LeaderboardSize is how many posts the leaderboard shows.
const LeaderboardSize = 3

type LeaderboardHandler struct {
	store   supabase.PostStore
	streams *feedStreams
}

func NewLeaderboardHandler(store supabase.PostStore, registry *feed.Registry, key feed.Key, logger zerolog.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{
		store:   store,
		streams: newFeedStreams(registry, key, logger),
	}
}

func leaderboard(posts []models.Post) models.LeaderboardResponse {
	top := feed.Top(posts, LeaderboardSize)
	entries := make([]models.LeaderboardEntry, 0, len(top))
	for i, p := range top {
		entries = append(entries, models.LeaderboardEntry{Rank: i + 1, Score: p.Score(), Post: p})
	}
	return models.LeaderboardResponse{Entries: entries}
}

// Get godoc
// @Summary     Top posts
// @Description Top three posts by likes minus dislikes.
// @Tags        leaderboard
// @Produce     json
// @Security    Bearer
// @Success     200 {object} models.LeaderboardResponse
// @Router      /api/v1/leaderboard [get]
func (h *LeaderboardHandler) Get(c *gin.Context) {
	posts, err := h.store.ListPosts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to load leaderboard", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, leaderboard(posts))
}

// Stream godoc
// @Summary     Live leaderboard
// @Tags        leaderboard
// @Produce     text/event-stream
// @Security    Bearer
// @Router      /api/v1/leaderboard/stream [get]
func (h *LeaderboardHandler) Stream(c *gin.Context) {
	h.streams.serve(c, "leaderboard", func(posts []models.Post) any {
		return leaderboard(posts)
	})
}
