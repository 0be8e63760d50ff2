package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/PJ1229/OOTD/internal/feed"
	"github.com/PJ1229/OOTD/internal/models"
)

const streamHeartbeat = 25 * time.Second

// feedStreams serves server-sent events off the shared feed registry. An
// open stream holds the feed subscription; it is released on disconnect.
type feedStreams struct {
	registry  *feed.Registry
	key       feed.Key
	heartbeat time.Duration
	logger    zerolog.Logger
}

func newFeedStreams(registry *feed.Registry, key feed.Key, logger zerolog.Logger) *feedStreams {
	return &feedStreams{
		registry:  registry,
		key:       key,
		heartbeat: streamHeartbeat,
		logger:    logger,
	}
}

func (s *feedStreams) serve(c *gin.Context, event string, render func([]models.Post) any) {
	if s.registry == nil {
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{
			Error:   "realtime feed unavailable",
			Message: "DATABASE_URL is not configured",
		})
		return
	}

	ctx := c.Request.Context()
	live, release, err := s.registry.Acquire(ctx, s.key)
	if err != nil {
		c.JSON(http.StatusBadGateway, models.ErrorResponse{Error: "failed to open feed", Message: err.Error()})
		return
	}
	defer release()

	updates, stop := live.Watch()
	defer stop()

	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case posts, ok := <-updates:
			if !ok {
				return false
			}
			c.SSEvent(event, render(posts))
			return true
		case <-ticker.C:
			c.SSEvent("ping", gin.H{"at": time.Now().UTC()})
			return true
		}
	})
	s.logger.Debug().Str("event", event).Msg("stream closed")
}
