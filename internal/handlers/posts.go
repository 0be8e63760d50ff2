package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/PJ1229/OOTD/internal/feed"
	"github.com/PJ1229/OOTD/internal/media"
	"github.com/PJ1229/OOTD/internal/models"
	"github.com/PJ1229/OOTD/internal/supabase"
)

// PostImageUploader stores an outfit photo and returns its path and URL.
// Delete removes a stored photo by path.
type PostImageUploader interface {
	UploadPostImage(ctx context.Context, img media.Image) (string, string, error)
	Delete(ctx context.Context, path string) error
}

type PostsHandler struct {
	store    supabase.PostStore
	uploader PostImageUploader
	streams  *feedStreams
	logger   zerolog.Logger
}

func NewPostsHandler(store supabase.PostStore, uploader PostImageUploader, registry *feed.Registry, key feed.Key, logger zerolog.Logger) *PostsHandler {
	return &PostsHandler{
		store:    store,
		uploader: uploader,
		streams:  newFeedStreams(registry, key, logger),
		logger:   logger,
	}
}

// List godoc
// @Summary     List posts
// @Tags        posts
// @Produce     json
// @Security    Bearer
// @Success     200 {object} models.PostsResponse
// @Router      /api/v1/posts [get]
func (h *PostsHandler) List(c *gin.Context) {
	posts, err := h.store.ListPosts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to list posts", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, models.PostsResponse{Posts: posts})
}

// Create godoc
// @Summary     Upload an outfit photo
// @Description Accepts a multipart "image" file or a JSON data URI. The photo
// @Description is stored in the posts bucket and a post row is created.
// @Tags        posts
// @Accept      multipart/form-data
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Success     201 {object} models.Post
// @Failure     400 {object} models.ErrorResponse
// @Router      /api/v1/posts [post]
func (h *PostsHandler) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var (
		img media.Image
		err error
	)
	if isMultipart(c) {
		img, err = formImage(c)
	} else {
		var req models.CreatePostRequest
		if err = c.ShouldBindJSON(&req); err == nil {
			img, err = media.ParseDataURI(req.DataURI)
		}
	}
	if err != nil {
		badImage(c, err)
		return
	}

	ctx := c.Request.Context()
	path, url, err := h.uploader.UploadPostImage(ctx, img)
	if err != nil {
		c.JSON(http.StatusBadGateway, models.ErrorResponse{Error: "failed to upload image", Message: err.Error()})
		return
	}

	post, err := h.store.CreatePost(ctx, models.NewPost{Image: url, CreatedBy: &userID})
	if err != nil {
		if derr := h.uploader.Delete(ctx, path); derr != nil {
			h.logger.Warn().Err(derr).Str("path", path).Msg("failed to remove orphaned image")
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to create post", Message: err.Error()})
		return
	}

	h.logger.Info().Int64("post_id", post.ID).Str("path", path).Msg("post uploaded")
	c.JSON(http.StatusCreated, post)
}

// Stream godoc
// @Summary     Live post list
// @Description Server-sent events; each "posts" event carries the full list.
// @Tags        posts
// @Produce     text/event-stream
// @Security    Bearer
// @Router      /api/v1/posts/stream [get]
func (h *PostsHandler) Stream(c *gin.Context) {
	h.streams.serve(c, "posts", func(posts []models.Post) any {
		return models.PostsResponse{Posts: posts}
	})
}
