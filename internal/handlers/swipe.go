package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/PJ1229/OOTD/internal/models"
	"github.com/PJ1229/OOTD/internal/supabase"
	"github.com/PJ1229/OOTD/internal/swipe"
)

const noMorePosts = "No more posts to swipe!"

type SwipeHandler struct {
	decks *swipe.Decks
	store supabase.PostStore
}

func NewSwipeHandler(decks *swipe.Decks, store supabase.PostStore) *SwipeHandler {
	return &SwipeHandler{decks: decks, store: store}
}

func (h *SwipeHandler) deck(c *gin.Context) (*swipe.Deck, bool) {
	userID, ok := currentUser(c)
	if !ok {
		return nil, false
	}
	deck, err := h.decks.Get(c.Request.Context(), userID, h.store.ListPosts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to load deck", Message: err.Error()})
		return nil, false
	}
	return deck, true
}

func cardResponse(deck *swipe.Deck) models.SwipeCardResponse {
	post, index, ok := deck.Current()
	if !ok {
		return models.SwipeCardResponse{Empty: true, Message: noMorePosts, Index: index}
	}
	return models.SwipeCardResponse{Index: index, Post: &post}
}

// Current godoc
// @Summary     Current swipe card
// @Description Returns the card on top of the user's deck, or the empty state
// @Description once every post has been swiped.
// @Tags        swipe
// @Produce     json
// @Security    Bearer
// @Success     200 {object} models.SwipeCardResponse
// @Router      /api/v1/swipe/current [get]
func (h *SwipeHandler) Current(c *gin.Context) {
	deck, ok := h.deck(c)
	if !ok {
		return
	}
	if posts, err := h.store.ListPosts(c.Request.Context()); err == nil {
		deck.Refresh(posts)
	} else {
		_ = c.Error(err)
	}
	c.JSON(http.StatusOK, cardResponse(deck))
}

// Reset godoc
// @Summary     Start the deck over
// @Description Drops the user's deck and deals a fresh one from the latest posts.
// @Tags        swipe
// @Produce     json
// @Security    Bearer
// @Success     200 {object} models.SwipeCardResponse
// @Router      /api/v1/swipe/reset [post]
func (h *SwipeHandler) Reset(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	h.decks.Reset(userID)
	deck, ok := h.deck(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, cardResponse(deck))
}

// Release godoc
// @Summary     Release a drag
// @Description Resolves a drag of (dx, dy) px. Past the threshold the card is
// @Description liked (right) or disliked (left); otherwise it snaps back.
// @Tags        swipe
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       request body models.SwipeReleaseRequest true "Drag offset"
// @Success     200 {object} models.SwipeResultResponse
// @Router      /api/v1/swipe/release [post]
func (h *SwipeHandler) Release(c *gin.Context) {
	var req models.SwipeReleaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request", Message: err.Error()})
		return
	}
	deck, ok := h.deck(c)
	if !ok {
		return
	}

	res, err := deck.Release(c.Request.Context(), req.DX, req.DY)
	if err != nil {
		swipeError(c, err)
		return
	}

	resp := models.SwipeResultResponse{
		Direction: string(res.Direction),
		Decided:   res.Direction != swipe.None,
		OffsetX:   res.Offset.X,
		OffsetY:   res.Offset.Y,
	}
	if res.Vote != nil {
		applyVote(&resp, *res.Vote)
	}
	c.JSON(voteStatus(res.Vote), resp)
}

// Vote godoc
// @Summary     Like or dislike the current card
// @Tags        swipe
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       request body models.SwipeVoteRequest true "Direction"
// @Success     200 {object} models.SwipeResultResponse
// @Failure     502 {object} models.SwipeResultResponse
// @Router      /api/v1/swipe/vote [post]
func (h *SwipeHandler) Vote(c *gin.Context) {
	var req models.SwipeVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request", Message: err.Error()})
		return
	}
	deck, ok := h.deck(c)
	if !ok {
		return
	}

	dir := swipe.Direction(req.Direction)
	vote, err := deck.Swipe(c.Request.Context(), dir)
	if err != nil {
		swipeError(c, err)
		return
	}

	resp := models.SwipeResultResponse{Direction: string(dir), Decided: true}
	if vote.Applied {
		if dir == swipe.Right {
			resp.OffsetX = swipe.FlyOut
		} else {
			resp.OffsetX = -swipe.FlyOut
		}
	}
	applyVote(&resp, vote)
	c.JSON(voteStatus(&vote), resp)
}

func applyVote(resp *models.SwipeResultResponse, vote swipe.VoteResult) {
	post := vote.Post
	resp.Applied = vote.Applied
	resp.Post = &post
	if vote.Err != nil {
		resp.Error = vote.Err.Error()
	}
}

func voteStatus(vote *swipe.VoteResult) int {
	if vote != nil && !vote.Applied {
		return http.StatusBadGateway
	}
	return http.StatusOK
}

func swipeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, swipe.ErrNoCard):
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "no more posts", Message: noMorePosts})
	case errors.Is(err, swipe.ErrSettling):
		c.JSON(http.StatusConflict, models.ErrorResponse{Error: "swipe in progress", Message: err.Error()})
	case errors.Is(err, context.Canceled):
		c.Status(499)
	default:
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid swipe", Message: err.Error()})
	}
}
