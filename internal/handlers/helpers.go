package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/PJ1229/OOTD/internal/media"
	"github.com/PJ1229/OOTD/internal/middleware"
	"github.com/PJ1229/OOTD/internal/models"
)

var errNoImage = errors.New("request carries no image")

// currentUser writes a 401 and returns false when no user is authenticated.
func currentUser(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "user id not found"})
		return uuid.Nil, false
	}
	return userID, true
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

// formImage reads the "image" part of a multipart request.
func formImage(c *gin.Context) (media.Image, error) {
	fh, err := c.FormFile("image")
	if err != nil {
		return media.Image{}, errNoImage
	}
	return media.ReadUpload(fh)
}

func badImage(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error:   "invalid image",
		Message: err.Error(),
	})
}
