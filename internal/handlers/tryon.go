package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/PJ1229/OOTD/internal/catalog"
	"github.com/PJ1229/OOTD/internal/media"
	"github.com/PJ1229/OOTD/internal/models"
	"github.com/PJ1229/OOTD/internal/tryon"
)

// TryOnJobLister returns a user's recorded jobs, newest first.
type TryOnJobLister interface {
	ListTryOnJobs(ctx context.Context, userID uuid.UUID, limit int) ([]models.TryOnJob, error)
}

type TryOnHandler struct {
	service    *tryon.Service
	catalog    *catalog.Catalog
	baseURL    string
	httpClient *http.Client
	jobs       TryOnJobLister
}

func NewTryOnHandler(service *tryon.Service, cat *catalog.Catalog, baseURL string, httpClient *http.Client, jobs TryOnJobLister) *TryOnHandler {
	return &TryOnHandler{
		service:    service,
		catalog:    cat,
		baseURL:    baseURL,
		httpClient: httpClient,
		jobs:       jobs,
	}
}

func sessionResponse(s tryon.Snapshot) models.TryOnSessionResponse {
	resp := models.TryOnSessionResponse{
		SessionID:         s.SessionID.String(),
		State:             string(s.State),
		JobID:             s.JobID,
		HasModelImage:     s.HasModelImage,
		HasGarmentImage:   s.HasGarmentImage,
		ShowUploadGarment: s.ShowUploadGarment,
		ResultURL:         s.ResultURL,
		ArchiveURL:        s.ArchiveURL,
		Attempts:          s.Attempts,
		UpdatedAt:         s.UpdatedAt,
	}
	if s.Err != nil {
		resp.Error = s.Err.Error()
	}
	return resp
}

func sessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid session id"})
		return uuid.Nil, false
	}
	return id, true
}

// Create godoc
// @Summary     Start a try-on session
// @Tags        tryon
// @Produce     json
// @Security    Bearer
// @Success     201 {object} models.TryOnSessionResponse
// @Router      /api/v1/tryon/sessions [post]
func (h *TryOnHandler) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusCreated, sessionResponse(h.service.NewSession(userID)))
}

// Get godoc
// @Summary     Try-on session state
// @Description Poll this endpoint to follow a submitted job to its result.
// @Tags        tryon
// @Produce     json
// @Security    Bearer
// @Param       id path string true "Session ID"
// @Success     200 {object} models.TryOnSessionResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /api/v1/tryon/sessions/{id} [get]
func (h *TryOnHandler) Get(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := sessionID(c)
	if !ok {
		return
	}
	snap, err := h.service.Get(id, userID)
	if err != nil {
		tryOnError(c, snap, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse(snap))
}

// Delete godoc
// @Summary     End a try-on session
// @Description Stops any job polling that is still running for the session.
// @Tags        tryon
// @Security    Bearer
// @Param       id path string true "Session ID"
// @Success     204
// @Router      /api/v1/tryon/sessions/{id} [delete]
func (h *TryOnHandler) Delete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := sessionID(c)
	if !ok {
		return
	}
	if err := h.service.Close(id, userID); err != nil {
		tryOnError(c, tryon.Snapshot{}, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SetModel godoc
// @Summary     Set the model photo
// @Description Accepts a multipart "image" (camera capture or upload) or a
// @Description data URI. Submits the job when a garment is set.
// @Tags        tryon
// @Accept      multipart/form-data
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       id path string true "Session ID"
// @Success     200 {object} models.TryOnSessionResponse
// @Failure     409 {object} models.TryOnSessionResponse
// @Failure     502 {object} models.TryOnSessionResponse
// @Router      /api/v1/tryon/sessions/{id}/model [put]
func (h *TryOnHandler) SetModel(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := sessionID(c)
	if !ok {
		return
	}
	img, _, err := h.readImage(c, false)
	if err != nil {
		badImage(c, err)
		return
	}

	snap, err := h.service.SetModelImage(c.Request.Context(), id, userID, img)
	if err != nil {
		tryOnError(c, snap, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse(snap))
}

// SetGarment godoc
// @Summary     Set the garment image
// @Description Accepts a multipart "image", a data URI or a library garment
// @Description id. Submits the job when a model photo is set.
// @Tags        tryon
// @Accept      multipart/form-data
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       id path string true "Session ID"
// @Success     200 {object} models.TryOnSessionResponse
// @Failure     409 {object} models.TryOnSessionResponse
// @Failure     502 {object} models.TryOnSessionResponse
// @Router      /api/v1/tryon/sessions/{id}/garment [put]
func (h *TryOnHandler) SetGarment(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := sessionID(c)
	if !ok {
		return
	}
	img, fromLibrary, err := h.readImage(c, true)
	if errors.Is(err, catalog.ErrGarmentNotFound) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "garment not found", Message: err.Error()})
		return
	}
	if err != nil {
		badImage(c, err)
		return
	}

	snap, err := h.service.SetGarmentImage(c.Request.Context(), id, userID, img, fromLibrary)
	if err != nil {
		tryOnError(c, snap, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse(snap))
}

// ListJobs godoc
// @Summary     Recent try-on jobs
// @Tags        tryon
// @Produce     json
// @Security    Bearer
// @Router      /api/v1/tryon/jobs [get]
func (h *TryOnHandler) ListJobs(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	if h.jobs == nil {
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{Error: "database not available"})
		return
	}
	jobs, err := h.jobs.ListTryOnJobs(c.Request.Context(), userID, 50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to list jobs", Message: err.Error()})
		return
	}

	out := make([]models.TryOnJobResponse, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, models.TryOnJobResponse{
			ID:         j.ID.String(),
			SessionID:  j.SessionID.String(),
			RemoteID:   j.RemoteID,
			Status:     j.Status,
			ResultURL:  j.ResultURL.String,
			ArchiveURL: j.ArchiveURL.String,
			Error:      j.ErrorMessage.String,
			Attempts:   j.Attempts,
			CreatedAt:  j.CreatedAt,
			UpdatedAt:  j.UpdatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"jobs": out})
}

// readImage pulls one image from a multipart "image" field or a JSON body.
// Only library garments are fetched server side, from the catalog's own
// image URLs. fromLibrary is true when the image came from a garment id.
func (h *TryOnHandler) readImage(c *gin.Context, allowLibrary bool) (media.Image, bool, error) {
	if isMultipart(c) {
		img, err := formImage(c)
		return img, false, err
	}

	var req models.TryOnImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return media.Image{}, false, err
	}
	ctx := c.Request.Context()
	switch {
	case req.DataURI != "":
		img, err := media.ParseDataURI(req.DataURI)
		return img, false, err
	case req.GarmentID != "" && allowLibrary:
		garment, err := h.catalog.Garment(req.GarmentID)
		if err != nil {
			return media.Image{}, false, err
		}
		imageURL, err := garment.ImageURL(h.baseURL)
		if err != nil {
			return media.Image{}, false, err
		}
		img, err := media.Fetch(ctx, h.httpClient, imageURL)
		return img, true, err
	}
	return media.Image{}, false, errNoImage
}

func tryOnError(c *gin.Context, snap tryon.Snapshot, err error) {
	switch {
	case errors.Is(err, tryon.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "session not found"})
	case errors.Is(err, tryon.ErrJobInFlight):
		c.JSON(http.StatusConflict, sessionResponse(snap))
	default:
		resp := sessionResponse(snap)
		resp.Error = err.Error()
		c.JSON(http.StatusBadGateway, resp)
	}
}
