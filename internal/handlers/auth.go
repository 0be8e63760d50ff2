package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/PJ1229/OOTD/internal/middleware"
	"github.com/PJ1229/OOTD/internal/models"
	"github.com/PJ1229/OOTD/internal/supabase"
)

// Authenticator is the hosted auth service.
type Authenticator interface {
	SignUp(email, password, username string) (*models.AuthResponse, error)
	SignIn(email, password string) (*models.AuthResponse, error)
	User(accessToken string) (*models.AuthResponse, error)
	SignOut(accessToken string) error
}

type AuthHandler struct {
	auth Authenticator
}

func NewAuthHandler(auth Authenticator) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// SignUp godoc
// @Summary     Create an account
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body models.AuthRequest true "Credentials"
// @Success     201 {object} models.AuthResponse
// @Success     202 {object} models.AuthResponse
// @Failure     400 {object} models.ErrorResponse
// @Router      /api/v1/auth/signup [post]
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req models.AuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request", Message: err.Error()})
		return
	}

	resp, err := h.auth.SignUp(req.Email, req.Password, req.Username)
	if errors.Is(err, supabase.ErrConfirmationRequired) {
		c.JSON(http.StatusAccepted, resp)
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "sign up failed", Message: err.Error()})
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Login godoc
// @Summary     Sign in with email and password
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body models.AuthRequest true "Credentials"
// @Success     200 {object} models.AuthResponse
// @Failure     401 {object} models.ErrorResponse
// @Router      /api/v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.AuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request", Message: err.Error()})
		return
	}

	resp, err := h.auth.SignIn(req.Email, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "invalid credentials", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Me godoc
// @Summary     Current user
// @Tags        auth
// @Produce     json
// @Security    Bearer
// @Success     200 {object} models.AuthResponse
// @Router      /api/v1/auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	token := c.GetString(middleware.AccessTokenKey)
	resp, err := h.auth.User(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "failed to get user", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Logout godoc
// @Summary     Sign out
// @Tags        auth
// @Security    Bearer
// @Success     204
// @Failure     502 {object} models.ErrorResponse
// @Router      /api/v1/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.auth.SignOut(c.GetString(middleware.AccessTokenKey)); err != nil {
		c.JSON(http.StatusBadGateway, models.ErrorResponse{Error: "failed to sign out", Message: err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}
