package supabase

import (
	"errors"
	"fmt"

	"github.com/supabase-community/gotrue-go"
	"github.com/supabase-community/gotrue-go/types"

	"github.com/PJ1229/OOTD/internal/models"
)

var ErrConfirmationRequired = errors.New("sign-up requires email confirmation")

// AuthClient wraps the GoTrue API for sign-up, sign-in and user lookup.
type AuthClient struct {
	auth gotrue.Client
}

func NewAuthClient(auth gotrue.Client) *AuthClient {
	return &AuthClient{auth: auth}
}

func sessionResponse(session types.Session) *models.AuthResponse {
	return &models.AuthResponse{
		UserID:       session.User.ID.String(),
		Email:        session.User.Email,
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		ExpiresIn:    session.ExpiresIn,
	}
}

func (a *AuthClient) SignUp(email, password, username string) (*models.AuthResponse, error) {
	req := types.SignupRequest{Email: email, Password: password}
	if username != "" {
		req.Data = map[string]interface{}{"username": username}
	}
	resp, err := a.auth.Signup(req)
	if err != nil {
		return nil, fmt.Errorf("failed to sign up: %w", err)
	}
	if resp.AccessToken == "" {
		// project requires email confirmation; no session yet
		return &models.AuthResponse{UserID: resp.User.ID.String(), Email: resp.User.Email}, ErrConfirmationRequired
	}
	return sessionResponse(resp.Session), nil
}

func (a *AuthClient) SignIn(email, password string) (*models.AuthResponse, error) {
	resp, err := a.auth.SignInWithEmailPassword(email, password)
	if err != nil {
		return nil, fmt.Errorf("failed to sign in: %w", err)
	}
	return sessionResponse(resp.Session), nil
}

// User resolves the user behind an access token.
func (a *AuthClient) User(accessToken string) (*models.AuthResponse, error) {
	resp, err := a.auth.WithToken(accessToken).GetUser()
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &models.AuthResponse{UserID: resp.User.ID.String(), Email: resp.User.Email}, nil
}

// SignOut revokes the refresh tokens behind an access token.
func (a *AuthClient) SignOut(accessToken string) error {
	if err := a.auth.WithToken(accessToken).Logout(); err != nil {
		return fmt.Errorf("failed to sign out: %w", err)
	}
	return nil
}
