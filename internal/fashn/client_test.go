package fashn

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Run(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/run", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body RunRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "data:image/png;base64,AAA", body.ModelImage)
		assert.Equal(t, "data:image/png;base64,BBB", body.GarmentImage)
		assert.Equal(t, "tops", body.Category)
		assert.True(t, body.RestoreBackground)
		assert.True(t, body.RestoreClothes)

		_, _ = w.Write([]byte(`{"id":"job-123","error":null}`))
	}))
	defer ts.Close()

	client := NewClient(ts.URL+"/v1/", "test-key")
	id, err := client.Run(context.Background(), RunRequest{
		ModelImage:        "data:image/png;base64,AAA",
		GarmentImage:      "data:image/png;base64,BBB",
		Category:          "tops",
		RestoreBackground: true,
		RestoreClothes:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, "job-123", id)
}

func TestClient_Run_NonSuccess(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"bad key"}`))
	}))
	defer ts.Close()

	_, err := NewClient(ts.URL, "wrong").Run(context.Background(), RunRequest{})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "bad key")
}

func TestClient_Run_EmptyID(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	_, err := NewClient(ts.URL, "k").Run(context.Background(), RunRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "job id is empty")
}

func TestClient_Status(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/status/job-123", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"id":"job-123","status":"completed","output":["https://cdn.example.com/out.png"]}`))
	}))
	defer ts.Close()

	status, err := NewClient(ts.URL, "test-key").Status(context.Background(), "job-123")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, status.Status)
	assert.True(t, status.Terminal())
	assert.Equal(t, []string{"https://cdn.example.com/out.png"}, status.Output)
}

func TestClient_Download(t *testing.T) {
	ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte("png-bytes"))
	}))
	defer ts.Close()

	client := NewClient("https://api.example.com", "k").WithHTTPClient(ts.Client())
	data, err := client.Download(context.Background(), ts.URL+"/out.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), data)
}

func TestStatusResponse_Terminal(t *testing.T) {
	assert.False(t, (&StatusResponse{Status: "processing"}).Terminal())
	assert.False(t, (&StatusResponse{Status: StatusPending}).Terminal())
	assert.True(t, (&StatusResponse{Status: StatusFailed}).Terminal())
	assert.True(t, (&StatusResponse{Status: StatusCanceled}).Terminal())
}
