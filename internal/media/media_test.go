package media

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDataURIRoundTrip(t *testing.T) {
	img, err := FromBytes(testPNG(t, 4, 3))
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MIME)
	assert.Equal(t, ".png", img.Extension())

	uri := img.DataURI()
	assert.True(t, strings.HasPrefix(uri, "data:image/png;base64,"))

	parsed, err := ParseDataURI(uri)
	require.NoError(t, err)
	assert.Equal(t, img.Data, parsed.Data)
}

func TestParseDataURI_Invalid(t *testing.T) {
	for _, in := range []string{"", "image/png;base64,AAAA", "data:image/png;base64", "data:image/png;base64,@@@"} {
		_, err := ParseDataURI(in)
		assert.ErrorIs(t, err, ErrInvalidDataURI, in)
	}
}

func TestFromBytes_RejectsNonImages(t *testing.T) {
	_, err := FromBytes([]byte("just some text"))
	assert.ErrorIs(t, err, ErrNotImage)

	_, err = FromBytes(nil)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestSnapshot_NativeResolution(t *testing.T) {
	frame := image.NewRGBA(image.Rect(10, 20, 650, 500))
	snap, err := Snapshot(frame)
	require.NoError(t, err)
	assert.Equal(t, "image/png", snap.MIME)

	decoded, err := png.Decode(bytes.NewReader(snap.Data))
	require.NoError(t, err)
	assert.Equal(t, 640, decoded.Bounds().Dx())
	assert.Equal(t, 480, decoded.Bounds().Dy())
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk on fire") }

func TestReadFile_SurfacesErrors(t *testing.T) {
	_, err := ReadFile(failingReader{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk on fire")
}

func TestFetch(t *testing.T) {
	data := testPNG(t, 2, 2)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.png" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write(data)
	}))
	defer ts.Close()

	img, err := Fetch(context.Background(), ts.Client(), ts.URL+"/garment.png")
	require.NoError(t, err)
	assert.Equal(t, data, img.Data)

	_, err = Fetch(context.Background(), ts.Client(), ts.URL+"/missing.png")
	assert.Error(t, err)
}

type fakeCamera struct {
	err    error
	facing Facing
	closed bool
}

func (f *fakeCamera) Open(_ context.Context, facing Facing) (Stream, error) {
	f.facing = facing
	if f.err != nil {
		return nil, f.err
	}
	return &fakeStream{cam: f}, nil
}

type fakeStream struct{ cam *fakeCamera }

func (s *fakeStream) Frame() (image.Image, error) { return image.NewRGBA(image.Rect(0, 0, 8, 6)), nil }
func (s *fakeStream) Close() error                { s.cam.closed = true; return nil }

func TestCapture_Lifecycle(t *testing.T) {
	cam := &fakeCamera{}
	capture := NewCapture(cam, zerolog.Nop())

	_, err := capture.Snapshot()
	assert.ErrorIs(t, err, ErrCameraInactive)

	require.NoError(t, capture.Start(context.Background()))
	assert.Equal(t, FacingBack, cam.facing)
	assert.True(t, capture.Active())

	snap, err := capture.Snapshot()
	require.NoError(t, err)
	assert.False(t, snap.Empty())

	require.NoError(t, capture.Stop())
	assert.True(t, cam.closed)
	assert.False(t, capture.Active())
}

func TestCapture_PermissionDenied(t *testing.T) {
	capture := NewCapture(&fakeCamera{err: errors.New("permission denied")}, zerolog.Nop())

	err := capture.Start(context.Background())
	require.Error(t, err)
	assert.False(t, capture.Active())

	_, err = capture.Snapshot()
	assert.ErrorIs(t, err, ErrCameraInactive)
}

func TestFileCamera(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.png")
	require.NoError(t, os.WriteFile(path, testPNG(t, 5, 7), 0o600))

	capture := NewCapture(FileCamera{Path: path}, zerolog.Nop())
	require.NoError(t, capture.Start(context.Background()))

	snap, err := capture.Snapshot()
	require.NoError(t, err)
	decoded, err := png.Decode(bytes.NewReader(snap.Data))
	require.NoError(t, err)
	assert.Equal(t, 5, decoded.Bounds().Dx())
	assert.Equal(t, 7, decoded.Bounds().Dy())
}
