package media

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// Facing selects which camera a capture asks for.
type Facing string

const (
	FacingBack  Facing = "environment"
	FacingFront Facing = "user"
)

var ErrCameraInactive = errors.New("camera is not active")

// Camera hands out live frame streams.
type Camera interface {
	Open(ctx context.Context, facing Facing) (Stream, error)
}

// Stream is an open camera stream.
type Stream interface {
	Frame() (image.Image, error)
	Close() error
}

// Capture owns at most one camera stream at a time.
type Capture struct {
	camera Camera
	logger zerolog.Logger

	mu     sync.Mutex
	stream Stream
}

func NewCapture(camera Camera, logger zerolog.Logger) *Capture {
	return &Capture{camera: camera, logger: logger}
}

// Start acquires the back-facing camera. On failure the capture stays
// inactive and the error is both logged and returned.
func (c *Capture) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stream != nil {
		return nil
	}
	stream, err := c.camera.Open(ctx, FacingBack)
	if err != nil {
		c.logger.Error().Err(err).Msg("error accessing the camera")
		return fmt.Errorf("failed to open camera: %w", err)
	}
	c.stream = stream
	return nil
}

func (c *Capture) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stream != nil
}

// Snapshot grabs the current frame at native resolution.
func (c *Capture) Snapshot() (Image, error) {
	c.mu.Lock()
	stream := c.stream
	c.mu.Unlock()

	if stream == nil {
		return Image{}, ErrCameraInactive
	}
	frame, err := stream.Frame()
	if err != nil {
		return Image{}, fmt.Errorf("failed to read frame: %w", err)
	}
	return Snapshot(frame)
}

// Stop releases the stream. Stopping an inactive capture is a no-op.
func (c *Capture) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stream == nil {
		return nil
	}
	err := c.stream.Close()
	c.stream = nil
	return err
}

// FileCamera serves a still image file as a single-frame stream. The CLI
// uses it to push local photos through the same capture path.
type FileCamera struct {
	Path string
}

func (f FileCamera) Open(_ context.Context, _ Facing) (Stream, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	frame, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", f.Path, err)
	}
	return stillStream{frame: frame}, nil
}

type stillStream struct {
	frame image.Image
}

func (s stillStream) Frame() (image.Image, error) { return s.frame, nil }
func (s stillStream) Close() error                { return nil }
