package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// MaxImageBytes caps uploads and fetched garment images.
const MaxImageBytes = 20 << 20

var (
	ErrInvalidDataURI = errors.New("invalid data URI")
	ErrNotImage       = errors.New("payload is not an image")
	ErrTooLarge       = errors.New("image exceeds size limit")
	ErrEmpty          = errors.New("image is empty")
)

// Image is an encoded still image held in memory.
type Image struct {
	MIME string
	Data []byte
}

func (i Image) Empty() bool {
	return len(i.Data) == 0
}

// DataURI renders the image as an embeddable base64 data URI.
func (i Image) DataURI() string {
	if i.Empty() {
		return ""
	}
	return "data:" + i.MIME + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// Extension returns the file extension for the image type, with the dot.
func (i Image) Extension() string {
	if mt := mimetype.Lookup(i.MIME); mt != nil {
		return mt.Extension()
	}
	return ""
}

// ParseDataURI decodes a "data:<mime>[;base64],<payload>" string.
func ParseDataURI(s string) (Image, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "data:") {
		return Image{}, fmt.Errorf("%w: missing data: prefix", ErrInvalidDataURI)
	}
	meta, payload, ok := strings.Cut(s[len("data:"):], ",")
	if !ok {
		return Image{}, fmt.Errorf("%w: missing payload separator", ErrInvalidDataURI)
	}

	var data []byte
	if strings.HasSuffix(meta, ";base64") {
		meta = strings.TrimSuffix(meta, ";base64")
		decoded, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return Image{}, fmt.Errorf("%w: %v", ErrInvalidDataURI, err)
		}
		data = decoded
	} else {
		unescaped, err := url.PathUnescape(payload)
		if err != nil {
			return Image{}, fmt.Errorf("%w: %v", ErrInvalidDataURI, err)
		}
		data = []byte(unescaped)
	}

	// The declared type is ignored; the sniffed type wins.
	return FromBytes(data)
}

// FromBytes sniffs the content type and rejects anything that is not an image.
func FromBytes(data []byte) (Image, error) {
	if len(data) == 0 {
		return Image{}, ErrEmpty
	}
	if len(data) > MaxImageBytes {
		return Image{}, ErrTooLarge
	}
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return Image{}, fmt.Errorf("%w: detected %s", ErrNotImage, mt.String())
	}
	return Image{MIME: mt.String(), Data: data}, nil
}

// ReadFile reads a user selected file. Read failures are returned to the
// caller rather than swallowed.
func ReadFile(r io.Reader) (Image, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageBytes+1))
	if err != nil {
		return Image{}, fmt.Errorf("failed to read file: %w", err)
	}
	return FromBytes(data)
}

// ReadUpload reads a multipart file part.
func ReadUpload(fh *multipart.FileHeader) (Image, error) {
	src, err := fh.Open()
	if err != nil {
		return Image{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer src.Close()
	return ReadFile(src)
}

// Snapshot draws frame onto a surface of the frame's native size and
// encodes it as PNG.
func Snapshot(frame image.Image) (Image, error) {
	bounds := frame.Bounds()
	if bounds.Empty() {
		return Image{}, ErrEmpty
	}
	canvas := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(canvas, canvas.Bounds(), frame, bounds.Min, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return Image{}, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return Image{MIME: "image/png", Data: buf.Bytes()}, nil
}

// Fetch downloads an image by URL, e.g. a garment picked from the library.
func Fetch(ctx context.Context, client *http.Client, imageURL string) (Image, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return Image{}, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return Image{}, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Image{}, fmt.Errorf("failed to fetch image: status %d", resp.StatusCode)
	}
	return ReadFile(resp.Body)
}
