package supabase

import (
	"bytes"
	"context"
	"fmt"
	"time"

	storage "github.com/supabase-community/storage-go"

	"github.com/PJ1229/OOTD/internal/media"
)

// StorageClient uploads objects to one Supabase Storage bucket.
type StorageClient struct {
	client *storage.Client
	bucket string
	now    func() time.Time
}

func NewStorageClient(client *storage.Client, bucket string) *StorageClient {
	return &StorageClient{
		client: client,
		bucket: bucket,
		now:    time.Now,
	}
}

// Upload stores data at key and returns its public URL.
func (s *StorageClient) Upload(_ context.Context, key, contentType string, data []byte) (string, error) {
	upsert := false
	_, err := s.client.UploadFile(s.bucket, key, bytes.NewReader(data), storage.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}
	return s.PublicURL(key), nil
}

func (s *StorageClient) PublicURL(key string) string {
	return s.client.GetPublicUrl(s.bucket, key).SignedURL
}

func (s *StorageClient) Delete(_ context.Context, key string) error {
	if _, err := s.client.RemoveFile(s.bucket, []string{key}); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// PostImagePath is where an uploaded outfit photo is stored.
func PostImagePath(at time.Time, img media.Image) string {
	ext := img.Extension()
	if ext == "" {
		ext = ".png"
	}
	return fmt.Sprintf("private/images/%d_captured-image%s", at.UnixMilli(), ext)
}

// UploadPostImage stores a captured photo and returns its path and public URL.
func (s *StorageClient) UploadPostImage(ctx context.Context, img media.Image) (string, string, error) {
	path := PostImagePath(s.now(), img)
	url, err := s.Upload(ctx, path, img.MIME, img.Data)
	if err != nil {
		return "", "", err
	}
	return path, url, nil
}
