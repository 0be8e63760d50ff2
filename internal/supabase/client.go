package supabase

import (
	"fmt"

	"github.com/supabase-community/supabase-go"

	"github.com/PJ1229/OOTD/internal/config"
	"github.com/PJ1229/OOTD/internal/database"
)

// Client is the process-wide hosted backend client. It is built once at
// startup and handed to every component that talks to Supabase.
type Client struct {
	Supabase *supabase.Client
	Config   *config.Config
}

func NewClient(cfg *config.Config) (*Client, error) {
	client, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabasePublishableKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}

	return &Client{
		Supabase: client,
		Config:   cfg,
	}, nil
}

func (c *Client) Auth() *AuthClient {
	return NewAuthClient(c.Supabase.Auth)
}

func (c *Client) Posts() *PostgRESTStore {
	return NewPostgRESTStore(c.Supabase, database.PostsTable)
}

func (c *Client) Storage(bucket string) *StorageClient {
	return NewStorageClient(c.Supabase.Storage, bucket)
}
