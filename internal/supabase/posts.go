package supabase

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/supabase-community/supabase-go"

	"github.com/PJ1229/OOTD/internal/models"
)

// noSingleRow is the PostgREST error code for a single-object request that
// matched no rows.
const noSingleRow = "PGRST116"

// PostStore is the posts table as the handlers see it.
type PostStore interface {
	ListPosts(ctx context.Context) ([]models.Post, error)
	CreatePost(ctx context.Context, in models.NewPost) (*models.Post, error)
	Vote(ctx context.Context, postID int64, like bool) (*models.Post, error)
}

// PostgRESTStore reaches the posts table through the REST gateway. It is
// used when no direct database connection is configured. Votes are a read
// followed by a write, so concurrent votes on one post can be lost.
type PostgRESTStore struct {
	client *supabase.Client
	table  string
}

func NewPostgRESTStore(client *supabase.Client, table string) *PostgRESTStore {
	if table == "" {
		table = "posts"
	}
	return &PostgRESTStore{client: client, table: table}
}

func (s *PostgRESTStore) ListPosts(ctx context.Context) ([]models.Post, error) {
	posts := []models.Post{}
	if _, err := s.client.From(s.table).Select("*", "", false).ExecuteToWithContext(ctx, &posts); err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	sort.SliceStable(posts, func(i, j int) bool { return posts[i].ID < posts[j].ID })
	return posts, nil
}

func (s *PostgRESTStore) CreatePost(ctx context.Context, in models.NewPost) (*models.Post, error) {
	var post models.Post
	_, err := s.client.From(s.table).
		Insert(in, false, "", "representation", "").
		Single().
		ExecuteToWithContext(ctx, &post)
	if err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}
	return &post, nil
}

func (s *PostgRESTStore) Vote(ctx context.Context, postID int64, like bool) (*models.Post, error) {
	id := strconv.FormatInt(postID, 10)

	var current models.Post
	if _, err := s.client.From(s.table).Select("*", "", false).Eq("id", id).Single().ExecuteToWithContext(ctx, &current); err != nil {
		if strings.Contains(err.Error(), noSingleRow) {
			return nil, fmt.Errorf("%w: %d", ErrPostNotFound, postID)
		}
		return nil, fmt.Errorf("failed to load post %d: %w", postID, err)
	}

	patch := map[string]int{"dislikes": current.Dislikes + 1}
	if like {
		patch = map[string]int{"likes": current.Likes + 1}
	}

	var updated models.Post
	_, err := s.client.From(s.table).
		Update(patch, "representation", "").
		Eq("id", id).
		Single().
		ExecuteToWithContext(ctx, &updated)
	if err != nil {
		return nil, fmt.Errorf("failed to vote on post %d: %w", postID, err)
	}
	return &updated, nil
}
