package supabase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/PJ1229/OOTD/internal/models"
)

var ErrPostNotFound = errors.New("post not found")

// DatabaseClient talks to the Supabase Postgres instance directly.
type DatabaseClient struct {
	db *sql.DB
}

func NewDatabaseClient(connectionString string) (*DatabaseClient, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DatabaseClient{db: db}, nil
}

func (d *DatabaseClient) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func (d *DatabaseClient) Close() error {
	return d.db.Close()
}

const postColumns = `id, image, likes, dislikes, created_by, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*models.Post, error) {
	var (
		post      models.Post
		createdBy uuid.NullUUID
	)
	if err := row.Scan(&post.ID, &post.Image, &post.Likes, &post.Dislikes, &createdBy, &post.CreatedAt); err != nil {
		return nil, err
	}
	if createdBy.Valid {
		id := createdBy.UUID
		post.CreatedBy = &id
	}
	return &post, nil
}

func (d *DatabaseClient) ListPosts(ctx context.Context) ([]models.Post, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT `+postColumns+`
		FROM posts
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	posts := []models.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, *post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	return posts, nil
}

func (d *DatabaseClient) CreatePost(ctx context.Context, in models.NewPost) (*models.Post, error) {
	post, err := scanPost(d.db.QueryRowContext(ctx, `
		INSERT INTO posts (image, created_by)
		VALUES ($1, $2)
		RETURNING `+postColumns,
		in.Image, uuid.NullUUID{UUID: derefUUID(in.CreatedBy), Valid: in.CreatedBy != nil},
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}
	return post, nil
}

// Vote increments likes or dislikes in a single statement.
func (d *DatabaseClient) Vote(ctx context.Context, postID int64, like bool) (*models.Post, error) {
	query := `UPDATE posts SET dislikes = dislikes + 1 WHERE id = $1 RETURNING ` + postColumns
	if like {
		query = `UPDATE posts SET likes = likes + 1 WHERE id = $1 RETURNING ` + postColumns
	}
	post, err := scanPost(d.db.QueryRowContext(ctx, query, postID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrPostNotFound, postID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to vote on post %d: %w", postID, err)
	}
	return post, nil
}

func (d *DatabaseClient) CreateTryOnJob(ctx context.Context, job *models.TryOnJob) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO tryon_jobs (id, session_id, user_id, remote_id, status, result_url, archive_url, error_message, attempts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, job.ID, job.SessionID, job.UserID, job.RemoteID, job.Status,
		job.ResultURL, job.ArchiveURL, job.ErrorMessage, job.Attempts, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create try-on job: %w", err)
	}
	return nil
}

func (d *DatabaseClient) UpdateTryOnJob(ctx context.Context, job *models.TryOnJob) error {
	_, err := d.db.ExecContext(ctx, `
		UPDATE tryon_jobs
		SET status = $1, result_url = $2, archive_url = $3, error_message = $4, attempts = $5, updated_at = $6
		WHERE id = $7
	`, job.Status, job.ResultURL, job.ArchiveURL, job.ErrorMessage, job.Attempts, job.UpdatedAt, job.ID)
	if err != nil {
		return fmt.Errorf("failed to update try-on job: %w", err)
	}
	return nil
}

func (d *DatabaseClient) ListTryOnJobs(ctx context.Context, userID uuid.UUID, limit int) ([]models.TryOnJob, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, session_id, user_id, remote_id, status, result_url, archive_url, error_message, attempts, created_at, updated_at
		FROM tryon_jobs
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list try-on jobs: %w", err)
	}
	defer rows.Close()

	jobs := []models.TryOnJob{}
	for rows.Next() {
		var job models.TryOnJob
		if err := rows.Scan(
			&job.ID, &job.SessionID, &job.UserID, &job.RemoteID, &job.Status,
			&job.ResultURL, &job.ArchiveURL, &job.ErrorMessage, &job.Attempts, &job.CreatedAt, &job.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan try-on job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func derefUUID(id *uuid.UUID) uuid.UUID {
	if id == nil {
		return uuid.Nil
	}
	return *id
}
