package supabase

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PJ1229/OOTD/internal/models"
)

var postRowColumns = []string{"id", "image", "likes", "dislikes", "created_by", "created_at"}

func newMockDatabase(t *testing.T) (*DatabaseClient, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return &DatabaseClient{db: db}, mock
}

func TestDatabaseClient_VoteIsOneStatement(t *testing.T) {
	db, mock := newMockDatabase(t)
	author := uuid.New()
	createdAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE posts SET likes = likes + 1 WHERE id = $1 RETURNING ` + postColumns)).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(postRowColumns).AddRow(int64(7), "https://cdn.test/7.png", 5, 2, author.String(), createdAt))
	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE posts SET dislikes = dislikes + 1 WHERE id = $1 RETURNING ` + postColumns)).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(postRowColumns).AddRow(int64(7), "https://cdn.test/7.png", 5, 3, nil, createdAt))

	post, err := db.Vote(context.Background(), 7, true)
	require.NoError(t, err)
	assert.Equal(t, 5, post.Likes)
	require.NotNil(t, post.CreatedBy)
	assert.Equal(t, author, *post.CreatedBy)
	assert.Equal(t, createdAt, post.CreatedAt)

	post, err = db.Vote(context.Background(), 7, false)
	require.NoError(t, err)
	assert.Equal(t, 3, post.Dislikes)
	assert.Nil(t, post.CreatedBy)
}

func TestDatabaseClient_VoteMissingPost(t *testing.T) {
	db, mock := newMockDatabase(t)
	mock.ExpectQuery(`UPDATE posts SET likes`).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows(postRowColumns))

	_, err := db.Vote(context.Background(), 42, true)
	assert.ErrorIs(t, err, ErrPostNotFound)
}

func TestDatabaseClient_VoteQueryError(t *testing.T) {
	db, mock := newMockDatabase(t)
	mock.ExpectQuery(`UPDATE posts SET dislikes`).
		WithArgs(int64(1)).
		WillReturnError(errors.New("connection reset"))

	_, err := db.Vote(context.Background(), 1, false)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPostNotFound)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestDatabaseClient_ListTryOnJobs(t *testing.T) {
	db, mock := newMockDatabase(t)
	user := uuid.New()
	jobID, sessionID := uuid.New(), uuid.New()
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	updated := created.Add(12 * time.Second)

	mock.ExpectQuery(`FROM tryon_jobs\s+WHERE user_id = \$1\s+ORDER BY created_at DESC\s+LIMIT \$2`).
		WithArgs(user, 50).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "session_id", "user_id", "remote_id", "status", "result_url", "archive_url", "error_message", "attempts", "created_at", "updated_at",
		}).AddRow(
			jobID.String(), sessionID.String(), user.String(), "job-1", "done",
			"https://cdn.fashn.ai/out.png", nil, nil, 6, created, updated,
		))

	jobs, err := db.ListTryOnJobs(context.Background(), user, 50)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	job := jobs[0]
	assert.Equal(t, jobID, job.ID)
	assert.Equal(t, sessionID, job.SessionID)
	assert.Equal(t, "done", job.Status)
	assert.Equal(t, sql.NullString{String: "https://cdn.fashn.ai/out.png", Valid: true}, job.ResultURL)
	assert.False(t, job.ArchiveURL.Valid)
	assert.Equal(t, 6, job.Attempts)
	assert.Equal(t, updated, job.UpdatedAt)
}

func TestDatabaseClient_RecordsTryOnJob(t *testing.T) {
	db, mock := newMockDatabase(t)
	job := &models.TryOnJob{
		ID:        uuid.New(),
		SessionID: uuid.New(),
		UserID:    uuid.New(),
		RemoteID:  "job-1",
		Status:    "submitted",
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	mock.ExpectExec(`INSERT INTO tryon_jobs`).
		WithArgs(job.ID, job.SessionID, job.UserID, "job-1", "submitted",
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), 0, job.CreatedAt, job.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE tryon_jobs`).
		WithArgs("done", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), 3, sqlmock.AnyArg(), job.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, db.CreateTryOnJob(context.Background(), job))
	job.Status = "done"
	job.Attempts = 3
	require.NoError(t, db.UpdateTryOnJob(context.Background(), job))
}
