package models

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

type TryOnJob struct {
	ID           uuid.UUID
	SessionID    uuid.UUID
	UserID       uuid.UUID
	RemoteID     string
	Status       string
	ResultURL    sql.NullString
	ArchiveURL   sql.NullString
	ErrorMessage sql.NullString
	Attempts     int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
