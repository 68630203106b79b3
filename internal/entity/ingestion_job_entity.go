package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	JobKindFile       = "file"
	JobKindRepository = "repository"

	JobStateQueued    = "queued"
	JobStateActive    = "active"
	JobStateCompleted = "completed"
	JobStateFailed    = "failed"
)

type IngestionJob struct {
	Id             uuid.UUID
	ConversationId uuid.UUID
	UserId         uuid.UUID
	Kind           string

	// File payload
	FilePath string
	FileName string

	// Repository payload
	RepoURL string

	State      string
	Progress   int
	ChunkCount int
	Error      string

	CreatedAt time.Time
	UpdatedAt *time.Time
}

func (j *IngestionJob) Terminal() bool {
	return j.State == JobStateCompleted || j.State == JobStateFailed
}
