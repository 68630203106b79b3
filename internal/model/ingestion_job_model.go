package model

import (
	"time"

	"github.com/google/uuid"
)

type IngestionJob struct {
	Id             uuid.UUID `gorm:"type:uuid;primaryKey"`
	ConversationId uuid.UUID `gorm:"type:uuid;not null;index"`
	UserId         uuid.UUID `gorm:"type:uuid;not null;index"`
	Kind           string    `gorm:"type:varchar(16);not null"` // file | repository
	FilePath       string
	FileName       string
	RepoURL        string
	State          string    `gorm:"type:varchar(16);not null;index"` // queued | active | completed | failed
	Progress       int       `gorm:"not null;default:0"`
	ChunkCount     int       `gorm:"not null;default:0"`
	Error          string    `gorm:"type:text"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}

func (IngestionJob) TableName() string {
	return "ingestion_jobs"
}
