package dto

import (
	"ragchat-be/pkg/quota"

	"github.com/google/uuid"
)

type SubmitRepositoryRequest struct {
	RepoURL        string     `json:"repo_url" validate:"required,max=256"`
	Title          string     `json:"title" validate:"omitempty,max=128"`
	ConversationId *uuid.UUID `json:"conversation_id" validate:"omitempty"`
}

type IngestionSubmitResponse struct {
	JobId          uuid.UUID       `json:"job_id"`
	ConversationId uuid.UUID       `json:"conversation_id"`
	Status         string          `json:"status"`
	Usage          *quota.Snapshot `json:"usage,omitempty"`
}

type JobStatusResponse struct {
	JobId          uuid.UUID `json:"job_id"`
	ConversationId uuid.UUID `json:"conversation_id,omitempty"`
	Status         string    `json:"status"`
	Progress       int       `json:"progress"`
	ChunkCount     int       `json:"chunk_count,omitempty"`
	Error          string    `json:"error,omitempty"`
}
