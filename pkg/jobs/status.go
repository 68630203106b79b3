package jobs

import (
	"context"
	"fmt"

	"ragchat-be/internal/repository/specification"
	"ragchat-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

const StatusNotFound = "not_found"

// Status is the poll view of a job. An unknown id yields Status "not_found"
// rather than an error so clients can poll ids they got ahead of a restart.
type Status struct {
	JobId          uuid.UUID `json:"job_id"`
	ConversationId uuid.UUID `json:"conversation_id,omitempty"`
	Status         string    `json:"status"`
	Progress       int       `json:"progress"`
	ChunkCount     int       `json:"chunk_count,omitempty"`
	Error          string    `json:"error,omitempty"`
}

// StatusService answers job progress polls.
type StatusService struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewStatusService(uowFactory unitofwork.RepositoryFactory) *StatusService {
	return &StatusService{uowFactory: uowFactory}
}

// GetStatus returns the state of a job owned by the user.
func (s *StatusService) GetStatus(ctx context.Context, userId, jobId uuid.UUID) (*Status, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	job, err := uow.IngestionJobRepository().FindOne(ctx,
		specification.ByID{ID: jobId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, fmt.Errorf("load job: %w", err)
	}
	if job == nil {
		return &Status{JobId: jobId, Status: StatusNotFound}, nil
	}

	return &Status{
		JobId:          job.Id,
		ConversationId: job.ConversationId,
		Status:         job.State,
		Progress:       job.Progress,
		ChunkCount:     job.ChunkCount,
		Error:          job.Error,
	}, nil
}
