package contract

import (
	"context"

	"ragchat-be/internal/entity"
	"ragchat-be/internal/repository/specification"

	"github.com/google/uuid"
)

type IngestionJobRepository interface {
	Create(ctx context.Context, job *entity.IngestionJob) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.IngestionJob, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.IngestionJob, error)

	// Claim transitions a queued job to active. Returns false when the job was
	// already claimed or is terminal, so a redelivered message becomes a no-op.
	Claim(ctx context.Context, id uuid.UUID) (bool, error)

	UpdateProgress(ctx context.Context, id uuid.UUID, progress int) error
	Complete(ctx context.Context, id uuid.UUID, chunkCount int) error
	Fail(ctx context.Context, id uuid.UUID, errMsg string) error
}
