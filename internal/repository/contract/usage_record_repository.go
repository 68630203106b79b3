package contract

import (
	"context"
	"time"

	"ragchat-be/internal/entity"
	"ragchat-be/internal/repository/specification"

	"github.com/google/uuid"
)

type UsageRecordRepository interface {
	// IncrementCounter atomically upserts the (user, date) record and bumps the
	// named counter column by one. Never a read-modify-write from the caller side.
	IncrementCounter(ctx context.Context, userId uuid.UUID, date time.Time, counter string) error

	FindByUserInRange(ctx context.Context, userId uuid.UUID, from, to time.Time) ([]*entity.UsageRecord, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.UsageRecord, error)
}
