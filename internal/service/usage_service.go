package service

import (
	"context"
	"errors"

	"ragchat-be/internal/dto"
	"ragchat-be/internal/pkg/serverutils"
	"ragchat-be/pkg/quota"

	"github.com/google/uuid"
)

type IUsageService interface {
	GetUsage(ctx context.Context, userId uuid.UUID) (*quota.Snapshot, error)
	UpdateLimits(ctx context.Context, userId uuid.UUID, req *dto.UpdateLimitsRequest) (*quota.Snapshot, error)
}

type usageService struct {
	ledger *quota.Ledger
}

func NewUsageService(ledger *quota.Ledger) IUsageService {
	return &usageService{ledger: ledger}
}

func (s *usageService) GetUsage(ctx context.Context, userId uuid.UUID) (*quota.Snapshot, error) {
	return s.ledger.Snapshot(ctx, userId)
}

func (s *usageService) UpdateLimits(ctx context.Context, userId uuid.UUID, req *dto.UpdateLimitsRequest) (*quota.Snapshot, error) {
	if err := s.ledger.UpdateLimits(ctx, userId, req.DailyLimit, req.MonthlyLimit); err != nil {
		if errors.Is(err, quota.ErrInvalidLimit) {
			return nil, serverutils.BadRequestError(err.Error())
		}
		return nil, err
	}
	return s.ledger.Snapshot(ctx, userId)
}
