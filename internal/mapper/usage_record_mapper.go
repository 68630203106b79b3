package mapper

import (
	"time"

	"ragchat-be/internal/entity"
	"ragchat-be/internal/model"
)

type UsageRecordMapper struct{}

func NewUsageRecordMapper() *UsageRecordMapper {
	return &UsageRecordMapper{}
}

func (m *UsageRecordMapper) ToEntity(r *model.UsageRecord) *entity.UsageRecord {
	if r == nil {
		return nil
	}

	var updatedAt *time.Time
	if !r.UpdatedAt.IsZero() {
		t := r.UpdatedAt
		updatedAt = &t
	}

	return &entity.UsageRecord{
		Id:        r.Id,
		UserId:    r.UserId,
		UsageDate: r.UsageDate,
		Messages:  r.Messages,
		Uploads:   r.Uploads,
		Repos:     r.Repos,
		CreatedAt: r.CreatedAt,
		UpdatedAt: updatedAt,
	}
}

func (m *UsageRecordMapper) ToEntities(records []*model.UsageRecord) []*entity.UsageRecord {
	entities := make([]*entity.UsageRecord, len(records))
	for i, r := range records {
		entities[i] = m.ToEntity(r)
	}
	return entities
}
