package mapper

import (
	"time"

	"ragchat-be/internal/entity"
	"ragchat-be/internal/model"
)

type IngestionJobMapper struct{}

func NewIngestionJobMapper() *IngestionJobMapper {
	return &IngestionJobMapper{}
}

func (m *IngestionJobMapper) ToEntity(j *model.IngestionJob) *entity.IngestionJob {
	if j == nil {
		return nil
	}

	var updatedAt *time.Time
	if !j.UpdatedAt.IsZero() {
		t := j.UpdatedAt
		updatedAt = &t
	}

	return &entity.IngestionJob{
		Id:             j.Id,
		ConversationId: j.ConversationId,
		UserId:         j.UserId,
		Kind:           j.Kind,
		FilePath:       j.FilePath,
		FileName:       j.FileName,
		RepoURL:        j.RepoURL,
		State:          j.State,
		Progress:       j.Progress,
		ChunkCount:     j.ChunkCount,
		Error:          j.Error,
		CreatedAt:      j.CreatedAt,
		UpdatedAt:      updatedAt,
	}
}

func (m *IngestionJobMapper) ToModel(j *entity.IngestionJob) *model.IngestionJob {
	if j == nil {
		return nil
	}

	var updatedAt time.Time
	if j.UpdatedAt != nil {
		updatedAt = *j.UpdatedAt
	}

	return &model.IngestionJob{
		Id:             j.Id,
		ConversationId: j.ConversationId,
		UserId:         j.UserId,
		Kind:           j.Kind,
		FilePath:       j.FilePath,
		FileName:       j.FileName,
		RepoURL:        j.RepoURL,
		State:          j.State,
		Progress:       j.Progress,
		ChunkCount:     j.ChunkCount,
		Error:          j.Error,
		CreatedAt:      j.CreatedAt,
		UpdatedAt:      updatedAt,
	}
}

func (m *IngestionJobMapper) ToEntities(jobs []*model.IngestionJob) []*entity.IngestionJob {
	entities := make([]*entity.IngestionJob, len(jobs))
	for i, j := range jobs {
		entities[i] = m.ToEntity(j)
	}
	return entities
}
