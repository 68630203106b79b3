package mapper

import (
	"ragchat-be/internal/entity"
	"ragchat-be/internal/model"

	"github.com/pgvector/pgvector-go"
)

type ChunkEmbeddingMapper struct{}

func NewChunkEmbeddingMapper() *ChunkEmbeddingMapper {
	return &ChunkEmbeddingMapper{}
}

func (m *ChunkEmbeddingMapper) ToEntity(e *model.ChunkEmbedding) *entity.ChunkEmbedding {
	if e == nil {
		return nil
	}
	return &entity.ChunkEmbedding{
		Id:             e.Id,
		CollectionId:   e.CollectionId,
		Content:        e.Content,
		Source:         e.Source,
		ChunkType:      e.ChunkType,
		EmbeddingValue: e.EmbeddingValue.Slice(),
		CreatedAt:      e.CreatedAt,
	}
}

func (m *ChunkEmbeddingMapper) ToModel(e *entity.ChunkEmbedding) *model.ChunkEmbedding {
	if e == nil {
		return nil
	}
	return &model.ChunkEmbedding{
		Id:             e.Id,
		CollectionId:   e.CollectionId,
		Content:        e.Content,
		Source:         e.Source,
		ChunkType:      e.ChunkType,
		EmbeddingValue: pgvector.NewVector(e.EmbeddingValue),
		CreatedAt:      e.CreatedAt,
	}
}

func (m *ChunkEmbeddingMapper) ToModels(embeddings []*entity.ChunkEmbedding) []*model.ChunkEmbedding {
	models := make([]*model.ChunkEmbedding, len(embeddings))
	for i, e := range embeddings {
		models[i] = m.ToModel(e)
	}
	return models
}
