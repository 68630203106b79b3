package contract

import (
	"context"

	"ragchat-be/internal/entity"
)

// ScoredChunkEmbedding pairs a stored chunk with its cosine similarity to a query.
type ScoredChunkEmbedding struct {
	Embedding  *entity.ChunkEmbedding
	Similarity float64
}

type ChunkEmbeddingRepository interface {
	CreateBulk(ctx context.Context, embeddings []*entity.ChunkEmbedding) error
	DeleteByCollectionId(ctx context.Context, collectionId string) error
	CountByCollectionId(ctx context.Context, collectionId string) (int64, error)
	SearchSimilar(ctx context.Context, collectionId string, embedding []float32, limit int) ([]*ScoredChunkEmbedding, error)
}
