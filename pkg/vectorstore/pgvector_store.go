package vectorstore

import (
	"context"
	"fmt"

	"ragchat-be/internal/entity"
	"ragchat-be/internal/repository/unitofwork"
	"ragchat-be/pkg/embedding"

	"github.com/google/uuid"
)

// PgvectorStore keeps chunks in the relational database using the pgvector
// extension. Collections share one table and are distinguished by
// collection_id, so Ensure has nothing to set up.
type PgvectorStore struct {
	uowFactory unitofwork.RepositoryFactory
}

var _ Store = &PgvectorStore{}

func NewPgvectorStore(uowFactory unitofwork.RepositoryFactory) *PgvectorStore {
	return &PgvectorStore{uowFactory: uowFactory}
}

func (s *PgvectorStore) Ensure(ctx context.Context, collectionId string) error {
	return nil
}

func (s *PgvectorStore) Append(ctx context.Context, collectionId string, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := validateDimension(embedding.Dimension, chunks); err != nil {
		return err
	}

	rows := make([]*entity.ChunkEmbedding, len(chunks))
	for i, c := range chunks {
		rows[i] = &entity.ChunkEmbedding{
			Id:             uuid.New(),
			CollectionId:   collectionId,
			Content:        c.Content,
			Source:         c.Source,
			ChunkType:      c.ChunkType,
			EmbeddingValue: c.Embedding,
		}
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.ChunkEmbeddingRepository().CreateBulk(ctx, rows); err != nil {
		return fmt.Errorf("store chunks: %w", err)
	}
	return nil
}

func (s *PgvectorStore) Delete(ctx context.Context, collectionId string) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.ChunkEmbeddingRepository().DeleteByCollectionId(ctx, collectionId)
}

func (s *PgvectorStore) Retrieve(ctx context.Context, collectionId string, query []float32, limit int) ([]ScoredChunk, error) {
	if len(query) != embedding.Dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(query), embedding.Dimension)
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	scored, err := uow.ChunkEmbeddingRepository().SearchSimilar(ctx, collectionId, query, limit)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	out := make([]ScoredChunk, len(scored))
	for i, sc := range scored {
		out[i] = ScoredChunk{
			Content:    sc.Embedding.Content,
			Source:     sc.Embedding.Source,
			ChunkType:  sc.Embedding.ChunkType,
			Similarity: sc.Similarity,
		}
	}
	return out, nil
}

func (s *PgvectorStore) Count(ctx context.Context, collectionId string) (int64, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.ChunkEmbeddingRepository().CountByCollectionId(ctx, collectionId)
}
