package vectorstore

import (
	"context"
	"fmt"
	"time"

	"ragchat-be/pkg/embedding"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

const (
	qdrantVectorName = "content"
	qdrantBatchSize  = 100
)

// QdrantStore keeps each conversation's chunks in its own Qdrant collection,
// reached over gRPC.
type QdrantStore struct {
	client *qdrant.Client
}

var _ Store = &QdrantStore{}

// NewQdrantStore connects to Qdrant and verifies it is reachable, retrying
// with exponential backoff before giving up.
func NewQdrantStore(host string, port int) (*QdrantStore, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}

	store := &QdrantStore{client: client}
	if err := store.healthCheckWithRetry(context.Background()); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrStoreUnreachable, err)
	}
	return store, nil
}

func (s *QdrantStore) healthCheckWithRetry(ctx context.Context) error {
	b := newBackoff()
	return backoff.Retry(func() error {
		result, err := s.client.HealthCheck(ctx)
		if err != nil {
			return err
		}
		if result == nil || result.Title == "" {
			return fmt.Errorf("health check returned invalid response")
		}
		return nil
	}, backoff.WithContext(b, ctx))
}

func (s *QdrantStore) Ensure(ctx context.Context, collectionId string) error {
	exists, err := s.client.CollectionExists(ctx, collectionId)
	if err != nil {
		return fmt.Errorf("check collection %s: %w", collectionId, err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collectionId,
		VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
			qdrantVectorName: {
				Size:     uint64(embedding.Dimension),
				Distance: qdrant.Distance_Cosine,
			},
		}),
	})
	if err != nil {
		return fmt.Errorf("create collection %s: %w", collectionId, err)
	}
	return nil
}

func (s *QdrantStore) Append(ctx context.Context, collectionId string, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := validateDimension(embedding.Dimension, chunks); err != nil {
		return err
	}

	for i := 0; i < len(chunks); i += qdrantBatchSize {
		end := i + qdrantBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		batch := chunks[i:end]
		points := make([]*qdrant.PointStruct, len(batch))
		for j, c := range batch {
			points[j] = &qdrant.PointStruct{
				Id: qdrant.NewIDUUID(uuid.NewString()),
				Vectors: qdrant.NewVectorsMap(map[string]*qdrant.Vector{
					qdrantVectorName: qdrant.NewVector(c.Embedding...),
				}),
				Payload: qdrant.NewValueMap(map[string]any{
					"content": c.Content,
					"source":  c.Source,
					"type":    c.ChunkType,
				}),
			}
		}

		if err := s.upsertWithRetry(ctx, collectionId, points); err != nil {
			return fmt.Errorf("upsert batch %d-%d: %w", i, end, err)
		}
	}
	return nil
}

func (s *QdrantStore) upsertWithRetry(ctx context.Context, collectionId string, points []*qdrant.PointStruct) error {
	b := newBackoff()
	return backoff.Retry(func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: collectionId,
			Points:         points,
		})
		return err
	}, backoff.WithContext(b, ctx))
}

func (s *QdrantStore) Delete(ctx context.Context, collectionId string) error {
	exists, err := s.client.CollectionExists(ctx, collectionId)
	if err != nil {
		return fmt.Errorf("check collection %s: %w", collectionId, err)
	}
	if !exists {
		return nil
	}
	if err := s.client.DeleteCollection(ctx, collectionId); err != nil {
		return fmt.Errorf("delete collection %s: %w", collectionId, err)
	}
	return nil
}

func (s *QdrantStore) Retrieve(ctx context.Context, collectionId string, query []float32, limit int) ([]ScoredChunk, error) {
	if len(query) != embedding.Dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(query), embedding.Dimension)
	}

	// A conversation that has not finished its first ingestion has no
	// collection yet. That is an empty collection, not an error.
	exists, err := s.client.CollectionExists(ctx, collectionId)
	if err != nil {
		return nil, fmt.Errorf("check collection %s: %w", collectionId, err)
	}
	if !exists {
		return []ScoredChunk{}, nil
	}

	vectorName := qdrantVectorName
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collectionId,
		Query:          qdrant.NewQuery(query...),
		Using:          &vectorName,
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("query collection %s: %w", collectionId, err)
	}

	out := make([]ScoredChunk, 0, len(results))
	for _, result := range results {
		payload := result.Payload
		out = append(out, ScoredChunk{
			Content:    payload["content"].GetStringValue(),
			Source:     payload["source"].GetStringValue(),
			ChunkType:  payload["type"].GetStringValue(),
			Similarity: float64(result.Score),
		})
	}
	return out, nil
}

func (s *QdrantStore) Count(ctx context.Context, collectionId string) (int64, error) {
	exists, err := s.client.CollectionExists(ctx, collectionId)
	if err != nil {
		return 0, fmt.Errorf("check collection %s: %w", collectionId, err)
	}
	if !exists {
		return 0, nil
	}
	info, err := s.client.GetCollectionInfo(ctx, collectionId)
	if err != nil {
		return 0, fmt.Errorf("get collection %s: %w", collectionId, err)
	}
	return int64(info.GetPointsCount()), nil
}

func (s *QdrantStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func newBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return b
}
