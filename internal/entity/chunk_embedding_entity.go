package entity

import (
	"time"

	"github.com/google/uuid"
)

// ChunkEmbedding is one embedded retrieval unit inside a named collection.
// Used by the pgvector collection backend only.
type ChunkEmbedding struct {
	Id             uuid.UUID
	CollectionId   string
	Content        string
	Source         string
	ChunkType      string
	EmbeddingValue []float32
	CreatedAt      time.Time
}
