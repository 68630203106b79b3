package vectorstore

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrStoreUnreachable  = errors.New("vector store unreachable")
)

// Chunk is one embedded retrieval unit headed for storage.
type Chunk struct {
	Content   string
	Source    string
	ChunkType string
	Embedding []float32
}

// ScoredChunk is a retrieval hit with its cosine similarity to the query.
type ScoredChunk struct {
	Content    string
	Source     string
	ChunkType  string
	Similarity float64
}

// Store keeps per-conversation chunk collections. A collection id maps to
// exactly one conversation; deleting a collection removes every chunk in it.
type Store interface {
	// Ensure makes the collection ready to receive chunks. Idempotent.
	Ensure(ctx context.Context, collectionId string) error

	// Append adds embedded chunks to the collection.
	Append(ctx context.Context, collectionId string, chunks []Chunk) error

	// Delete removes the collection and everything in it. Removing a
	// collection that does not exist is not an error.
	Delete(ctx context.Context, collectionId string) error

	// Retrieve returns the chunks most similar to the query vector,
	// best match first.
	Retrieve(ctx context.Context, collectionId string, query []float32, limit int) ([]ScoredChunk, error)

	// Count reports how many chunks the collection holds.
	Count(ctx context.Context, collectionId string) (int64, error)
}

func validateDimension(dim int, chunks []Chunk) error {
	for i, c := range chunks {
		if len(c.Embedding) != dim {
			return fmt.Errorf("%w: chunk %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(c.Embedding), dim)
		}
	}
	return nil
}
