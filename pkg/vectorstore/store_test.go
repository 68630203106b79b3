package vectorstore

import (
	"testing"

	"ragchat-be/pkg/embedding"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDimension(t *testing.T) {
	chunks := []Chunk{
		{Content: "ok", Embedding: make([]float32, embedding.Dimension)},
		{Content: "short", Embedding: make([]float32, 8)},
	}

	err := validateDimension(embedding.Dimension, chunks)
	require.ErrorIs(t, err, ErrDimensionMismatch)
	assert.Contains(t, err.Error(), "chunk 1")

	assert.NoError(t, validateDimension(embedding.Dimension, chunks[:1]))
}
