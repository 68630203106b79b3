package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	name string
}

func (s *stubProvider) Chat(ctx context.Context, history []Message, options ...Option) (string, error) {
	return s.name, nil
}

func (s *stubProvider) Generate(ctx context.Context, prompt string, options ...Option) (string, error) {
	return s.name, nil
}

func TestRegistryResolve(t *testing.T) {
	r := NewRegistry()
	r.Register(ModelSpec{Name: "llama3", Provider: &stubProvider{name: "ollama"}})
	r.Register(ModelSpec{Name: "gpt-4o-mini", Provider: &stubProvider{name: "openai"}})

	spec, err := r.Resolve("gpt-4o-mini")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", spec.Name)

	// Empty name falls back to the first registered model.
	spec, err = r.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "llama3", spec.Name)

	_, err = r.Resolve("nonexistent")
	assert.Error(t, err)
}

func TestRegistryNames(t *testing.T) {
	r := NewRegistry()
	r.Register(ModelSpec{Name: "zeta", Provider: &stubProvider{}})
	r.Register(ModelSpec{Name: "alpha", Provider: &stubProvider{}})

	assert.Equal(t, []string{"alpha", "zeta"}, r.Names())
}
