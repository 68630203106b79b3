package factory

import (
	"fmt"

	"ragchat-be/pkg/llm"
	"ragchat-be/pkg/llm/ollama"
	"ragchat-be/pkg/llm/openai"
)

func NewProvider(providerType, modelName, baseURL, apiKey string) (llm.Provider, error) {
	switch providerType {
	case "ollama":
		return ollama.NewProvider(baseURL, modelName), nil
	case "openai":
		return openai.NewProvider(apiKey, modelName), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}
