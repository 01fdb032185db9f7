package factory

import (
	"fmt"

	"github.com/ilkoid/reasoner-ai/pkg/config"
	"github.com/ilkoid/reasoner-ai/pkg/llm"
	"github.com/ilkoid/reasoner-ai/pkg/llm/openai"
)

// NewProvider создает воронку на основе конфигурации бэкенда.
//
// Одна воронка обслуживает обе модели пайплайна (vision и reasoning):
// какая отвечает — решает поле model конкретного запроса.
func NewProvider(backend config.BackendConfig) (llm.Provider, error) {
	switch backend.Provider {
	case "", "openai", "zai", "deepseek", "ollama":
		return openai.NewClient(backend), nil

	default:
		return nil, fmt.Errorf("unknown provider type: %s", backend.Provider)
	}
}
