package prompts

import (
	"fmt"

	"github.com/ilkoid/reasoner-ai/pkg/config"
	"github.com/ilkoid/reasoner-ai/pkg/prompts/sources"
)

// CreateSourceRegistry создаёт реестр источников промптов из конфигурации.
//
// Fallback Chain:
//  1. File source из cfg.App.PromptsDir (если директория указана)
//  2. SQLite source из cfg.Pipeline.PromptsDBPath (если путь указан)
//  3. Default source (Go defaults) — всегда добавляется как резерв
//
// YAML-first философия: файлы приоритетны, база — деплойные
// переопределения, Go defaults — гарантированный минимум.
func CreateSourceRegistry(cfg *config.AppConfig) (*SourceRegistry, error) {
	registry := NewSourceRegistry()

	// 1. File source
	if cfg.App.PromptsDir != "" {
		fileSrc := sources.NewFileSource(cfg.App.PromptsDir)
		registry.AddSource(&dataSourceAdapter{src: fileSrc})
	}

	// 2. SQLite source
	if cfg.Pipeline.PromptsDBPath != "" {
		dbSrc, err := sources.NewSQLiteSource(cfg.Pipeline.PromptsDBPath, "")
		if err != nil {
			return nil, fmt.Errorf("failed to create sqlite prompt source: %w", err)
		}
		registry.AddSource(&dataSourceAdapter{src: dbSrc})
	}

	// 3. Default source — всегда ПОСЛЕ пользовательских источников
	defaultSrc := sources.NewDefaultSource()
	defaultSrc.PopulateDefaults()
	registry.AddSource(&dataSourceAdapter{src: defaultSrc})

	return registry, nil
}

// dataLoader — общий контракт конкретных источников из pkg/prompts/sources.
type dataLoader interface {
	Load(promptID string) (*sources.PromptData, error)
}

// dataSourceAdapter адаптирует sources.PromptData к prompts.PromptFile.
//
// Разделение типов намеренное: pkg/prompts/sources не импортирует
// pkg/prompts (нет циклического импорта).
type dataSourceAdapter struct {
	src dataLoader
}

func (a *dataSourceAdapter) Load(promptID string) (*PromptFile, error) {
	data, err := a.src.Load(promptID)
	if err != nil {
		return nil, err
	}
	return &PromptFile{
		System:    data.System,
		Template:  data.Template,
		Variables: data.Variables,
		Metadata:  data.Metadata,
	}, nil
}
