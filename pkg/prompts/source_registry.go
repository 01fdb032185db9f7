package prompts

import (
	"fmt"
)

// SourceRegistry — реестр источников промптов с fallback chain.
//
// OCP Principle: добавление новых источников через AddSource()
// без изменения существующего кода.
//
// Fallback Chain: источники пробуются по порядку добавления.
// Первый успешный Load() возвращается, промежуточные ошибки игнорируются.
// Если все источники недоступны — возвращается последняя ошибка.
type SourceRegistry struct {
	sources []PromptSource
}

// NewSourceRegistry создаёт новый реестр источников.
func NewSourceRegistry() *SourceRegistry {
	return &SourceRegistry{
		sources: make([]PromptSource, 0),
	}
}

// AddSource добавляет источник в fallback chain.
// Источники пробуются в порядке добавления.
func (r *SourceRegistry) AddSource(source PromptSource) {
	r.sources = append(r.sources, source)
}

// Load загружает промпт из первого доступного источника.
func (r *SourceRegistry) Load(promptID string) (*PromptFile, error) {
	var lastErr error

	for i, source := range r.sources {
		file, err := source.Load(promptID)
		if err == nil {
			return file, nil
		}
		lastErr = fmt.Errorf("source %d: %w", i, err)
	}

	if lastErr != nil {
		return nil, fmt.Errorf("all sources failed for '%s': %w", promptID, lastErr)
	}

	return nil, fmt.Errorf("no sources configured for prompt '%s': %w", promptID, ErrNotFound)
}

// LoadSystem возвращает системный текст промпта или fallback строку.
//
// Удобный хелпер для пайплайна: промпт с пустым System трактуется
// как отсутствующий.
func (r *SourceRegistry) LoadSystem(promptID, fallback string) string {
	file, err := r.Load(promptID)
	if err != nil || file.System == "" {
		return fallback
	}
	return file.System
}

// HasSources проверяет, есть ли хотя бы один источник.
func (r *SourceRegistry) HasSources() bool {
	return len(r.sources) > 0
}
