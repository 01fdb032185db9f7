package prompts

import "fmt"

// Идентификаторы промптов пайплайна.
//
// Деплой может переопределить любой из них через file или sqlite источник;
// Go defaults — всегда резерв.
const (
	// OCRSystemID — системная инструкция OCR шага (с описанием и категорией).
	OCRSystemID = "ocr_system"

	// OCRSystemPlainID — системная инструкция OCR шага (только транскрипция).
	OCRSystemPlainID = "ocr_system_plain"

	// OCRUserID — текст user-сообщения, сопровождающего картинки.
	OCRUserID = "ocr_user"
)

// PromptFile — содержимое загруженного промпта.
//
// Используется всеми реализациями PromptSource интерфейса.
type PromptFile struct {
	// System — системный промпт
	System string `yaml:"system"`

	// Template — шаблон user-сообщения (опционально)
	Template string `yaml:"template"`

	// Variables — переменные для подстановки
	Variables map[string]string `yaml:"variables"`

	// Metadata — метаданные промпта
	Metadata map[string]any `yaml:"metadata"`
}

// ErrNotFound возвращается когда источник не содержит промпт.
var ErrNotFound = fmt.Errorf("prompt not found in source")
