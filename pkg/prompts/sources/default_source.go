package sources

import "fmt"

// DefaultSource — загрузка встроенных (hardcoded) промптов.
//
// OCP Principle: fallback source когда YAML файлы и база недоступны.
// YAML-first философия: файлы приоритетны, defaults — резерв.
type DefaultSource struct {
	prompts map[string]*PromptData
}

// NewDefaultSource создаёт источник с Go defaults.
func NewDefaultSource() *DefaultSource {
	return &DefaultSource{
		prompts: make(map[string]*PromptData),
	}
}

// AddPrompt добавляет встроенный промпт.
func (s *DefaultSource) AddPrompt(id string, file *PromptData) {
	s.prompts[id] = file
}

// Load возвращает встроенный промпт или ошибку.
func (s *DefaultSource) Load(promptID string) (*PromptData, error) {
	file, ok := s.prompts[promptID]
	if !ok {
		return nil, fmt.Errorf("default prompt '%s' not defined", promptID)
	}
	return file, nil
}

// PopulateDefaults заполняет источник стандартными промптами пайплайна.
func (s *DefaultSource) PopulateDefaults() {
	s.AddPrompt("ocr_system", GetDefaultOCRSystemPrompt())
	s.AddPrompt("ocr_system_plain", GetDefaultOCRSystemPlainPrompt())
	s.AddPrompt("ocr_user", GetDefaultOCRUserPrompt())
}

// GetDefaultOCRSystemPrompt возвращает инструкцию OCR шага с описанием
// и категорией (вариант include_description = true).
//
// Схема TEXT/DESCRIPTION/CATEGORY разбирается парсером pkg/pipeline.
func GetDefaultOCRSystemPrompt() *PromptData {
	return &PromptData{
		System: `You are an OCR and image-understanding assistant. Extract all visible text verbatim from the provided image(s).
- Preserve natural reading order, line breaks and headings.
- Do not translate; keep original language.
- Additionally, when it is relevant to understanding user intent (e.g., quiz questions, UI screenshots, diagrams, charts, math problems, slides, whiteboards, handwritten notes, or complex scenes), include a detailed but concise description of the image(s).
- Always format your response using this schema:
TEXT:
<transcribed text>

---
DESCRIPTION:
<description or 'N/A'>

---
CATEGORY: screenshot|document|diagram|math|slide|whiteboard|handwritten_note|photo|other
- If multiple images are present, separate each image's transcribed text in TEXT with blank lines and a line containing three dashes (---).`,
		Metadata: map[string]any{
			"source":  "go-default",
			"version": "1.0",
		},
	}
}

// GetDefaultOCRSystemPlainPrompt возвращает инструкцию OCR шага без
// описания (вариант include_description = false).
func GetDefaultOCRSystemPlainPrompt() *PromptData {
	return &PromptData{
		System: `You are an OCR engine. Extract all visible text verbatim from the provided image(s).
- Preserve natural reading order, line breaks and headings.
- Do not translate; keep original language.
- If multiple images, separate each image's text by a blank line and a line with three dashes (---).
- Return plain text only, no explanations.`,
		Metadata: map[string]any{
			"source":  "go-default",
			"version": "1.0",
		},
	}
}

// GetDefaultOCRUserPrompt возвращает текст user-сообщения OCR запроса.
func GetDefaultOCRUserPrompt() *PromptData {
	return &PromptData{
		System: "Transcribe all text from the attached image(s). If requested, also provide a description and a category following the schema.",
		Metadata: map[string]any{
			"source":  "go-default",
			"version": "1.0",
		},
	}
}
