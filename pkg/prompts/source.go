package prompts

// PromptSource — интерфейс для загрузки промптов из различных источников.
//
// OCP Principle: открыт для расширения (новые источники), закрыт для
// изменения. Интерфейс обоснован: ≥3 реализации (Default, File, SQLite).
type PromptSource interface {
	// Load загружает промпт по идентификатору.
	// Возвращает ошибку, если источник не содержит промпт.
	Load(promptID string) (*PromptFile, error)
}
