// Базовые типы - универсальный язык общения с chat-completion бэкендом.
package llm

import "strings"

// Role — роль автора сообщения.
type Role string

// Четыре допустимых роли. Инвариант: других значений в Conversation не бывает.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Типы частей контента после нормализации.
const (
	PartText  = "text"
	PartImage = "image"
)

// ContentPart — часть сообщения (текст или картинка).
//
// Исторические написания тега картинки ("image_url", "input_image", "image")
// сводятся к каноническому PartImage через CanonicalPartType.
type ContentPart struct {
	Type     string // PartText или PartImage
	Text     string // Заполнено, если Type == PartText
	ImageURL string // Локатор картинки (http-ссылка или base64 data-uri)
}

// CanonicalPartType приводит тег части к каноническому виду.
//
// Возвращает пустую строку для неизвестных тегов — такие части
// пропускаются при извлечении артефактов (best-effort).
func CanonicalPartType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "text":
		return PartText
	case "image", "image_url", "input_image":
		return PartImage
	}
	return ""
}

// FileRef — дескриптор прикреплённого файла.
//
// Хост может ссылаться на файл по прямой ссылке (URL), по локальному пути
// или по ключу в объектном хранилище (Key). Locator возвращает первый
// заполненный идентификатор — по нему дедуплицируются ссылки на картинки.
type FileRef struct {
	ID       string
	Name     string
	Type     string // Объявленный тип ("image", "image/png" и т.д.)
	MimeType string
	URL      string
	Path     string
	Key      string // Ключ объекта в S3 (разрешается через pkg/s3storage)
	Size     int64
}

// Locator возвращает идентификатор файла для дедупликации: url|path|key|name.
func (f FileRef) Locator() string {
	for _, s := range []string{f.URL, f.Path, f.Key, f.Name} {
		if strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// Message — одно сообщение диалога.
//
// Контент либо плоский текст (Content), либо последовательность
// типизированных частей (Parts). Если Parts непустой — он приоритетен.
// Images и Files — вспомогательные списки артефактов уровня сообщения.
type Message struct {
	Role    Role
	Content string
	Parts   []ContentPart
	Images  []string
	Files   []FileRef
}

// Clone возвращает глубокую копию сообщения.
//
// Композер контекста мутирует копию диалога, никогда оригинал.
func (m Message) Clone() Message {
	out := m
	if m.Parts != nil {
		out.Parts = make([]ContentPart, len(m.Parts))
		copy(out.Parts, m.Parts)
	}
	if m.Images != nil {
		out.Images = make([]string, len(m.Images))
		copy(out.Images, m.Images)
	}
	if m.Files != nil {
		out.Files = make([]FileRef, len(m.Files))
		copy(out.Files, m.Files)
	}
	return out
}

// Text возвращает текстовое содержимое сообщения.
//
// Для сообщения с частями — конкатенация текстовых частей.
func (m Message) Text() string {
	if len(m.Parts) == 0 {
		return m.Content
	}
	var sb strings.Builder
	for _, p := range m.Parts {
		if CanonicalPartType(p.Type) == PartText {
			if sb.Len() > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

// ChatRequest — унифицированный запрос к воронке chat completion.
//
// Зеркалит входящую форму хоста: {model, stream, messages, images?, files?}.
// Images и Files уровня запроса — общий для всего диалога список вложений.
type ChatRequest struct {
	Model       string
	Stream      bool
	User        string // Идентификатор пользователя, от имени которого идёт запрос
	Temperature float64
	MaxTokens   int
	Messages    []Message
	Images      []string
	Files       []FileRef
}

// Clone возвращает глубокую копию запроса (сообщения клонируются).
func (r ChatRequest) Clone() ChatRequest {
	out := r
	out.Messages = make([]Message, len(r.Messages))
	for i, m := range r.Messages {
		out.Messages[i] = m.Clone()
	}
	if r.Images != nil {
		out.Images = append([]string(nil), r.Images...)
	}
	if r.Files != nil {
		out.Files = append([]FileRef(nil), r.Files...)
	}
	return out
}

// Choice — один вариант ответа модели.
type Choice struct {
	Message Message
}

// ChatResponse — ответ воронки в OpenAI-подобной форме:
// {choices: [{message: {content, ...}}, ...]}.
type ChatResponse struct {
	Model   string
	Choices []Choice
}

// Text извлекает текст ассистента из первого choice.
//
// Best-effort: для пустого или неполного ответа возвращает пустую строку.
func (r *ChatResponse) Text() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	return strings.TrimSpace(r.Choices[0].Message.Content)
}
