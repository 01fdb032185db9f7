// Извлечение image-артефактов из диалога.
//
// Картинки приходят от хоста в трёх видах: списки локаторов (images),
// файловые дескрипторы (files) и типизированные части контента. Экстрактор
// сводит все три вида в один дедуплицированный набор.
package pipeline

import (
	"regexp"
	"strings"

	"github.com/ilkoid/reasoner-ai/pkg/llm"
)

// imageExtPattern распознаёт картинку по расширению файла в URL/пути.
var imageExtPattern = regexp.MustCompile(`(?i)\.(jpe?g|png|gif|bmp|webp|tiff)($|[?#])`)

// Artifacts — дедуплицированный набор ссылок на картинки из окна сканирования.
//
// Три коллекции сохраняют порядок обнаружения. Идентичность ссылки —
// её локатор после trim: один и тот же локатор в images, files и частях
// контента даёт ровно одну запись (в первой коллекции, где он встретился).
type Artifacts struct {
	URLs  []string
	Files []llm.FileRef
	Parts []llm.ContentPart
}

// HasImages — true если найдена хотя бы одна картинка.
func (a Artifacts) HasImages() bool {
	return len(a.URLs) > 0 || len(a.Files) > 0 || len(a.Parts) > 0
}

// Count возвращает суммарное число найденных картинок.
func (a Artifacts) Count() int {
	return len(a.URLs) + len(a.Files) + len(a.Parts)
}

// Split разбивает набор на единичные артефакты в порядке обнаружения.
//
// Используется режимом per_image_ocr: один OCR запрос на картинку.
func (a Artifacts) Split() []Artifacts {
	out := make([]Artifacts, 0, a.Count())
	for _, u := range a.URLs {
		out = append(out, Artifacts{URLs: []string{u}})
	}
	for _, f := range a.Files {
		out = append(out, Artifacts{Files: []llm.FileRef{f}})
	}
	for _, p := range a.Parts {
		out = append(out, Artifacts{Parts: []llm.ContentPart{p}})
	}
	return out
}

// ExtractImageArtifacts сканирует окно диалога и вложения уровня запроса.
//
// Окно — последние подряд идущие user-сообщения (всё после последнего
// ответа ассистента), но не более window штук; window <= 1 означает
// только последнее user-сообщение. Вложения уровня запроса (req.Images,
// req.Files) сканируются всегда.
//
// Best-effort: кривые записи (пустые локаторы, неизвестные теги частей)
// молча пропускаются и никогда не прерывают пайплайн.
func ExtractImageArtifacts(req llm.ChatRequest, window int) Artifacts {
	c := newCollector()

	for _, msg := range scanWindow(req.Messages, window) {
		c.collectFromMessage(msg)
	}

	// Вложения уровня запроса (общий для диалога список)
	c.collectImages(req.Images)
	c.collectFiles(req.Files)

	return c.out
}

// scanWindow возвращает последние подряд идущие user-сообщения.
//
// Идём с конца истории: user-сообщения попадают в окно, system/tool
// пропускаются не прерывая его, первый встреченный assistant закрывает
// окно. Порядок результата — хронологический.
func scanWindow(messages []llm.Message, limit int) []llm.Message {
	if limit <= 0 {
		limit = 1
	}

	var window []llm.Message
	for i := len(messages) - 1; i >= 0 && len(window) < limit; i-- {
		switch messages[i].Role {
		case llm.RoleUser:
			window = append(window, messages[i])
		case llm.RoleAssistant:
			i = -1 // ассистент закрывает незавершённый обмен
		}
		if i < 0 {
			break
		}
	}

	// Разворачиваем в хронологический порядок
	for l, r := 0, len(window)-1; l < r; l, r = l+1, r-1 {
		window[l], window[r] = window[r], window[l]
	}
	return window
}

// collector накапливает артефакты с кросс-коллекционной дедупликацией.
type collector struct {
	seen map[string]struct{}
	out  Artifacts
}

func newCollector() *collector {
	return &collector{seen: make(map[string]struct{})}
}

// markSeen возвращает true если локатор встречен впервые.
func (c *collector) markSeen(locator string) bool {
	if _, ok := c.seen[locator]; ok {
		return false
	}
	c.seen[locator] = struct{}{}
	return true
}

func (c *collector) collectFromMessage(msg llm.Message) {
	c.collectImages(msg.Images)
	c.collectFiles(msg.Files)
	for _, part := range msg.Parts {
		c.collectPart(part)
	}
}

func (c *collector) collectImages(urls []string) {
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		if c.markSeen(u) {
			c.out.URLs = append(c.out.URLs, u)
		}
	}
}

func (c *collector) collectFiles(files []llm.FileRef) {
	for _, f := range files {
		if !isImageFile(f) {
			continue
		}
		locator := f.Locator()
		if locator == "" {
			continue
		}
		if c.markSeen(locator) {
			c.out.Files = append(c.out.Files, f)
		}
	}
}

func (c *collector) collectPart(p llm.ContentPart) {
	typ := llm.CanonicalPartType(p.Type)

	// Нетегированная часть с image-подобным локатором тоже считается картинкой
	if typ != llm.PartImage && !(typ == "" && strings.TrimSpace(p.ImageURL) != "") {
		return
	}

	locator := strings.TrimSpace(p.ImageURL)
	key := locator
	if key == "" {
		// Нет локатора — дедуплицируем по структурному равенству
		key = "part|" + p.Type + "|" + p.Text
	}

	if c.markSeen(key) {
		c.out.Parts = append(c.out.Parts, llm.ContentPart{
			Type:     llm.PartImage,
			ImageURL: locator,
		})
	}
}

// isImageFile — файл считается картинкой если объявленный тип начинается
// с "image" ИЛИ локатор заканчивается известным расширением картинки.
func isImageFile(f llm.FileRef) bool {
	declared := f.Type
	if declared == "" {
		declared = f.MimeType
	}
	if strings.HasPrefix(strings.ToLower(declared), "image") {
		return true
	}
	return imageExtPattern.MatchString(f.Locator())
}
