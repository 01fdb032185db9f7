// Сайд-канал прогресса: статусы и превью OCR для UI хоста.
//
// Канал строго best-effort: любая ошибка или паника нотификатора
// глотается и никогда не влияет на результат пайплайна.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ilkoid/reasoner-ai/pkg/events"
	"github.com/ilkoid/reasoner-ai/pkg/utils"
)

// Статусные тексты пайплайна.
const (
	statusOCRRunning  = "Running OCR on attached image(s)..."
	statusOCRComplete = "OCR complete."
)

// statusDedupTTL — окно подавления повторных статусов с тем же
// (description, done). Защита от дребезга при ретраях хоста.
const statusDedupTTL = 3 * time.Second

// Notifier — опциональный сайд-канал прогресса и превью.
type Notifier interface {
	// Status отправляет транзиентный статус. done=true финализирует
	// индикатор, hidden=true убирает его из UI.
	Status(ctx context.Context, description string, done, hidden bool)
	// Preview отправляет HTML-блок с результатами OCR.
	Preview(ctx context.Context, content string)
}

// SeenCache — дедупликация по ключу с TTL.
type SeenCache interface {
	// Seen возвращает true если ключ уже встречался в пределах ttl;
	// иначе запоминает ключ и возвращает false.
	Seen(key string, ttl time.Duration) bool
}

// memorySeenCache — внутрипроцессный SeenCache с ленивой уборкой.
type memorySeenCache struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

var _ SeenCache = (*memorySeenCache)(nil)

// NewSeenCache создаёт внутрипроцессный кеш дедупликации.
func NewSeenCache() SeenCache {
	return &memorySeenCache{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (c *memorySeenCache) Seen(key string, ttl time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if expires, ok := c.entries[key]; ok && now.Before(expires) {
		return true
	}

	// Ленивая уборка протухших записей
	for k, expires := range c.entries {
		if !now.Before(expires) {
			delete(c.entries, k)
		}
	}

	c.entries[key] = now.Add(ttl)
	return false
}

// emitterNotifier публикует статусы и превью в events.Emitter.
type emitterNotifier struct {
	emitter events.Emitter
	cache   SeenCache
}

var _ Notifier = (*emitterNotifier)(nil)

// NewEmitterNotifier создаёт нотификатор поверх шины событий.
// cache == nil означает свежий внутрипроцессный кеш.
func NewEmitterNotifier(emitter events.Emitter, cache SeenCache) Notifier {
	if cache == nil {
		cache = NewSeenCache()
	}
	return &emitterNotifier{
		emitter: emitter,
		cache:   cache,
	}
}

func (n *emitterNotifier) Status(ctx context.Context, description string, done, hidden bool) {
	defer swallowPanic("status notify")

	// Скрытые статусы не дедуплицируются: финальная зачистка одного
	// прогона не должна подавлять зачистку следующего
	if !hidden {
		key := fmt.Sprintf("%s|%t", description, done)
		if n.cache.Seen(key, statusDedupTTL) {
			return
		}
	}

	n.emitter.Emit(ctx, events.Event{
		Type: events.EventStatus,
		Data: events.StatusData{
			Description: description,
			Done:        done,
			Hidden:      hidden,
		},
		Timestamp: time.Now(),
	})
}

func (n *emitterNotifier) Preview(ctx context.Context, content string) {
	defer swallowPanic("preview notify")

	n.emitter.Emit(ctx, events.Event{
		Type:      events.EventPreview,
		Data:      events.PreviewData{Content: content},
		Timestamp: time.Now(),
	})
}

func swallowPanic(op string) {
	if r := recover(); r != nil {
		utils.Warn("notifier panic swallowed", "op", op, "panic", r)
	}
}

// RenderOCRPreview рендерит сворачиваемый HTML-блок с результатами OCR.
//
// Блок показывается в чате хоста отдельно от ответа модели либо
// вшивается в финальный ответ (merge_ocr_into_final).
func RenderOCRPreview(res OCRResult, includeDesc bool, maxChars, descMaxChars int) string {
	text := Truncate(res.Text, maxChars)
	desc := Truncate(res.Description, descMaxChars)

	parts := []string{"<details><summary>OCR Results</summary>"}

	if res.Category != "" {
		parts = append(parts, "<p><strong>Category:</strong> "+res.Category+"</p>")
	}

	if text != "" {
		parts = append(parts, "<p><strong>Text:</strong></p>", "<pre><code>"+text+"</code></pre>")
	} else {
		parts = append(parts, "<p><strong>Text:</strong> (no visible text)</p>")
	}

	if includeDesc {
		if desc != "" {
			parts = append(parts, "<p><strong>Description:</strong></p>", "<blockquote>"+desc+"</blockquote>")
		} else {
			parts = append(parts, "<p><strong>Description:</strong> (none)</p>")
		}
	}

	parts = append(parts, "</details>")
	return strings.Join(parts, "\n")
}
