// Интерфейс воронки генерации, через который работает весь пайплайн.

package llm

import "context"

// Provider — контракт воронки chat completion.
//
// Единственная точка контакта с внешним бэкендом: «сгенерируй completion
// по model id, списку сообщений и идентичности пользователя». Пайплайн
// не знает, кто на другой стороне — OpenAI, Ollama или mock в тестах.
//
// Все методы уважают context.Context и прерывают операцию при отмене.
// Таймауты и ретраи — ответственность реализации воронки, не пайплайна.
type Provider interface {
	// Complete выполняет синхронный запрос и возвращает полный ответ.
	Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// CompleteStream выполняет запрос с потоковой передачей ответа.
	//
	// Callback вызывается для каждой порции данных:
	//   - ChunkContent: очередной фрагмент контента
	//   - ChunkError: ошибка стриминга
	//   - ChunkDone: завершение потока (ровно один раз)
	//
	// Возвращает собранный финальный ответ после исчерпания потока.
	// Callback может вызываться из другой goroutine и должен быть thread-safe.
	CompleteStream(ctx context.Context, req ChatRequest, callback func(StreamChunk)) (*ChatResponse, error)
}
