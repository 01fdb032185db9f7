// Типы потоковой передачи ответа воронки.
package llm

// StreamChunk представляет одну порцию данных из потокового ответа.
//
// Содержит как инкрементальное изменение (Delta), так и накопленное
// состояние (Content) — UI может выбирать, что ему удобнее.
type StreamChunk struct {
	// Type определяет тип чанка
	Type ChunkType

	// Content — накопленный текстовый контент на данный момент
	Content string

	// Delta — инкрементальное изменение (для обновлений UI в реальном времени)
	Delta string

	// Done — флаг завершения потока
	Done bool

	// Error — ошибка (только когда Type == ChunkError)
	Error error
}

// ChunkType определяет тип стримингового чанка.
type ChunkType string

const (
	// ChunkContent — очередная порция контента ответа.
	ChunkContent ChunkType = "content"

	// ChunkError — ошибка стриминга.
	ChunkError ChunkType = "error"

	// ChunkDone — завершение потока.
	//
	// Контракт: отправляется ровно один раз за запрос, независимо от того,
	// шёл ответ потоком или был собран синхронно.
	ChunkDone ChunkType = "done"
)
