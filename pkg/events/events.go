// Package events предоставляет интерфейсы для реализации Port & Adapter паттерна.
//
// Это Port (интерфейс) для подписки на события пайплайна. Позволяет
// подключать любые UI (TUI, Web, CLI) без изменения библиотечной логики:
// пайплайн шлёт прогресс и превью OCR, UI решает как их показать.
//
// # Port & Adapter Pattern
//
//	Port — это интерфейс (Emitter, Subscriber), определённый в библиотеке.
//	Adapter — это реализация интерфейса для конкретного UI (TUI, Web, etc).
//
// # Basic Usage
//
//	// В библиотеке (pkg/pipeline/):
//	notifier := pipeline.NewEmitterNotifier(emitter, pipeline.NewSeenCache())
//
//	// В UI (cmd/reasoner-tui/):
//	sub := emitter.Subscribe()
//	for event := range sub.Events() {
//	    switch event.Type {
//	    case events.EventStatus:
//	        ui.updateStatusLine(event.Data)
//	    case events.EventPreview:
//	        ui.appendPreview(event.Data)
//	    }
//	}
//
// # Thread Safety
//
// Все реализации интерфейсов должны быть thread-safe: статусы двух
// перекрывающихся прогонов пайплайна могут прийти вперемешку.
package events

import (
	"context"
	"time"
)

// EventType представляет тип события пайплайна.
type EventType string

const (
	// EventStatus — обновление статуса шага (OCR запущен, завершён, пропущен).
	EventStatus EventType = "status"

	// EventPreview — превью результатов OCR для показа в чате.
	EventPreview EventType = "preview"

	// EventError — не-фатальная ошибка шага (OCR провалился, пайплайн продолжает).
	EventError EventType = "error"

	// EventDone — пайплайн завершил прогон.
	EventDone EventType = "done"
)

// EventData — sealed interface для данных события.
//
// Только типы из пакета events могут реализовать этот интерфейс,
// что обеспечивает compile-time type safety.
type EventData interface {
	eventData()
}

// StatusData содержит данные для EventStatus.
//
// Зеркалит событие status хоста: {description, done, hidden}.
type StatusData struct {
	// Description — человекочитаемый текст статуса
	Description string

	// Done — шаг завершён (UI может убрать спиннер)
	Done bool

	// Hidden — служебный статус: UI должен убрать индикатор, не показывая текст
	Hidden bool
}

func (StatusData) eventData() {}

// PreviewData содержит данные для EventPreview.
type PreviewData struct {
	// Content — отрендеренный блок превью OCR
	Content string
}

func (PreviewData) eventData() {}

// ErrorData содержит данные для EventError.
type ErrorData struct {
	Err error
}

func (ErrorData) eventData() {}

// DoneData содержит данные для EventDone.
type DoneData struct {
	// Content — финальный ответ (пусто для streamed прогонов)
	Content string
}

func (DoneData) eventData() {}

// Event представляет событие пайплайна.
//
// Для каждого EventType существует соответствующий тип данных:
//   - EventStatus: StatusData
//   - EventPreview: PreviewData
//   - EventError: ErrorData
//   - EventDone: DoneData
type Event struct {
	Type      EventType
	Data      EventData
	Timestamp time.Time
}

// Emitter — это Port для отправки событий.
//
// Emitter инвертирует зависимость: библиотека (pkg/pipeline) зависит
// от этого интерфейса, а не от конкретного UI.
type Emitter interface {
	// Emit отправляет событие.
	//
	// Если context отменён, операция должна прерваться без ошибки:
	// observability никогда не ломает основной поток.
	Emit(ctx context.Context, event Event)
}

// Subscriber позволяет читать события из канала.
type Subscriber interface {
	// Events возвращает read-only канал событий.
	//
	// Канал закрывается при вызове Close().
	Events() <-chan Event

	// Close закрывает канал событий и освобождает ресурсы.
	Close()
}
