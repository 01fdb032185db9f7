// Package openai реализует адаптер воронки для OpenAI-совместимых API.
//
// Один адаптер обслуживает оба шага пайплайна: OCR (vision запросы с
// картинками через MultiContent) и финальный reasoning (обычный текст,
// синхронно или потоком).
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ilkoid/reasoner-ai/pkg/config"
	"github.com/ilkoid/reasoner-ai/pkg/llm"
	"github.com/ilkoid/reasoner-ai/pkg/utils"
	openai "github.com/sashabaranov/go-openai"
)

// Client реализует интерфейс llm.Provider для OpenAI-совместимых API.
//
// Поддерживает:
//   - Синхронную генерацию (Complete)
//   - Потоковую генерацию (CompleteStream)
//   - Vision запросы: картинки уходят частями MultiContent
type Client struct {
	api *openai.Client
}

// Проверка контракта на этапе компиляции
var _ llm.Provider = (*Client)(nil)

// NewClient создает клиент воронки на основе конфигурации бэкенда.
//
// Все настройки из конфигурации, никакого хардкода.
func NewClient(backend config.BackendConfig) *Client {
	// Поддержка custom BaseURL для non-OpenAI провайдеров (Ollama, Zai, DeepSeek и т.д.)
	cfg := openai.DefaultConfig(backend.APIKey)
	if backend.BaseURL != "" {
		cfg.BaseURL = backend.BaseURL
	}

	return &Client{
		api: openai.NewClientWithConfig(cfg),
	}
}

// Complete выполняет синхронный запрос к API и возвращает полный ответ.
//
// Алгоритм:
//  1. Конвертирует сообщения во внутреннем формате в формат OpenAI SDK
//  2. Вызывает API
//  3. Конвертирует ответ обратно в наш формат
//
// Все ошибки возвращаются, никаких panic.
func (c *Client) Complete(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	startTime := time.Now()

	utils.Debug("funnel request started",
		"model", req.Model,
		"messages_count", len(req.Messages),
		"stream", false)

	resp, err := c.api.CreateChatCompletion(ctx, mapRequest(req))
	if err != nil {
		utils.Error("funnel request failed",
			"error", err,
			"model", req.Model,
			"duration_ms", time.Since(startTime).Milliseconds())
		return nil, fmt.Errorf("openai api error: %w", err)
	}

	// Проверяем что есть хотя бы один выбор
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	result := mapResponse(resp)

	utils.Info("funnel response received",
		"model", req.Model,
		"content_length", len(result.Text()),
		"duration_ms", time.Since(startTime).Milliseconds())

	return result, nil
}

// CompleteStream выполняет запрос с потоковой передачей ответа.
//
// Callback получает ChunkContent на каждый фрагмент, ChunkError при сбое
// и ровно один ChunkDone после исчерпания потока. Возвращает собранный
// финальный ответ.
func (c *Client) CompleteStream(ctx context.Context, req llm.ChatRequest, callback func(llm.StreamChunk)) (*llm.ChatResponse, error) {
	startTime := time.Now()

	apiReq := mapRequest(req)
	apiReq.Stream = true

	stream, err := c.api.CreateChatCompletionStream(ctx, apiReq)
	if err != nil {
		utils.Error("funnel stream open failed", "error", err, "model", req.Model)
		return nil, fmt.Errorf("openai stream error: %w", err)
	}
	defer stream.Close()

	var accumulated strings.Builder

	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if callback != nil {
				callback(llm.StreamChunk{Type: llm.ChunkError, Error: err})
			}
			utils.Error("funnel stream failed",
				"error", err,
				"model", req.Model,
				"duration_ms", time.Since(startTime).Milliseconds())
			return nil, fmt.Errorf("openai stream error: %w", err)
		}

		if len(chunk.Choices) == 0 {
			continue
		}

		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		accumulated.WriteString(delta)

		if callback != nil {
			callback(llm.StreamChunk{
				Type:    llm.ChunkContent,
				Delta:   delta,
				Content: accumulated.String(),
			})
		}
	}

	content := accumulated.String()
	if callback != nil {
		callback(llm.StreamChunk{Type: llm.ChunkDone, Content: content, Done: true})
	}

	utils.Info("funnel stream completed",
		"model", req.Model,
		"content_length", len(content),
		"duration_ms", time.Since(startTime).Milliseconds())

	return &llm.ChatResponse{
		Model: req.Model,
		Choices: []llm.Choice{
			{Message: llm.Message{Role: llm.RoleAssistant, Content: content}},
		},
	}, nil
}

// mapRequest конвертирует наш запрос в формат SDK.
func mapRequest(req llm.ChatRequest) openai.ChatCompletionRequest {
	msgs := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = mapToOpenAI(m)
	}

	return openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    msgs,
		User:        req.User,
		Temperature: float32(req.Temperature),
		MaxTokens:   req.MaxTokens,
	}
}

// mapToOpenAI конвертирует наше внутреннее сообщение в формат SDK.
// Здесь происходит магия Vision: если есть картинки, создаем MultiContent.
func mapToOpenAI(m llm.Message) openai.ChatCompletionMessage {
	msg := openai.ChatCompletionMessage{
		Role: string(m.Role),
	}

	// Если ни частей, ни картинок нет, отправляем просто текст
	if len(m.Parts) == 0 && len(m.Images) == 0 {
		msg.Content = m.Content
		return msg
	}

	var parts []openai.ChatMessagePart

	// Плоский текст сообщения становится первой текстовой частью
	if m.Content != "" {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeText,
			Text: m.Content,
		})
	}

	for _, p := range m.Parts {
		switch llm.CanonicalPartType(p.Type) {
		case llm.PartText:
			parts = append(parts, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeText,
				Text: p.Text,
			})
		case llm.PartImage:
			parts = append(parts, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    p.ImageURL, // base64 data-uri или http ссылка
					Detail: openai.ImageURLDetailAuto,
				},
			})
		}
	}

	// Картинки уровня сообщения (Vision запрос)
	for _, imgURL := range m.Images {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    imgURL,
				Detail: openai.ImageURLDetailAuto,
			},
		})
	}

	msg.MultiContent = parts
	return msg
}

// mapResponse конвертирует ответ SDK обратно в наш формат.
func mapResponse(resp openai.ChatCompletionResponse) *llm.ChatResponse {
	out := &llm.ChatResponse{
		Model:   resp.Model,
		Choices: make([]llm.Choice, len(resp.Choices)),
	}
	for i, ch := range resp.Choices {
		out.Choices[i] = llm.Choice{
			Message: llm.Message{
				Role:    llm.Role(ch.Message.Role),
				Content: ch.Message.Content,
			},
		}
	}
	return out
}
