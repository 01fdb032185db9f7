package openai

import (
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ilkoid/reasoner-ai/pkg/config"
	"github.com/ilkoid/reasoner-ai/pkg/llm"
)

// TestNewClient тестирует создание клиента.
func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		backend config.BackendConfig
	}{
		{
			name:    "minimal config",
			backend: config.BackendConfig{APIKey: "test-key"},
		},
		{
			name: "with custom base url",
			backend: config.BackendConfig{
				Provider: "zai",
				APIKey:   "test-key",
				BaseURL:  "https://api.z.ai/v4",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClient(tt.backend)
			if client == nil {
				t.Fatal("expected non-nil client")
			}
			if client.api == nil {
				t.Error("expected non-nil api client")
			}
		})
	}
}

// TestMapToOpenAI_PlainText тестирует конвертацию текстового сообщения.
func TestMapToOpenAI_PlainText(t *testing.T) {
	msg := mapToOpenAI(llm.Message{Role: llm.RoleUser, Content: "hello"})

	if msg.Role != "user" {
		t.Errorf("expected role user, got %s", msg.Role)
	}
	if msg.Content != "hello" {
		t.Errorf("expected plain content, got %q", msg.Content)
	}
	if len(msg.MultiContent) != 0 {
		t.Errorf("plain text message must not produce MultiContent")
	}
}

// TestMapToOpenAI_Vision тестирует конвертацию vision сообщения:
// плоский текст + картинки уровня сообщения + типизированные части.
func TestMapToOpenAI_Vision(t *testing.T) {
	msg := mapToOpenAI(llm.Message{
		Role:    llm.RoleUser,
		Content: "what is on the image?",
		Parts: []llm.ContentPart{
			{Type: "image_url", ImageURL: "data:image/jpeg;base64,AAA"},
		},
		Images: []string{"https://cdn.example.com/a.png"},
	})

	if msg.Content != "" {
		t.Errorf("vision message must carry everything in MultiContent, got Content %q", msg.Content)
	}
	if len(msg.MultiContent) != 3 {
		t.Fatalf("expected 3 parts (text + 2 images), got %d", len(msg.MultiContent))
	}

	if msg.MultiContent[0].Type != openai.ChatMessagePartTypeText {
		t.Errorf("first part must be the flat text, got %s", msg.MultiContent[0].Type)
	}
	for _, p := range msg.MultiContent[1:] {
		if p.Type != openai.ChatMessagePartTypeImageURL {
			t.Errorf("expected image part, got %s", p.Type)
			continue
		}
		if p.ImageURL == nil || p.ImageURL.URL == "" {
			t.Error("image part must carry a locator")
		}
		if p.ImageURL.Detail != openai.ImageURLDetailAuto {
			t.Errorf("expected auto detail, got %s", p.ImageURL.Detail)
		}
	}
}

// TestMapToOpenAI_UnknownPartSkipped тестирует, что части с неизвестным
// тегом не попадают в запрос.
func TestMapToOpenAI_UnknownPartSkipped(t *testing.T) {
	msg := mapToOpenAI(llm.Message{
		Role: llm.RoleUser,
		Parts: []llm.ContentPart{
			{Type: "text", Text: "kept"},
			{Type: "mystery", Text: "dropped"},
		},
	})

	if len(msg.MultiContent) != 1 {
		t.Fatalf("expected 1 part, got %d", len(msg.MultiContent))
	}
	if msg.MultiContent[0].Text != "kept" {
		t.Errorf("unexpected surviving part: %+v", msg.MultiContent[0])
	}
}

// TestMapRequest тестирует конвертацию запроса целиком.
func TestMapRequest(t *testing.T) {
	req := mapRequest(llm.ChatRequest{
		Model:       "glm-4.6",
		User:        "u-42",
		Temperature: 0.6,
		MaxTokens:   1024,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "be brief"},
			{Role: llm.RoleUser, Content: "hi"},
		},
	})

	if req.Model != "glm-4.6" {
		t.Errorf("unexpected model: %s", req.Model)
	}
	if req.User != "u-42" {
		t.Errorf("user identity must pass through, got %q", req.User)
	}
	if len(req.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(req.Messages))
	}
	if req.Messages[0].Role != "system" || req.Messages[1].Role != "user" {
		t.Errorf("roles must be preserved: %+v", req.Messages)
	}
}

// TestMapResponse тестирует обратную конвертацию ответа SDK.
func TestMapResponse(t *testing.T) {
	resp := mapResponse(openai.ChatCompletionResponse{
		Model: "glm-4.6",
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: "assistant", Content: "  answer  "}},
		},
	})

	if resp.Model != "glm-4.6" {
		t.Errorf("unexpected model: %s", resp.Model)
	}
	if resp.Text() != "answer" {
		t.Errorf("Text() must trim, got %q", resp.Text())
	}
	if resp.Choices[0].Message.Role != llm.RoleAssistant {
		t.Errorf("unexpected role: %s", resp.Choices[0].Message.Role)
	}
}
