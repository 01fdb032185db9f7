// Сборка финального запроса к reasoning-модели.
//
// Картинки из запроса вычищаются (reasoning-модель их не понимает),
// а результат OCR впрыскивается первым системным сообщением.
package pipeline

import (
	"strings"

	"github.com/ilkoid/reasoner-ai/pkg/llm"
)

// TruncationMarker добавляется в конец обрезанного текста.
const TruncationMarker = "\n\n[...truncated]"

// Truncate обрезает s до max символов (рун), добавляя маркер обрезки.
// max <= 0 означает «без лимита».
func Truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + TruncationMarker
}

// SanitizeMessages возвращает глубокую копию истории без image-артефактов.
//
// Убираются: списки images и files у каждого сообщения, image-части
// контента (включая нетегированные части с локатором картинки).
// Текстовые части и поле content остаются нетронутыми. Исходные
// сообщения не мутируются.
func SanitizeMessages(messages []llm.Message) []llm.Message {
	out := make([]llm.Message, 0, len(messages))
	for _, msg := range messages {
		m := msg.Clone()
		m.Images = nil
		m.Files = nil

		if len(m.Parts) > 0 {
			cleaned := make([]llm.ContentPart, 0, len(m.Parts))
			for _, p := range m.Parts {
				typ := llm.CanonicalPartType(p.Type)
				if typ == llm.PartImage || (typ == "" && strings.TrimSpace(p.ImageURL) != "") {
					continue
				}
				cleaned = append(cleaned, p)
			}
			m.Parts = cleaned
		}

		out = append(out, m)
	}
	return out
}

// BuildContextMessage собирает системное сообщение с результатами OCR.
//
// Секции с пустым контентом опускаются; для полностью пустого результата
// возвращается ok=false и сообщение не впрыскивается вовсе.
func BuildContextMessage(res OCRResult, includeDesc bool, maxChars, descMaxChars int) (llm.Message, bool) {
	text := Truncate(res.Text, maxChars)
	desc := ""
	if includeDesc {
		desc = Truncate(res.Description, descMaxChars)
	}

	if text == "" && desc == "" && res.Category == "" {
		return llm.Message{}, false
	}

	lines := []string{
		"Image understanding results extracted from user-provided image(s).",
		"Use these alongside the user's prompt to answer accurately.",
		"",
	}
	if text != "" {
		lines = append(lines, "OCR_TEXT:", text, "")
	}
	if desc != "" {
		lines = append(lines, "OCR_DESCRIPTION:", desc, "")
	}
	if res.Category != "" {
		lines = append(lines, "OCR_CATEGORY: "+res.Category)
	}

	return llm.Message{
		Role:    llm.RoleSystem,
		Content: strings.TrimSpace(strings.Join(lines, "\n")),
	}, true
}

// composeFinalRequest строит запрос к reasoning-модели из исходного
// запроса и агрегата OCR.
//
// Алгоритм:
//  1. Глубокая копия запроса, модель подменяется на reasoning
//  2. История санитизируется от картинок, вложения уровня запроса
//     обнуляются
//  3. Непустой OCR результат впрыскивается первым системным сообщением
func (p *Pipeline) composeFinalRequest(req llm.ChatRequest, res OCRResult) llm.ChatRequest {
	final := req.Clone()
	final.Model = p.reasoningModel
	final.Messages = SanitizeMessages(final.Messages)
	final.Images = nil
	final.Files = nil

	ctxMsg, ok := BuildContextMessage(res, p.cfg.IncludeDesc(), p.cfg.OCRMaxChars, p.cfg.OCRDescMaxChars)
	if ok {
		final.Messages = append([]llm.Message{ctxMsg}, final.Messages...)
	}

	return final
}
