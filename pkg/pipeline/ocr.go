// OCR шаг: вызов vision-модели через воронку.
package pipeline

import (
	"context"

	"github.com/ilkoid/reasoner-ai/pkg/llm"
	"github.com/ilkoid/reasoner-ai/pkg/prompts"
	"github.com/ilkoid/reasoner-ai/pkg/prompts/sources"
	"github.com/ilkoid/reasoner-ai/pkg/utils"
)

// runOCR прогоняет найденные артефакты через vision-модель и
// возвращает агрегированный результат.
//
// Алгоритм:
//  1. S3-ключи без URL разрешаются в data-uri (best-effort)
//  2. per_image_ocr=true — по запросу на картинку, иначе один батч
//  3. Каждый вызов пейсится rate-лимитером (если сконфигурирован)
//  4. Ошибка отдельного вызова деградирует в пустой результат этой
//     картинки; ошибка возвращается только если не удался НИ ОДИН вызов
func (p *Pipeline) runOCR(ctx context.Context, art Artifacts, user string) (OCRResult, error) {
	art = p.resolveArtifacts(ctx, art)

	batches := []Artifacts{art}
	if p.cfg.PerImageOCR {
		batches = art.Split()
	}

	var agg OCRResult
	var lastErr error
	succeeded := false

	for _, batch := range batches {
		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				lastErr = err
				break
			}
		}

		resp, err := p.funnel.Complete(ctx, p.buildOCRRequest(batch, user))
		if err != nil {
			utils.Error("ocr call failed", "model", p.visionModel, "error", err)
			lastErr = err
			continue
		}

		res := ParseStructuredOutput(resp.Text())
		if !p.cfg.IncludeDesc() {
			res.Description = ""
		}
		agg = MergeOCR(agg, res)
		succeeded = true
	}

	if !succeeded && lastErr != nil {
		return OCRResult{}, lastErr
	}
	return agg, nil
}

// resolveArtifacts разворачивает файлы с S3-ключами в data-uri части.
//
// Best-effort: недоступное вложение логируется и пропускается,
// остальные картинки продолжают обрабатываться.
func (p *Pipeline) resolveArtifacts(ctx context.Context, art Artifacts) Artifacts {
	if p.resolver == nil {
		return art
	}

	for _, f := range art.Files {
		if f.URL != "" || f.Key == "" {
			continue
		}
		uri, err := p.resolver.ResolveDataURI(ctx, f.Key)
		if err != nil {
			utils.Warn("attachment resolution failed", "key", f.Key, "error", err)
			continue
		}
		art.Parts = append(art.Parts, llm.ContentPart{
			Type:     llm.PartImage,
			ImageURL: uri,
		})
	}

	return art
}

// buildOCRRequest собирает запрос OCR шага для набора артефактов.
//
// Артефакты прикладываются ко ВСЕМ представлениям сразу (images, files,
// части контента) — максимум совместимости: адаптер конкретного
// провайдера возьмёт то представление, которое понимает. Стриминг
// всегда выключен: парсеру нужен цельный ответ.
func (p *Pipeline) buildOCRRequest(art Artifacts, user string) llm.ChatRequest {
	userText := p.loadPrompt(prompts.OCRUserID, sources.GetDefaultOCRUserPrompt().System)

	userMsg := llm.Message{
		Role:    llm.RoleUser,
		Content: userText,
	}
	if len(art.URLs) > 0 {
		userMsg.Images = append([]string(nil), art.URLs...)
	}
	if len(art.Files) > 0 {
		userMsg.Files = append([]llm.FileRef(nil), art.Files...)
	}
	if len(art.Parts) > 0 {
		userMsg.Parts = append([]llm.ContentPart{{Type: llm.PartText, Text: userText}}, art.Parts...)
		userMsg.Content = ""
	}

	return llm.ChatRequest{
		Model:  p.visionModel,
		Stream: false,
		User:   user,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: p.ocrSystemPrompt()},
			userMsg,
		},
	}
}

// ocrSystemPrompt выбирает системную инструкцию OCR по режиму пайплайна.
func (p *Pipeline) ocrSystemPrompt() string {
	if p.cfg.IncludeDesc() {
		return p.loadPrompt(prompts.OCRSystemID, sources.GetDefaultOCRSystemPrompt().System)
	}
	return p.loadPrompt(prompts.OCRSystemPlainID, sources.GetDefaultOCRSystemPlainPrompt().System)
}

func (p *Pipeline) loadPrompt(promptID, fallback string) string {
	if p.prompts == nil {
		return fallback
	}
	return p.prompts.LoadSystem(promptID, fallback)
}
