// Package pipeline реализует двухшаговый multimodal reasoning конвейер.
//
// Проблема: сильные reasoning-модели не понимают картинки, а
// vision-модели слабы в рассуждениях. Конвейер склеивает обе:
//
//  1. Detect  — найти картинки в запросе (images, files, части контента)
//  2. OCR     — прогнать их через vision-модель по структурированной схеме
//  3. Compose — вычистить картинки и впрыснуть результат OCR системным
//     сообщением
//  4. Reason  — делегировать запрос reasoning-модели
//
// Диалог без картинок проходит насквозь без OCR шага. Упавший OCR
// деградирует в пустой контекст: финальный ответ состоится всегда,
// если жива сама reasoning-модель.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ilkoid/reasoner-ai/pkg/config"
	"github.com/ilkoid/reasoner-ai/pkg/llm"
	"github.com/ilkoid/reasoner-ai/pkg/prompts"
	"github.com/ilkoid/reasoner-ai/pkg/s3storage"
	"github.com/ilkoid/reasoner-ai/pkg/utils"
)

// Config — зависимости и настройки конвейера.
type Config struct {
	Pipeline       config.PipelineConfig
	VisionModel    string // имя vision-модели у провайдера
	ReasoningModel string // имя reasoning-модели у провайдера

	Funnel   llm.Provider            // обязателен
	Notifier Notifier                // опционален: nil = без статусов
	Prompts  *prompts.SourceRegistry // опционален: nil = Go defaults
	Resolver s3storage.Resolver      // опционален: nil = S3-ключи не разрешаются
}

// Pipeline — оркестратор OCR → reasoning.
type Pipeline struct {
	cfg            config.PipelineConfig
	visionModel    string
	reasoningModel string

	funnel   llm.Provider
	notifier Notifier
	prompts  *prompts.SourceRegistry
	resolver s3storage.Resolver
	limiter  *rate.Limiter
}

// ModelManifest — конвейер, представленный хосту как выбираемая модель.
type ModelManifest struct {
	ID   string
	Name string
}

// New создаёт конвейер, валидируя обязательные зависимости.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Funnel == nil {
		return nil, fmt.Errorf("pipeline: funnel provider is required")
	}
	if cfg.VisionModel == "" {
		return nil, fmt.Errorf("pipeline: vision model is required")
	}
	if cfg.ReasoningModel == "" {
		return nil, fmt.Errorf("pipeline: reasoning model is required")
	}

	pc := cfg.Pipeline.GetDefaults()

	p := &Pipeline{
		cfg:            pc,
		visionModel:    cfg.VisionModel,
		reasoningModel: cfg.ReasoningModel,
		funnel:         cfg.Funnel,
		notifier:       cfg.Notifier,
		prompts:        cfg.Prompts,
		resolver:       cfg.Resolver,
	}

	// Пейсинг OCR вызовов: vision-модели обычно заметно дороже по квотам
	if pc.OCRRatePerMinute > 0 {
		p.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(pc.OCRRatePerMinute)), 1)
	}

	return p, nil
}

// Manifest возвращает список «моделей», которые конвейер отдаёт хосту.
func (p *Pipeline) Manifest() []ModelManifest {
	return []ModelManifest{{ID: p.cfg.ID, Name: p.cfg.Name}}
}

// Run выполняет полный прогон конвейера для одного запроса.
//
// callback получает чанки при req.Stream=true; при merge_ocr_into_final
// стрим схлопывается — весь ответ приходит одним content-чанком.
// ChunkDone доставляется не более одного раза за прогон. Ошибки
// reasoning-модели возвращаются вызывающему без изменений.
func (p *Pipeline) Run(ctx context.Context, req llm.ChatRequest, callback func(llm.StreamChunk)) (*llm.ChatResponse, error) {
	// Финальная зачистка статуса — ровно один раз за прогон,
	// при любом исходе
	var clearOnce sync.Once
	clearStatus := func() {
		clearOnce.Do(func() {
			p.status(ctx, "", true, true)
		})
	}
	defer clearStatus()

	// 1. Detect: окно незавершённого обмена + вложения уровня запроса.
	// Диалог без картинок молча проходит насквозь — никаких
	// «картинок нет» статусов, чтобы не затирать чужой индикатор.
	art := ExtractImageArtifacts(req, p.cfg.ScanWindow)

	var agg OCRResult
	if art.HasImages() {
		utils.Info("images detected", "pipeline", p.cfg.ID, "count", art.Count())
		p.status(ctx, statusOCRRunning, false, false)

		// 2. OCR: ошибка деградирует в пустой контекст
		res, err := p.runOCR(ctx, art, req.User)
		if err != nil {
			utils.Error("ocr step degraded", "error", err)
			p.status(ctx, fmt.Sprintf("OCR failed: %v", err), true, false)
		} else {
			agg = res
			p.preview(ctx, RenderOCRPreview(agg, p.cfg.IncludeDesc(), p.cfg.OCRMaxChars, p.cfg.OCRDescMaxChars))
			p.status(ctx, statusOCRComplete, true, false)
		}
	}

	// 3. Compose
	final := p.composeFinalRequest(req, agg)

	// 4. Reason: merge-режим принудительно выключает стриминг —
	// блок OCR должен встать до/после цельного ответа
	merge := p.cfg.MergeOCRIntoFinal && !agg.Empty()

	var resp *llm.ChatResponse
	var err error
	if req.Stream && !merge {
		resp, err = p.funnel.CompleteStream(ctx, final, doneOnce(callback))
	} else {
		final.Stream = false
		resp, err = p.funnel.Complete(ctx, final)
	}
	if err != nil {
		return nil, err
	}

	if merge {
		p.mergeIntoResponse(resp, agg)
		// Схлопнутый стрим: контент одним чанком, затем Done
		if req.Stream && callback != nil {
			callback(llm.StreamChunk{Type: llm.ChunkContent, Content: resp.Text(), Delta: resp.Text()})
			callback(llm.StreamChunk{Type: llm.ChunkDone, Done: true})
		}
	}

	clearStatus()
	return resp, nil
}

// mergeIntoResponse вшивает HTML-блок OCR в финальный ответ.
func (p *Pipeline) mergeIntoResponse(resp *llm.ChatResponse, res OCRResult) {
	if resp == nil || len(resp.Choices) == 0 {
		return
	}

	block := RenderOCRPreview(res, p.cfg.IncludeDesc(), p.cfg.OCRMaxChars, p.cfg.OCRDescMaxChars)
	answer := resp.Choices[0].Message.Content

	if p.cfg.MergePlacement == "bottom" {
		resp.Choices[0].Message.Content = answer + "\n\n---\n\n" + block
	} else {
		resp.Choices[0].Message.Content = block + "\n\n---\n\n" + answer
	}
}

// doneOnce гарантирует доставку ChunkDone не более одного раза.
func doneOnce(callback func(llm.StreamChunk)) func(llm.StreamChunk) {
	if callback == nil {
		return nil
	}
	var once sync.Once
	return func(chunk llm.StreamChunk) {
		if chunk.Type == llm.ChunkDone {
			once.Do(func() { callback(chunk) })
			return
		}
		callback(chunk)
	}
}

// status отправляет статус с учётом show_status и nil-нотификатора.
func (p *Pipeline) status(ctx context.Context, description string, done, hidden bool) {
	if p.notifier == nil || !p.cfg.ShowStatuses() {
		return
	}
	p.notifier.Status(ctx, description, done, hidden)
}

// preview отправляет превью с учётом show_ocr_results и nil-нотификатора.
func (p *Pipeline) preview(ctx context.Context, content string) {
	if p.notifier == nil || !p.cfg.ShowResults() {
		return
	}
	p.notifier.Preview(ctx, content)
}
