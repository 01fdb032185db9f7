// Reasoner CLI — одноразовый прогон multimodal reasoning пайплайна.
//
// Принимает вопрос и ссылки на картинки, печатает статусы OCR в stderr
// и финальный ответ в stdout:
//
//	reasoner-cli -config config.yaml -image https://host/shot.png "Что на скриншоте?"
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilkoid/reasoner-ai/pkg/config"
	"github.com/ilkoid/reasoner-ai/pkg/events"
	"github.com/ilkoid/reasoner-ai/pkg/factory"
	"github.com/ilkoid/reasoner-ai/pkg/llm"
	"github.com/ilkoid/reasoner-ai/pkg/pipeline"
	"github.com/ilkoid/reasoner-ai/pkg/prompts"
	"github.com/ilkoid/reasoner-ai/pkg/s3storage"
	"github.com/ilkoid/reasoner-ai/pkg/utils"
)

// imageList — повторяемый флаг -image.
type imageList []string

func (l *imageList) String() string { return strings.Join(*l, ",") }

func (l *imageList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

var (
	configFlag  = flag.String("config", "config.yaml", "Path to config.yaml")
	queryFlag   = flag.String("query", "", "Query to execute (or pass as positional argument)")
	streamFlag  = flag.Bool("stream", false, "Stream the final answer")
	timeoutFlag = flag.Duration("timeout", 5*time.Minute, "Timeout for the whole run")
	s3KeyFlag   = flag.String("s3-key", "", "Object storage key of an attached image")
)

func main() {
	var images imageList
	flag.Var(&images, "image", "Image URL or data-uri (repeatable)")
	flag.Parse()

	// === ИНИЦИАЛИЗАЦИЯ ЛОГГЕРА ===
	if err := utils.InitLogger(); err != nil {
		fmt.Fprintf(os.Stderr, "Logger init failed: %v\n", err)
	}

	utils.Info("reasoner-cli started", "config", *configFlag)

	ctx, shutdown := utils.SetupGracefulShutdownWithContext()
	defer shutdown()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		fatal("Config load failed: %v", err)
	}

	query := *queryFlag
	if query == "" && len(flag.Args()) > 0 {
		query = strings.Join(flag.Args(), " ")
	}
	if query == "" {
		fatal("Query is required. Use -query flag or pass as argument.")
	}

	p, emitter := buildPipeline(cfg)
	defer emitter.Close()

	// Статусы и превью — в stderr, чтобы не мешать ответу в stdout
	go printEvents(emitter.Subscribe())

	req := llm.ChatRequest{
		Model:  cfg.Pipeline.ID,
		Stream: *streamFlag,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: query, Images: []string(images)},
		},
	}
	if *s3KeyFlag != "" {
		req.Files = []llm.FileRef{{Key: *s3KeyFlag}}
	}

	runCtx, cancel := context.WithTimeout(ctx, *timeoutFlag)
	defer cancel()

	var callback func(llm.StreamChunk)
	if *streamFlag {
		callback = func(chunk llm.StreamChunk) {
			if chunk.Type == llm.ChunkContent {
				fmt.Print(chunk.Delta)
			}
		}
	}

	resp, err := p.Run(runCtx, req, callback)
	if err != nil {
		fatal("Run failed: %v", err)
	}

	if *streamFlag {
		fmt.Println()
	} else {
		fmt.Println(resp.Text())
	}

	utils.Close()
}

// buildPipeline собирает пайплайн из конфигурации.
func buildPipeline(cfg *config.AppConfig) (*pipeline.Pipeline, *events.ChanEmitter) {
	funnel, err := factory.NewProvider(cfg.Backend)
	if err != nil {
		fatal("Provider init failed: %v", err)
	}

	registry, err := prompts.CreateSourceRegistry(cfg)
	if err != nil {
		fatal("Prompt sources init failed: %v", err)
	}

	var resolver s3storage.Resolver
	if cfg.S3.Enabled() {
		s3client, err := s3storage.New(cfg.S3, cfg.ImageProcessing)
		if err != nil {
			fatal("S3 init failed: %v", err)
		}
		resolver = s3client
	}

	emitter := events.NewChanEmitter(32)

	p, err := pipeline.New(pipeline.Config{
		Pipeline:       cfg.Pipeline,
		VisionModel:    cfg.VisionModelName(),
		ReasoningModel: cfg.ReasoningModelName(),
		Funnel:         funnel,
		Notifier:       pipeline.NewEmitterNotifier(emitter, nil),
		Prompts:        registry,
		Resolver:       resolver,
	})
	if err != nil {
		fatal("Pipeline init failed: %v", err)
	}

	return p, emitter
}

// printEvents печатает статусы пайплайна в stderr.
func printEvents(sub events.Subscriber) {
	for event := range sub.Events() {
		switch data := event.Data.(type) {
		case events.StatusData:
			if data.Hidden || data.Description == "" {
				continue
			}
			fmt.Fprintf(os.Stderr, "[status] %s\n", data.Description)
		case events.PreviewData:
			fmt.Fprintf(os.Stderr, "[ocr preview]\n%s\n", data.Content)
		}
	}
}

func fatal(format string, args ...any) {
	utils.Error(fmt.Sprintf(format, args...))
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	utils.Close()
	os.Exit(1)
}
