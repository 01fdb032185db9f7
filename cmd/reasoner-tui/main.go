/*
Reasoner TUI - чат с multimodal reasoning пайплайном поверх Bubble Tea.

Картинки прикрепляются командой /image <url> перед отправкой сообщения.
Статусы OCR показываются в заголовке, превью OCR — в ленте чата.
*/

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/ilkoid/reasoner-ai/pkg/config"
	"github.com/ilkoid/reasoner-ai/pkg/events"
	"github.com/ilkoid/reasoner-ai/pkg/factory"
	"github.com/ilkoid/reasoner-ai/pkg/llm"
	"github.com/ilkoid/reasoner-ai/pkg/pipeline"
	"github.com/ilkoid/reasoner-ai/pkg/prompts"
	"github.com/ilkoid/reasoner-ai/pkg/s3storage"
	"github.com/ilkoid/reasoner-ai/pkg/utils"
)

var configFlag = flag.String("config", "config.yaml", "Path to config.yaml")

// Стили ленты чата
var (
	userStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	aiStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	systemStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

// ChatState хранит состояние диалога между прогонами пайплайна
type ChatState struct {
	history  []llm.Message
	pending  []string // картинки, прикреплённые к следующему сообщению
	pipe     *pipeline.Pipeline
	emitter  *events.ChanEmitter
	pipeName string
}

// teaMsg типы для коммуникации
type aiResponseMsg struct{ text string }
type errorMsg struct{ err error }
type pipelineEventMsg struct{ event events.Event }
type eventsClosedMsg struct{}

// chatModel - TUI модель чата
type chatModel struct {
	textarea textarea.Model
	viewport viewport.Model
	spinner  spinner.Model

	chatState  *ChatState
	sub        events.Subscriber
	statusLine string
	loading    bool
	ready      bool
}

func initialModel(chatState *ChatState, sub events.Subscriber) tea.Model {
	ta := textarea.New()
	ta.Placeholder = "Сообщение или /image <url>..."
	ta.Focus()
	ta.Prompt = "┃ "
	ta.SetHeight(3)
	ta.CharLimit = 4000
	ta.ShowLineNumbers = false
	ta.KeyMap.InsertNewline.SetEnabled(false) // Enter отправляет

	vp := viewport.New(0, 0)
	vp.SetContent(systemStyle.Render(
		"🔎 Reasoner TUI\n" +
			"Пайплайн: " + chatState.pipeName + "\n" +
			"/image <url> прикрепляет картинку к следующему сообщению\n" +
			"Ctrl+C или Esc для выхода"))

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return chatModel{
		chatState: chatState,
		sub:       sub,
		textarea:  ta,
		viewport:  vp,
		spinner:   sp,
	}
}

func (m chatModel) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, waitForEvent(m.sub))
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		spCmd tea.Cmd
	)

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		headerHeight := 1
		footerHeight := m.textarea.Height() + 2

		vpHeight := msg.Height - headerHeight - footerHeight
		if vpHeight < 0 {
			vpHeight = 0
		}

		m.viewport.Width = msg.Width
		m.viewport.Height = vpHeight
		m.textarea.SetWidth(msg.Width)
		m.ready = true

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			input := strings.TrimSpace(m.textarea.Value())
			if input == "" {
				return m, nil
			}
			m.textarea.Reset()

			// Команда прикрепления картинки
			if url, ok := strings.CutPrefix(input, "/image "); ok {
				url = strings.TrimSpace(url)
				m.chatState.pending = append(m.chatState.pending, url)
				m.appendLog(systemStyle.Render("📎 Картинка прикреплена: ") + url)
				return m, nil
			}

			userMessage := llm.Message{
				Role:    llm.RoleUser,
				Content: input,
				Images:  m.chatState.pending,
			}
			m.chatState.pending = nil
			m.chatState.history = append(m.chatState.history, userMessage)

			label := "Вы: "
			if len(userMessage.Images) > 0 {
				label = fmt.Sprintf("Вы (📎%d): ", len(userMessage.Images))
			}
			m.appendLog(userStyle.Render(label) + input)

			m.loading = true
			return m, tea.Batch(m.spinner.Tick, runPipelineCmd(m.chatState))

		case tea.KeyCtrlU:
			m.textarea.Reset()
			return m, nil
		}

	case pipelineEventMsg:
		switch data := msg.event.Data.(type) {
		case events.StatusData:
			if data.Hidden {
				m.statusLine = ""
			} else {
				m.statusLine = data.Description
			}
		case events.PreviewData:
			wrapped := wordwrap.String(data.Content, max(m.viewport.Width-2, 20))
			m.appendLog(systemStyle.Render(wrapped))
		}
		return m, tea.Batch(tiCmd, vpCmd, waitForEvent(m.sub))

	case eventsClosedMsg:
		return m, nil

	case aiResponseMsg:
		m.loading = false
		m.statusLine = ""

		m.chatState.history = append(m.chatState.history, llm.Message{
			Role:    llm.RoleAssistant,
			Content: msg.text,
		})
		m.appendLog(aiStyle.Render("AI: ") + wordwrap.String(msg.text, max(m.viewport.Width-2, 20)))

	case errorMsg:
		m.loading = false
		m.statusLine = ""
		m.appendLog(errorStyle.Render("❌ Ошибка: ") + msg.err.Error())
	}

	if m.loading {
		m.spinner, spCmd = m.spinner.Update(msg)
		return m, tea.Batch(tiCmd, vpCmd, spCmd)
	}

	return m, tea.Batch(tiCmd, vpCmd)
}

func (m *chatModel) appendLog(str string) {
	m.viewport.SetContent(m.viewport.View() + "\n" + str)
	m.viewport.GotoBottom()
}

func (m chatModel) View() string {
	if !m.ready {
		return "Initializing UI..."
	}

	status := fmt.Sprintf(" %s ", m.chatState.pipeName)
	if m.statusLine != "" {
		status += "| " + m.statusLine + " "
	}

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("62")).
		Padding(0, 1).
		Bold(true)

	header := headerStyle.Width(m.viewport.Width).Render(status)

	border := systemStyle.Width(m.viewport.Width).
		Render(strings.Repeat("─", max(m.viewport.Width, 10)))

	view := fmt.Sprintf("%s\n%s\n%s\n%s",
		header,
		m.viewport.View(),
		border,
		m.textarea.View(),
	)

	if m.loading {
		view += "\n" + m.spinner.View() + " Думаю..."
	}

	return view
}

// waitForEvent ждёт следующее событие пайплайна из подписки
func waitForEvent(sub events.Subscriber) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-sub.Events()
		if !ok {
			return eventsClosedMsg{}
		}
		return pipelineEventMsg{event: event}
	}
}

// runPipelineCmd запускает прогон пайплайна для текущей истории
func runPipelineCmd(chatState *ChatState) tea.Cmd {
	return func() tea.Msg {
		req := llm.ChatRequest{
			Model:    chatState.pipeName,
			Messages: append([]llm.Message(nil), chatState.history...),
		}

		resp, err := chatState.pipe.Run(context.Background(), req, nil)
		if err != nil {
			return errorMsg{err: err}
		}

		return aiResponseMsg{text: resp.Text()}
	}
}

func main() {
	flag.Parse()

	if err := utils.InitLogger(); err != nil {
		fmt.Printf("Logger init failed: %v\n", err)
	}
	defer utils.Close()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	funnel, err := factory.NewProvider(cfg.Backend)
	if err != nil {
		log.Fatalf("Ошибка создания провайдера: %v", err)
	}

	registry, err := prompts.CreateSourceRegistry(cfg)
	if err != nil {
		log.Fatalf("Ошибка инициализации промптов: %v", err)
	}

	var resolver s3storage.Resolver
	if cfg.S3.Enabled() {
		s3client, err := s3storage.New(cfg.S3, cfg.ImageProcessing)
		if err != nil {
			log.Fatalf("Ошибка инициализации S3: %v", err)
		}
		resolver = s3client
	}

	emitter := events.NewChanEmitter(32)
	defer emitter.Close()

	pipe, err := pipeline.New(pipeline.Config{
		Pipeline:       cfg.Pipeline,
		VisionModel:    cfg.VisionModelName(),
		ReasoningModel: cfg.ReasoningModelName(),
		Funnel:         funnel,
		Notifier:       pipeline.NewEmitterNotifier(emitter, nil),
		Prompts:        registry,
		Resolver:       resolver,
	})
	if err != nil {
		log.Fatalf("Ошибка создания пайплайна: %v", err)
	}

	manifest := pipe.Manifest()

	chatState := &ChatState{
		pipe:     pipe,
		emitter:  emitter,
		pipeName: manifest[0].Name,
	}

	p := tea.NewProgram(
		initialModel(chatState, emitter.Subscribe()),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	if _, err := p.Run(); err != nil {
		log.Fatalf("Ошибка запуска TUI: %v", err)
	}
}
