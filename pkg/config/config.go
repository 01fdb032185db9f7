package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig — корневая структура конфигурации.
// Она зеркалит структуру config.yaml.
type AppConfig struct {
	Backend         BackendConfig   `yaml:"backend"`
	Models          ModelsConfig    `yaml:"models"`
	Pipeline        PipelineConfig  `yaml:"pipeline"`
	S3              S3Config        `yaml:"s3"`
	ImageProcessing ImageProcConfig `yaml:"image_processing"`
	App             AppSpecific     `yaml:"app"`
}

// BackendConfig — OpenAI-совместимый endpoint, обслуживающий обе модели.
//
// Пайплайн ходит в одну «воронку» (generate chat completion); какая именно
// модель отвечает — решает поле model конкретного запроса.
type BackendConfig struct {
	Provider string        `yaml:"provider"` // "openai", "ollama", "zai" и т.д.
	BaseURL  string        `yaml:"base_url"`
	APIKey   string        `yaml:"api_key"` // Поддерживает ${VAR}
	Timeout  time.Duration `yaml:"timeout"` // Go умеет парсить строки вида "60s", "5m"
}

// ModelsConfig — настройки AI моделей.
type ModelsConfig struct {
	Vision      string              `yaml:"vision"`      // Алиас vision-модели для OCR шага
	Reasoning   string              `yaml:"reasoning"`   // Алиас reasoning-модели для финального ответа
	Definitions map[string]ModelDef `yaml:"definitions"` // Словарь определений моделей
}

// ModelDef — параметры конкретной модели.
type ModelDef struct {
	ModelName   string  `yaml:"model_name"` // Реальное имя в API
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

// PipelineConfig — конфигурация оркестратора.
//
// Четыре исторические ревизии пайплайна схлопнуты в одну, параметризованную
// этой таблицей: include description, merge into final, per-image vs batch OCR
// и размер окна сканирования — явные опции, а не отдельные ветки кода.
type PipelineConfig struct {
	// ID и Name — косметические идентификаторы, которые хост показывает
	// как выбираемую "модель".
	ID   string `yaml:"id"`
	Name string `yaml:"name"`

	// OCRMaxChars и OCRDescMaxChars — лимиты символов для инъекции в
	// системное сообщение и для превью. Текст длиннее обрезается с маркером.
	OCRMaxChars     int `yaml:"ocr_max_chars"`
	OCRDescMaxChars int `yaml:"ocr_desc_max_chars"`

	// IncludeDescription — просить ли у vision-модели описание и категорию.
	// nil трактуется как true.
	IncludeDescription *bool `yaml:"include_description"`

	// ShowOCRResults — отправлять ли превью OCR в Notifier. nil = true.
	ShowOCRResults *bool `yaml:"show_ocr_results"`

	// ShowStatus — отправлять ли статусные события. nil = true.
	ShowStatus *bool `yaml:"show_status"`

	// MergeOCRIntoFinal — вшивать ли блок OCR в видимый финальный ответ
	// вместо отдельного превью. Принудительно выключает стриминг.
	MergeOCRIntoFinal bool   `yaml:"merge_ocr_into_final"`
	MergePlacement    string `yaml:"merge_placement"` // "top" (default) или "bottom"

	// PerImageOCR — один OCR запрос на каждую картинку вместо общего батча.
	PerImageOCR bool `yaml:"per_image_ocr"`

	// ScanWindow — сколько последних подряд идущих user-сообщений
	// сканировать на артефакты (с момента последнего ответа ассистента).
	// 0 трактуется как 5. Значение 1 отключает инкрементальное слияние.
	ScanWindow int `yaml:"scan_window"`

	// OCRRatePerMinute — лимит частоты OCR вызовов. 0 = без лимита.
	OCRRatePerMinute int `yaml:"ocr_rate_per_minute"`

	// PromptsDBPath — путь к SQLite базе с переопределениями промптов.
	// Пусто = источник не подключается.
	PromptsDBPath string `yaml:"prompts_db_path"`
}

// GetDefaults возвращает конфигурацию с заполненными дефолтами.
func (c *PipelineConfig) GetDefaults() PipelineConfig {
	result := *c // Копируем текущие значения

	if result.ID == "" {
		result.ID = "multimodal-reasoner"
	}
	if result.Name == "" {
		result.Name = "Multimodal Reasoner"
	}
	if result.OCRMaxChars == 0 {
		result.OCRMaxChars = 50000
	}
	if result.OCRDescMaxChars == 0 {
		result.OCRDescMaxChars = 50000
	}
	if result.MergePlacement == "" {
		result.MergePlacement = "top"
	}
	if result.ScanWindow == 0 {
		result.ScanWindow = 5
	}

	return result
}

// IncludeDesc разворачивает tri-state флаг IncludeDescription (nil = true).
func (c *PipelineConfig) IncludeDesc() bool {
	return c.IncludeDescription == nil || *c.IncludeDescription
}

// ShowResults разворачивает tri-state флаг ShowOCRResults (nil = true).
func (c *PipelineConfig) ShowResults() bool {
	return c.ShowOCRResults == nil || *c.ShowOCRResults
}

// ShowStatuses разворачивает tri-state флаг ShowStatus (nil = true).
func (c *PipelineConfig) ShowStatuses() bool {
	return c.ShowStatus == nil || *c.ShowStatus
}

// S3Config — настройки объектного хранилища для вложений по ключу.
type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key"` // Поддерживает ${VAR}
	SecretKey string `yaml:"secret_key"` // Поддерживает ${VAR}
	UseSSL    bool   `yaml:"use_ssl"`
}

// Enabled — секция s3 опциональна: без endpoint вложения по ключу не резолвятся.
func (c S3Config) Enabled() bool {
	return c.Endpoint != ""
}

// ImageProcConfig — настройки даунскейла картинок перед vision вызовом.
type ImageProcConfig struct {
	MaxWidth int `yaml:"max_width"`
	Quality  int `yaml:"quality"`
}

// AppSpecific — общие настройки приложения.
type AppSpecific struct {
	Debug      bool   `yaml:"debug"`
	PromptsDir string `yaml:"prompts_dir"`
}

// Load читает YAML файл, подставляет ENV переменные и возвращает готовую структуру.
func Load(path string) (*AppConfig, error) {
	// 1. Проверяем существование файла
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found at: %s", path)
	}

	// 2. Читаем файл целиком
	rawBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// 3. Подставляем переменные окружения.
	// os.ExpandEnv заменяет ${VAR} или $VAR на значение из системы.
	contentWithEnv := os.ExpandEnv(string(rawBytes))

	// 4. Парсим YAML в структуру
	var cfg AppConfig
	if err := yaml.Unmarshal([]byte(contentWithEnv), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse yaml: %w", err)
	}

	// 5. Валидируем критические настройки
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	cfg.Pipeline = cfg.Pipeline.GetDefaults()

	return &cfg, nil
}

// validate проверяет обязательные поля.
func (c *AppConfig) validate() error {
	if c.Models.Vision != "" {
		if _, ok := c.Models.Definitions[c.Models.Vision]; !ok {
			return fmt.Errorf("vision model '%s' is not defined in definitions", c.Models.Vision)
		}
	}
	if c.Models.Reasoning != "" {
		if _, ok := c.Models.Definitions[c.Models.Reasoning]; !ok {
			return fmt.Errorf("reasoning model '%s' is not defined in definitions", c.Models.Reasoning)
		}
	}
	switch c.Pipeline.MergePlacement {
	case "", "top", "bottom":
	default:
		return fmt.Errorf("pipeline.merge_placement must be 'top' or 'bottom', got '%s'", c.Pipeline.MergePlacement)
	}
	return nil
}

// Helper методы для удобства доступа (Syntactic sugar)

// GetVisionModel возвращает определение vision-модели по алиасу или дефолту.
func (c *AppConfig) GetVisionModel(name string) (ModelDef, bool) {
	if name == "" {
		name = c.Models.Vision
	}
	m, ok := c.Models.Definitions[name]
	return m, ok
}

// GetReasoningModel возвращает определение reasoning-модели по алиасу или дефолту.
func (c *AppConfig) GetReasoningModel(name string) (ModelDef, bool) {
	if name == "" {
		name = c.Models.Reasoning
	}
	m, ok := c.Models.Definitions[name]
	return m, ok
}

// VisionModelName возвращает имя vision-модели для API запроса.
//
// Если алиас не определён в definitions, алиас используется как имя напрямую.
func (c *AppConfig) VisionModelName() string {
	if def, ok := c.GetVisionModel(""); ok {
		return def.ModelName
	}
	return c.Models.Vision
}

// ReasoningModelName возвращает имя reasoning-модели для API запроса.
func (c *AppConfig) ReasoningModelName() string {
	if def, ok := c.GetReasoningModel(""); ok {
		return def.ModelName
	}
	return c.Models.Reasoning
}
