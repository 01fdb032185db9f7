package sources

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // SQLite драйвер для database/sql
)

// SQLiteSource — загрузка промптов из локальной SQLite базы.
//
// Позволяет деплою редактировать OCR инструкции без пересборки бинарника
// и без раскладывания YAML файлов рядом с ним.
//
// Структура таблицы:
//
//	CREATE TABLE prompts (
//	    id       TEXT PRIMARY KEY,
//	    system   TEXT,
//	    template TEXT
//	);
type SQLiteSource struct {
	db    *sql.DB
	table string
}

// NewSQLiteSource открывает базу по пути и создаёт источник.
//
// table по умолчанию "prompts". Сама таблица не создаётся — отсутствие
// трактуется как «источник пуст» при Load.
func NewSQLiteSource(path, table string) (*SQLiteSource, error) {
	if table == "" {
		table = "prompts"
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open prompts db: %w", err)
	}

	return &SQLiteSource{
		db:    db,
		table: table,
	}, nil
}

// Load загружает промпт из базы по ID.
func (s *SQLiteSource) Load(promptID string) (*PromptData, error) {
	var system, template sql.NullString

	query := fmt.Sprintf(
		"SELECT system, template FROM %s WHERE id = ?",
		s.table,
	)

	err := s.db.QueryRow(query, promptID).Scan(&system, &template)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("prompt '%s' not found in table '%s'", promptID, s.table)
	}
	if err != nil {
		return nil, fmt.Errorf("prompts db query failed: %w", err)
	}

	return &PromptData{
		System:    system.String,
		Template:  template.String,
		Variables: make(map[string]string),
		Metadata:  map[string]any{"source": "sqlite"},
	}, nil
}

// Close закрывает соединение с базой.
func (s *SQLiteSource) Close() error {
	return s.db.Close()
}
