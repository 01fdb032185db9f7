// Парсер структурированного ответа vision-модели.
//
// Модель отвечает по схеме из ocr_system промпта:
//
//	TEXT:
//	<транскрипция>
//	---
//	DESCRIPTION:
//	<описание или 'N/A'>
//	---
//	CATEGORY: <категория>
//
// Модели недисциплинированы: маркеры могут отсутствовать, идти в любом
// порядке, категория может быть синонимом или с мусором. Парсер обязан
// вернуть осмысленный результат для любого входа.
package pipeline

import (
	"regexp"
	"strings"
)

// OCRResult — разобранный результат OCR шага.
type OCRResult struct {
	Text        string
	Description string
	Category    string
}

// Empty — true если не извлечено ничего.
func (r OCRResult) Empty() bool {
	return r.Text == "" && r.Description == "" && r.Category == ""
}

var (
	reTextHeader = regexp.MustCompile(`(?i)^\s*text\s*:\s*$`)
	reDescHeader = regexp.MustCompile(`(?i)^\s*description\s*:\s*$`)
	reCategory   = regexp.MustCompile(`(?i)^\s*category\s*:\s*(.+?)\s*$`)
	reSeparator  = regexp.MustCompile(`^\s*---\s*$`)
)

// Категории в фиксированном порядке: prefix-match должен быть детерминирован.
var categoryOrder = []string{
	"screenshot",
	"document",
	"diagram",
	"math",
	"slide",
	"whiteboard",
	"handwritten_note",
	"photo",
	"other",
}

var allowedCategories = func() map[string]bool {
	m := make(map[string]bool, len(categoryOrder))
	for _, c := range categoryOrder {
		m[c] = true
	}
	return m
}()

var categorySynonyms = map[string]string{
	"handwritten": "handwritten_note",
	"handwriting": "handwritten_note",
	"webpage":     "screenshot",
	"ui":          "screenshot",
	"screen":      "screenshot",
	"picture":     "photo",
	"image":       "photo",
}

// Описания-заглушки, которые модель пишет вместо пустого описания.
var placeholderDescriptions = map[string]bool{
	"n/a":            true,
	"na":             true,
	"none":           true,
	"no description": true,
}

// ParseStructuredOutput разбирает сырой ответ vision-модели.
//
// Алгоритм:
//  1. Пустой (после trim) вход → нулевой результат
//  2. Нет ни одного маркера → весь ответ как есть в Text (verbatim fallback)
//  3. Построчный разбор: строки-заголовки переключают секцию, строки "---"
//     выбрасываются, CATEGORY захватывается inline (последняя побеждает)
//  4. Категория нормализуется, описания-заглушки вычищаются
func ParseStructuredOutput(raw string) OCRResult {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return OCRResult{}
	}

	lower := strings.ToLower(trimmed)
	if !strings.Contains(lower, "text:") &&
		!strings.Contains(lower, "description:") &&
		!strings.Contains(lower, "category:") {
		return OCRResult{Text: trimmed}
	}

	var textLines, descLines []string
	var category string

	// До первого заголовка строки относятся к тексту
	section := "text"

	for _, line := range strings.Split(raw, "\n") {
		switch {
		case reTextHeader.MatchString(line):
			section = "text"
		case reDescHeader.MatchString(line):
			section = "desc"
		case reCategory.MatchString(line):
			category = reCategory.FindStringSubmatch(line)[1]
		case reSeparator.MatchString(line):
			// разделители картинок не несут контента
		case section == "text":
			textLines = append(textLines, line)
		default:
			descLines = append(descLines, line)
		}
	}

	result := OCRResult{
		Text:        strings.TrimSpace(strings.Join(textLines, "\n")),
		Description: strings.TrimSpace(strings.Join(descLines, "\n")),
		Category:    NormalizeCategory(category),
	}

	if placeholderDescriptions[strings.ToLower(result.Description)] {
		result.Description = ""
	}

	return result
}

// NormalizeCategory приводит сырую категорию к закрытому словарю.
//
// Шаги: lowercase + trim, пробелы и дефисы в underscore, синонимы
// (в том числе без разделителей: "hand-writing" → "handwriting"),
// точное членство, затем prefix-match ("screenshots" → "screenshot").
// Не распознана — пустая строка. Идемпотентна.
func NormalizeCategory(raw string) string {
	c := strings.ToLower(strings.TrimSpace(raw))
	if c == "" {
		return ""
	}
	c = strings.NewReplacer("-", "_", " ", "_").Replace(c)

	if mapped, ok := categorySynonyms[c]; ok {
		c = mapped
	} else if mapped, ok := categorySynonyms[strings.ReplaceAll(c, "_", "")]; ok {
		c = mapped
	}

	if allowedCategories[c] {
		return c
	}
	for _, a := range categoryOrder {
		if strings.HasPrefix(c, a) {
			return a
		}
	}
	return ""
}

// MergeOCR объединяет результаты по нескольким картинкам в один агрегат.
//
// Текст и описание склеиваются через разделитель "---", категории —
// уникальный союз через запятую с сохранением порядка появления.
func MergeOCR(dst, src OCRResult) OCRResult {
	dst.Text = joinSection(dst.Text, src.Text)
	dst.Description = joinSection(dst.Description, src.Description)
	dst.Category = mergeCategories(dst.Category, src.Category)
	return dst
}

func joinSection(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	return a + "\n\n---\n\n" + b
}

func mergeCategories(a, b string) string {
	if b == "" {
		return a
	}
	if a == "" {
		return b
	}

	seen := make(map[string]bool)
	var union []string
	for _, part := range strings.Split(a+","+b, ",") {
		part = strings.TrimSpace(part)
		if part == "" || seen[part] {
			continue
		}
		seen[part] = true
		union = append(union, part)
	}
	return strings.Join(union, ", ")
}
