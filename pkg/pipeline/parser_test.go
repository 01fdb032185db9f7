package pipeline

import (
	"strings"
	"testing"
)

func TestParseStructuredOutput_FullSchema(t *testing.T) {
	raw := `TEXT:
Invoice #42
Total: $100

---
DESCRIPTION:
A scanned invoice with a table of line items.

---
CATEGORY: document`

	res := ParseStructuredOutput(raw)

	if res.Text != "Invoice #42\nTotal: $100" {
		t.Errorf("unexpected text: %q", res.Text)
	}
	if res.Description != "A scanned invoice with a table of line items." {
		t.Errorf("unexpected description: %q", res.Description)
	}
	if res.Category != "document" {
		t.Errorf("unexpected category: %q", res.Category)
	}
}

func TestParseStructuredOutput_TextMarkerOnly(t *testing.T) {
	raw := "TEXT:\nhello world\n---\nsecond image text"

	res := ParseStructuredOutput(raw)

	if res.Text != "hello world\nsecond image text" {
		t.Errorf("separator lines must be dropped, got %q", res.Text)
	}
	if res.Description != "" || res.Category != "" {
		t.Errorf("no description/category expected, got %+v", res)
	}
}

func TestParseStructuredOutput_VerbatimFallback(t *testing.T) {
	raw := "  The model just answered free-form.  "

	res := ParseStructuredOutput(raw)

	if res.Text != "The model just answered free-form." {
		t.Errorf("fallback must return trimmed raw reply, got %q", res.Text)
	}
	if res.Description != "" || res.Category != "" {
		t.Errorf("fallback must not invent fields: %+v", res)
	}
}

func TestParseStructuredOutput_EmptyInput(t *testing.T) {
	for _, raw := range []string{"", "   ", "\n\n"} {
		if res := ParseStructuredOutput(raw); !res.Empty() {
			t.Errorf("ParseStructuredOutput(%q) = %+v, want empty", raw, res)
		}
	}
}

func TestParseStructuredOutput_MarkersOutOfOrder(t *testing.T) {
	raw := `CATEGORY: Screenshot
DESCRIPTION:
Login form with two fields.
TEXT:
Username
Password`

	res := ParseStructuredOutput(raw)

	if res.Text != "Username\nPassword" {
		t.Errorf("unexpected text: %q", res.Text)
	}
	if res.Description != "Login form with two fields." {
		t.Errorf("unexpected description: %q", res.Description)
	}
	if res.Category != "screenshot" {
		t.Errorf("category must be normalized, got %q", res.Category)
	}
}

func TestParseStructuredOutput_PlaceholderDescriptionScrubbed(t *testing.T) {
	for _, placeholder := range []string{"N/A", "na", "None", "No description"} {
		raw := "TEXT:\nhi\nDESCRIPTION:\n" + placeholder
		if res := ParseStructuredOutput(raw); res.Description != "" {
			t.Errorf("placeholder %q must scrub to empty, got %q", placeholder, res.Description)
		}
	}
}

func TestParseStructuredOutput_CaseInsensitiveMarkers(t *testing.T) {
	raw := "text:\nlowercase works\ncategory: PHOTO"

	res := ParseStructuredOutput(raw)
	if res.Text != "lowercase works" {
		t.Errorf("unexpected text: %q", res.Text)
	}
	if res.Category != "photo" {
		t.Errorf("unexpected category: %q", res.Category)
	}
}

func TestNormalizeCategory(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"document", "document"},
		{"  Document  ", "document"},
		{"Hand-Writing", "handwritten_note"},
		{"handwritten", "handwritten_note"},
		{"WebPage", "screenshot"},
		{"UI", "screenshot"},
		{"screen", "screenshot"},
		{"picture", "photo"},
		{"image", "photo"},
		{"screenshots", "screenshot"}, // prefix match
		{"math problem", "math"},
		{"banana", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeCategory(tt.raw); got != tt.want {
			t.Errorf("NormalizeCategory(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestNormalizeCategory_Idempotent(t *testing.T) {
	for _, c := range categoryOrder {
		if got := NormalizeCategory(c); got != c {
			t.Errorf("NormalizeCategory(%q) = %q, normalization must be idempotent", c, got)
		}
	}
}

func TestMergeOCR(t *testing.T) {
	a := OCRResult{Text: "first", Description: "desc one", Category: "document"}
	b := OCRResult{Text: "second", Category: "photo"}

	merged := MergeOCR(a, b)

	if !strings.Contains(merged.Text, "first") || !strings.Contains(merged.Text, "second") {
		t.Errorf("both texts must survive the merge: %q", merged.Text)
	}
	if !strings.Contains(merged.Text, "\n\n---\n\n") {
		t.Errorf("texts must be joined by a separator: %q", merged.Text)
	}
	if merged.Description != "desc one" {
		t.Errorf("empty description must not add a separator: %q", merged.Description)
	}
	if merged.Category != "document, photo" {
		t.Errorf("categories must union in first-seen order: %q", merged.Category)
	}
}

func TestMergeOCR_DuplicateCategories(t *testing.T) {
	merged := MergeOCR(
		OCRResult{Category: "photo"},
		OCRResult{Category: "photo"},
	)
	if merged.Category != "photo" {
		t.Errorf("duplicate category must collapse, got %q", merged.Category)
	}
}

func TestMergeOCR_IntoEmptyAggregate(t *testing.T) {
	merged := MergeOCR(OCRResult{}, OCRResult{Text: "only", Category: "other"})
	if merged.Text != "only" || merged.Category != "other" {
		t.Errorf("merge into empty aggregate must be identity: %+v", merged)
	}
}
