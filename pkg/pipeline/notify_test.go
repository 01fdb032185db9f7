package pipeline

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ilkoid/reasoner-ai/pkg/events"
)

func TestSeenCache_DedupWithinTTL(t *testing.T) {
	now := time.Unix(1000, 0)
	cache := &memorySeenCache{
		entries: make(map[string]time.Time),
		now:     func() time.Time { return now },
	}

	assert.False(t, cache.Seen("k", 3*time.Second), "first sighting")
	assert.True(t, cache.Seen("k", 3*time.Second), "duplicate within ttl")

	now = now.Add(2 * time.Second)
	assert.True(t, cache.Seen("k", 3*time.Second), "still within ttl")

	now = now.Add(5 * time.Second)
	assert.False(t, cache.Seen("k", 3*time.Second), "ttl expired, key is fresh again")
}

func TestSeenCache_IndependentKeys(t *testing.T) {
	cache := NewSeenCache()
	assert.False(t, cache.Seen("a", time.Minute))
	assert.False(t, cache.Seen("b", time.Minute))
	assert.True(t, cache.Seen("a", time.Minute))
}

func collectEvents(t *testing.T, sub events.Subscriber, n int) []events.Event {
	t.Helper()
	out := make([]events.Event, 0, n)
	for i := 0; i < n; i++ {
		select {
		case ev := <-sub.Events():
			out = append(out, ev)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for event %d of %d", i+1, n)
		}
	}
	return out
}

func TestEmitterNotifier_StatusDedup(t *testing.T) {
	emitter := events.NewChanEmitter(16)
	defer emitter.Close()
	sub := emitter.Subscribe()

	n := NewEmitterNotifier(emitter, nil)
	ctx := context.Background()

	n.Status(ctx, "Running OCR on attached image(s)...", false, false)
	n.Status(ctx, "Running OCR on attached image(s)...", false, false) // дубль — подавлен
	n.Status(ctx, "Running OCR on attached image(s)...", true, false)  // другой done — проходит

	got := collectEvents(t, sub, 2)
	first := got[0].Data.(events.StatusData)
	second := got[1].Data.(events.StatusData)
	assert.False(t, first.Done)
	assert.True(t, second.Done)
}

func TestEmitterNotifier_HiddenStatusNotDeduped(t *testing.T) {
	emitter := events.NewChanEmitter(16)
	defer emitter.Close()
	sub := emitter.Subscribe()

	n := NewEmitterNotifier(emitter, nil)
	ctx := context.Background()

	// Две финальные зачистки подряд (два прогона) — обе должны дойти
	n.Status(ctx, "", true, true)
	n.Status(ctx, "", true, true)

	got := collectEvents(t, sub, 2)
	for _, ev := range got {
		data := ev.Data.(events.StatusData)
		assert.True(t, data.Hidden)
		assert.True(t, data.Done)
	}
}

func TestEmitterNotifier_Preview(t *testing.T) {
	emitter := events.NewChanEmitter(16)
	defer emitter.Close()
	sub := emitter.Subscribe()

	n := NewEmitterNotifier(emitter, nil)
	n.Preview(context.Background(), "<details>block</details>")

	got := collectEvents(t, sub, 1)
	assert.Equal(t, events.EventPreview, got[0].Type)
	assert.Equal(t, "<details>block</details>", got[0].Data.(events.PreviewData).Content)
}

func TestRenderOCRPreview_Full(t *testing.T) {
	out := RenderOCRPreview(OCRResult{
		Text:        "line one",
		Description: "a photo of a cat",
		Category:    "photo",
	}, true, 0, 0)

	assert.True(t, strings.HasPrefix(out, "<details><summary>OCR Results</summary>"))
	assert.True(t, strings.HasSuffix(out, "</details>"))
	assert.Contains(t, out, "<p><strong>Category:</strong> photo</p>")
	assert.Contains(t, out, "<pre><code>line one</code></pre>")
	assert.Contains(t, out, "<blockquote>a photo of a cat</blockquote>")
}

func TestRenderOCRPreview_Placeholders(t *testing.T) {
	out := RenderOCRPreview(OCRResult{}, true, 0, 0)

	assert.Contains(t, out, "<p><strong>Text:</strong> (no visible text)</p>")
	assert.Contains(t, out, "<p><strong>Description:</strong> (none)</p>")
	assert.NotContains(t, out, "Category:")
}

func TestRenderOCRPreview_DescriptionDisabled(t *testing.T) {
	out := RenderOCRPreview(OCRResult{Text: "t", Description: "d"}, false, 0, 0)
	assert.NotContains(t, out, "Description:")
}
