package redis

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"assessment-engine/internal/domain"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestTestCatalogCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{items: map[string][]domain.TestQuestion{"test-1": sampleItems()}}
	catalog := NewTestCatalog(newClient(mr), loader, time.Minute, nil)

	items, err := catalog.Items(context.Background(), "test-1")
	if err != nil {
		t.Fatalf("items: %v", err)
	}
	if len(items) != 2 || loader.callCount() != 1 {
		t.Fatalf("expected 2 items from one load, got %d items and %d loads", len(items), loader.callCount())
	}
	if !mr.Exists("test:test-1:items") {
		t.Fatalf("expected redis hash to be written")
	}
	if got := mr.HGet("test:test-1:items", "count"); got != "2" {
		t.Fatalf("expected count field 2, got %q", got)
	}
	if ttl := mr.TTL("test:test-1:items"); ttl < time.Minute || ttl > time.Minute+6*time.Second {
		t.Fatalf("expected ttl with at most 10%% jitter, got %v", ttl)
	}

	// Second call should hit cache, loader not incremented.
	cached, err := catalog.Items(context.Background(), "test-1")
	if err != nil {
		t.Fatalf("items 2: %v", err)
	}
	if loader.callCount() != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.callCount())
	}
	if len(cached) != 2 || cached[0].Order != 1 || cached[1].Order != 2 {
		t.Fatalf("expected ordered items, got %+v", cached)
	}
	if cached[0].AnswerKey != "b" || cached[0].TestID != "test-1" || len(cached[0].Choices) != 2 {
		t.Fatalf("cached item lost fields: %+v", cached[0])
	}
	if cached[1].Kind != domain.KindOpenText || cached[1].MaxChars != 200 {
		t.Fatalf("cached open-text item lost bounds: %+v", cached[1])
	}
}

func TestTestCatalogIgnoresCorruptEntries(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	mr.HSet("test:test-1:items", "1", "{not json")
	loader := &countingLoader{items: map[string][]domain.TestQuestion{"test-1": sampleItems()}}
	catalog := NewTestCatalog(newClient(mr), loader, time.Minute, nil)

	items, err := catalog.Items(context.Background(), "test-1")
	if err != nil {
		t.Fatalf("items: %v", err)
	}
	if len(items) != 2 || loader.callCount() != 1 {
		t.Fatalf("expected fallback to loader, got %d items and %d loads", len(items), loader.callCount())
	}
}

func TestTestCatalogReloadsIncompleteHash(t *testing.T) {
	cases := []struct {
		name   string
		fields map[string]string
	}{
		{name: "missing count", fields: map[string]string{"1": cachedJSON(t, sampleItems()[0])}},
		{name: "fewer positions than count", fields: map[string]string{"count": "2", "1": cachedJSON(t, sampleItems()[0])}},
		{name: "position outside range", fields: map[string]string{"count": "2", "1": cachedJSON(t, sampleItems()[0]), "3": cachedJSON(t, sampleItems()[1])}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mr, err := miniredis.Run()
			if err != nil {
				t.Fatalf("run miniredis: %v", err)
			}
			defer mr.Close()

			for field, value := range tc.fields {
				mr.HSet("test:test-1:items", field, value)
			}
			loader := &countingLoader{items: map[string][]domain.TestQuestion{"test-1": sampleItems()}}
			catalog := NewTestCatalog(newClient(mr), loader, time.Minute, nil)

			items, err := catalog.Items(context.Background(), "test-1")
			if err != nil {
				t.Fatalf("items: %v", err)
			}
			if len(items) != 2 || loader.callCount() != 1 {
				t.Fatalf("expected full reload, got %d items and %d loads", len(items), loader.callCount())
			}
			if got := mr.HGet("test:test-1:items", "count"); got != "2" {
				t.Fatalf("expected rewritten hash with count 2, got %q", got)
			}
			if mr.HGet("test:test-1:items", "3") != "" {
				t.Fatalf("expected stale positions to be dropped")
			}
			if mr.TTL("test:test-1:items") <= 0 {
				t.Fatalf("expected rewritten hash to carry a ttl")
			}

			if _, err := catalog.Items(context.Background(), "test-1"); err != nil {
				t.Fatalf("items 2: %v", err)
			}
			if loader.callCount() != 1 {
				t.Fatalf("expected complete hash to be served from cache, loads=%d", loader.callCount())
			}
		})
	}
}

func cachedJSON(t *testing.T, q domain.TestQuestion) string {
	t.Helper()
	raw, err := json.Marshal(toCached(q))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(raw)
}

type countingLoader struct {
	mu    sync.Mutex
	calls int
	items map[string][]domain.TestQuestion
}

func (l *countingLoader) ListTestQuestions(_ context.Context, testID string) ([]domain.TestQuestion, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	return l.items[testID], nil
}

func (l *countingLoader) callCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func sampleItems() []domain.TestQuestion {
	return []domain.TestQuestion{
		{
			ID: "tq-1", TestID: "test-1", QuestionID: "q1", Order: 1, Bank: "PR",
			Kind: domain.KindSingleChoice, Prompt: "What is 2 + 2?",
			Choices:   []domain.Choice{{ID: "a", Text: "3"}, {ID: "b", Text: "4"}},
			AnswerKey: "b",
		},
		{
			ID: "tq-2", TestID: "test-1", QuestionID: "q2", Order: 2, Bank: "PR",
			Kind: domain.KindOpenText, Prompt: "Describe a deadlock.", MaxChars: 200,
		},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
