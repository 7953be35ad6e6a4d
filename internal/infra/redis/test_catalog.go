package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"sync"
	"time"

	"assessment-engine/internal/domain"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// countField records how many questions the hash must hold; a hash without it,
// or with a different number of positions, is treated as a miss.
const countField = "count"

// TestItemLoader fetches the ordered questions of a test from the backing store.
type TestItemLoader interface {
	ListTestQuestions(ctx context.Context, testID string) ([]domain.TestQuestion, error)
}

// TestCatalog caches the questions of a test in Redis (hash per test) and falls
// back to the loader on a miss. Each field holds one question as JSON:
// HSET test:{testID}:items count {n} {position} {json} ...
type TestCatalog struct {
	client *redis.Client
	loader TestItemLoader
	ttl    time.Duration
	log    *zap.Logger
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

type cachedItem struct {
	ID         string          `json:"id"`
	QuestionID string          `json:"questionId"`
	Bank       string          `json:"bank"`
	Kind       string          `json:"kind"`
	Prompt     string          `json:"prompt"`
	Hint       string          `json:"hint,omitempty"`
	Choices    []domain.Choice `json:"choices,omitempty"`
	AnswerKey  string          `json:"answerKey,omitempty"`
	MinChars   int             `json:"minChars,omitempty"`
	MaxChars   int             `json:"maxChars,omitempty"`
}

func NewTestCatalog(client *redis.Client, loader TestItemLoader, ttl time.Duration, log *zap.Logger) *TestCatalog {
	if log == nil {
		log = zap.NewNop()
	}
	return &TestCatalog{
		client: client,
		loader: loader,
		ttl:    ttl,
		log:    log,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *TestCatalog) Items(ctx context.Context, testID string) ([]domain.TestQuestion, error) {
	key := itemsKey(testID)
	if items, ok := c.fromCache(ctx, key, testID); ok {
		return items, nil
	}

	result, err, _ := c.sf.Do(testID, func() (interface{}, error) {
		// another goroutine may have filled the cache meanwhile
		if items, ok := c.fromCache(ctx, key, testID); ok {
			return items, nil
		}
		items, err := c.loader.ListTestQuestions(ctx, testID)
		if err != nil {
			return nil, err
		}
		if len(items) == 0 {
			return items, nil
		}

		if err := c.store(ctx, key, items); err != nil {
			c.log.Warn("cache test questions failed", zap.String("test_id", testID), zap.Error(err))
		}
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.TestQuestion), nil
}

// store replaces the hash in one MULTI/EXEC so readers never see a partial test.
func (c *TestCatalog) store(ctx context.Context, key string, items []domain.TestQuestion) error {
	values := make([]interface{}, 0, 2*len(items)+2)
	values = append(values, countField, len(items))
	for _, it := range items {
		raw, err := json.Marshal(toCached(it))
		if err != nil {
			return fmt.Errorf("marshal test question %s: %w", it.ID, err)
		}
		values = append(values, strconv.Itoa(it.Order), raw)
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, values...)
		if ttl := c.ttlWithJitter(); ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		return nil
	})
	return err
}

// fromCache treats any Redis or decode failure, and any hash whose positions
// are not exactly 1..count, as a miss.
func (c *TestCatalog) fromCache(ctx context.Context, key, testID string) ([]domain.TestQuestion, bool) {
	fields, err := c.client.HGetAll(ctx, key).Result()
	if err != nil || len(fields) == 0 {
		return nil, false
	}
	count, err := strconv.Atoi(fields[countField])
	if err != nil || count <= 0 || len(fields)-1 != count {
		return nil, false
	}
	items := make([]domain.TestQuestion, 0, count)
	for pos, raw := range fields {
		if pos == countField {
			continue
		}
		order, err := strconv.Atoi(pos)
		if err != nil || order < 1 || order > count {
			return nil, false
		}
		var ci cachedItem
		if err := json.Unmarshal([]byte(raw), &ci); err != nil {
			return nil, false
		}
		items = append(items, ci.toDomain(testID, order))
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Order < items[j].Order })
	return items, true
}

func itemsKey(testID string) string {
	return "test:" + testID + ":items"
}

func toCached(q domain.TestQuestion) cachedItem {
	return cachedItem{
		ID:         q.ID,
		QuestionID: q.QuestionID,
		Bank:       q.Bank,
		Kind:       string(q.Kind),
		Prompt:     q.Prompt,
		Hint:       q.Hint,
		Choices:    q.Choices,
		AnswerKey:  q.AnswerKey,
		MinChars:   q.MinChars,
		MaxChars:   q.MaxChars,
	}
}

func (ci cachedItem) toDomain(testID string, order int) domain.TestQuestion {
	return domain.TestQuestion{
		ID:         ci.ID,
		TestID:     testID,
		QuestionID: ci.QuestionID,
		Order:      order,
		Bank:       ci.Bank,
		Kind:       domain.QuestionKind(ci.Kind),
		Prompt:     ci.Prompt,
		Hint:       ci.Hint,
		Choices:    ci.Choices,
		AnswerKey:  ci.AnswerKey,
		MinChars:   ci.MinChars,
		MaxChars:   ci.MaxChars,
	}
}

func (c *TestCatalog) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
