package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"assessment-engine/internal/domain"
	"golang.org/x/sync/singleflight"
)

// TestItemLoader fetches the ordered questions of a test from the backing store.
type TestItemLoader interface {
	ListTestQuestions(ctx context.Context, testID string) ([]domain.TestQuestion, error)
}

// TestCatalog caches test questions with a TTL. Tests never change after
// assembly, so a cached entry is never stale, only evicted.
type TestCatalog struct {
	loader TestItemLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedItems
}

type cachedItems struct {
	items     []domain.TestQuestion
	expiresAt time.Time
}

func NewTestCatalog(loader TestItemLoader, ttl time.Duration) *TestCatalog {
	return &TestCatalog{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedItems),
	}
}

func (c *TestCatalog) Items(ctx context.Context, testID string) ([]domain.TestQuestion, error) {
	if items, ok := c.lookup(testID); ok {
		return items, nil
	}

	result, err, _ := c.sf.Do(testID, func() (interface{}, error) {
		if items, ok := c.lookup(testID); ok {
			return items, nil
		}
		items, err := c.loader.ListTestQuestions(ctx, testID)
		if err != nil {
			return nil, err
		}
		// an empty result may belong to a test that is still being written
		if len(items) > 0 {
			c.mu.Lock()
			c.cache[testID] = cachedItems{
				items:     items,
				expiresAt: c.clock().Add(c.ttlWithJitter()),
			}
			c.mu.Unlock()
		}
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.TestQuestion), nil
}

func (c *TestCatalog) lookup(testID string) ([]domain.TestQuestion, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.cache[testID]
	if !ok || !entry.expiresAt.After(c.clock()) {
		return nil, false
	}
	return entry.items, true
}

func (c *TestCatalog) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
