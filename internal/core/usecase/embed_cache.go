package usecase

import (
	"container/list"
	"strings"
	"sync"
)

// embedCache is a bounded LRU cache for query embeddings, keyed by normalized
// query text. Repeated questions skip the embedding collaborator entirely.
type embedCache struct {
	mu      sync.Mutex
	cap     int
	order   *list.List
	entries map[string]*list.Element
}

type embedEntry struct {
	key    string
	vector []float32
}

func newEmbedCache(capacity int) *embedCache {
	if capacity <= 0 {
		capacity = 128
	}
	return &embedCache{
		cap:     capacity,
		order:   list.New(),
		entries: make(map[string]*list.Element, capacity),
	}
}

func (c *embedCache) get(query string) ([]float32, bool) {
	key := normalizeQueryKey(query)
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*embedEntry).vector, true
}

func (c *embedCache) put(query string, vector []float32) {
	key := normalizeQueryKey(query)
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		elem.Value.(*embedEntry).vector = vector
		c.order.MoveToFront(elem)
		return
	}

	c.entries[key] = c.order.PushFront(&embedEntry{key: key, vector: vector})
	if c.order.Len() > c.cap {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*embedEntry).key)
	}
}

func (c *embedCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func normalizeQueryKey(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}
