package usecase

import "testing"

func TestEmbedCacheNormalizesKeys(t *testing.T) {
	cache := newEmbedCache(4)
	cache.put("How  Many   Sprints", []float32{0.5})

	if _, ok := cache.get("how many sprints"); !ok {
		t.Fatalf("case and whitespace variants must share one entry")
	}
}

func TestEmbedCacheEvictsLeastRecentlyUsed(t *testing.T) {
	cache := newEmbedCache(2)
	cache.put("a", []float32{1})
	cache.put("b", []float32{2})
	if _, ok := cache.get("a"); !ok {
		t.Fatalf("a should still be cached")
	}
	cache.put("c", []float32{3})

	if _, ok := cache.get("b"); ok {
		t.Fatalf("b was least recently used and should be evicted")
	}
	if _, ok := cache.get("a"); !ok {
		t.Fatalf("recently used a should survive eviction")
	}
	if cache.len() != 2 {
		t.Fatalf("cache size = %d, want 2", cache.len())
	}
}

func TestEmbedCacheUpdateMovesToFront(t *testing.T) {
	cache := newEmbedCache(2)
	cache.put("a", []float32{1})
	cache.put("b", []float32{2})
	cache.put("a", []float32{9})
	cache.put("c", []float32{3})

	vector, ok := cache.get("a")
	if !ok || vector[0] != 9 {
		t.Fatalf("re-put should refresh value and recency, got (%v, %v)", vector, ok)
	}
	if _, ok := cache.get("b"); ok {
		t.Fatalf("b should have been evicted")
	}
}
