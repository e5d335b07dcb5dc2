package retrieval

import (
	"context"
	"strings"
	"sync"
	"time"

	"ragrt/internal/logging"
	"ragrt/internal/types"
)

// DefaultCacheMax is the default cache size at which insertion evicts
// one entry, per spec.md §4.F.
const DefaultCacheMax = 500

// RestrictedPolicy is the shallow/bounded fetch policy applied on a
// cache miss: shallow depth, bounded domain count, and a deadline
// derived from the configured timeout.
func RestrictedPolicy(timeout time.Duration) types.FetchPolicy {
	return types.FetchPolicy{Depth: 1, DomainCap: 5, Deadline: time.Now().Add(timeout)}
}

// ScoredResult pairs a raw search result with its computed credibility.
type ScoredResult struct {
	Result      types.SearchResult
	Credibility float64
}

// Extractor turns scored, deduped search results into structured
// knowledge records ready for ingestion into a semantic store. The
// vector store's Insert signature is the natural sink; extractors are
// supplied by callers so the adapter stays storage-agnostic.
type Extractor interface {
	Extract(ctx context.Context, query string, results []ScoredResult) ([]types.EmbeddingRecord, error)
}

type cacheEntry struct {
	results    []ScoredResult
	insertedAt time.Time
	seq        int
}

// Cache is the cache-first retrieval adapter named in spec.md §4.F: a
// lowercased-query cache in front of a Fetcher, with hit/miss counters,
// bounded size, and domain-credibility scoring + dedup on miss.
type Cache struct {
	mu        sync.Mutex
	entries   map[string]*cacheEntry
	order     []string // insertion order, oldest first, for best-effort LRU-ish eviction
	fetcher   types.Fetcher
	extractor Extractor
	store     types.VectorStore
	cacheMax  int
	timeout   time.Duration
	seq       int

	hits   int
	misses int
}

// New constructs a Cache wrapping fetcher, extracting into store via
// extractor on each miss.
func New(fetcher types.Fetcher, extractor Extractor, store types.VectorStore, cacheMax int, timeout time.Duration) *Cache {
	if cacheMax <= 0 {
		cacheMax = DefaultCacheMax
	}
	return &Cache{
		entries:   make(map[string]*cacheEntry),
		fetcher:   fetcher,
		extractor: extractor,
		store:     store,
		cacheMax:  cacheMax,
		timeout:   timeout,
	}
}

func cacheKey(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

// Lookup returns cached results for query on a hit, incrementing hits;
// on a miss it fetches, scores, dedups, extracts, ingests, caches, and
// returns the fresh results, incrementing misses.
func (c *Cache) Lookup(ctx context.Context, query string) ([]ScoredResult, error) {
	timer := logging.StartTimer(logging.CategoryRetrieval, "Lookup")
	defer timer.Stop()

	key := cacheKey(query)

	c.mu.Lock()
	if entry, ok := c.entries[key]; ok {
		c.hits++
		results := entry.results
		c.mu.Unlock()
		logging.RetrievalDebug("cache hit for %q (hits=%d misses=%d)", key, c.hits, c.misses)
		return results, nil
	}
	c.misses++
	c.mu.Unlock()

	raw, err := c.fetcher.Fetch(ctx, query, RestrictedPolicy(c.timeout))
	if err != nil {
		return nil, types.NewError(types.KindUpstream, "retrieval.Lookup", "fetch failed", err)
	}

	scored := make([]ScoredResult, 0, len(raw))
	for _, r := range raw {
		scored = append(scored, ScoredResult{Result: r, Credibility: Credibility(r.URL, r.RelevanceHint, r.SourceEngine)})
	}
	deduped := DedupByDomain(scored)

	if c.extractor != nil && c.store != nil {
		records, extractErr := c.extractor.Extract(ctx, query, deduped)
		if extractErr != nil {
			logging.RetrievalWarn("extraction failed for %q: %v", key, extractErr)
		} else {
			for _, rec := range records {
				if _, insertErr := c.store.Insert(ctx, rec); insertErr != nil {
					logging.RetrievalWarn("ingestion failed for %q: %v", key, insertErr)
				}
			}
		}
	}

	c.mu.Lock()
	c.insertLocked(key, deduped)
	c.mu.Unlock()

	logging.RetrievalDebug("cache miss for %q, fetched %d results", key, len(deduped))
	return deduped, nil
}

// insertLocked adds key's results to the cache, evicting the oldest
// entry first if the cache is at capacity. Caller must hold c.mu.
func (c *Cache) insertLocked(key string, results []ScoredResult) {
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.cacheMax {
		c.evictOldestLocked()
	}
	c.seq++
	c.entries[key] = &cacheEntry{results: results, insertedAt: time.Now().UTC(), seq: c.seq}
	c.order = append(c.order, key)
}

func (c *Cache) evictOldestLocked() {
	for len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		if _, ok := c.entries[oldest]; ok {
			delete(c.entries, oldest)
			return
		}
	}
}

// HitRatio returns hits / (hits + misses), or 0 if there have been no
// lookups yet.
func (c *Cache) HitRatio() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := c.hits + c.misses
	if total == 0 {
		return 0
	}
	return float64(c.hits) / float64(total)
}

// Stats returns the raw hit/miss counters.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
