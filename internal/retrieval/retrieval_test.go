package retrieval

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragrt/internal/types"
)

func TestClassifySourceRecognizesTaxonomy(t *testing.T) {
	assert.Equal(t, SourceAcademic, ClassifySource("https://arxiv.org/abs/1234"))
	assert.Equal(t, SourceGovernment, ClassifySource("https://nist.gov/page"))
	assert.Equal(t, SourceWikipedia, ClassifySource("https://en.wikipedia.org/wiki/Go"))
	assert.Equal(t, SourceTechnical, ClassifySource("https://github.com/owner/repo"))
	assert.Equal(t, SourceNews, ClassifySource("https://www.bbc.co.uk/news/1"))
	assert.Equal(t, SourceCommercial, ClassifySource("https://widgets.com/buy"))
	assert.Equal(t, SourceUnknown, ClassifySource("not-a-url"))
}

func TestCredibilityClampedAndRewardsHTTPS(t *testing.T) {
	httpsScore := Credibility("https://arxiv.org/abs/1", 1.0, "google")
	httpScore := Credibility("http://arxiv.org/abs/1", 1.0, "google")
	assert.Greater(t, httpsScore, httpScore)
	assert.LessOrEqual(t, httpsScore, 1.0)
	assert.GreaterOrEqual(t, httpsScore, 0.0)
}

func TestDedupByDomainKeepsHighestUnlessMarginExceeded(t *testing.T) {
	scored := []ScoredResult{
		{Result: types.SearchResult{URL: "https://example.com/a"}, Credibility: 0.5},
		{Result: types.SearchResult{URL: "https://example.com/b"}, Credibility: 0.55},
		{Result: types.SearchResult{URL: "https://example.com/c"}, Credibility: 0.7},
	}
	out := DedupByDomain(scored)
	require.Len(t, out, 1)
	assert.Equal(t, "https://example.com/c", out[0].Result.URL)
}

func TestDedupByDomainRequiresMarginToReplace(t *testing.T) {
	scored := []ScoredResult{
		{Result: types.SearchResult{URL: "https://example.com/a"}, Credibility: 0.5},
		{Result: types.SearchResult{URL: "https://example.com/b"}, Credibility: 0.55},
	}
	out := DedupByDomain(scored)
	require.Len(t, out, 1)
	assert.Equal(t, "https://example.com/a", out[0].Result.URL)
}

type fakeFetcher struct {
	calls   int
	results []types.SearchResult
}

func (f *fakeFetcher) Fetch(ctx context.Context, query string, policy types.FetchPolicy) ([]types.SearchResult, error) {
	f.calls++
	return f.results, nil
}

func TestLookupCachesOnMissAndHitsOnRepeat(t *testing.T) {
	fetcher := &fakeFetcher{results: []types.SearchResult{
		{URL: "https://example.com/a", SourceEngine: "google", RelevanceHint: 0.9},
	}}
	c := New(fetcher, nil, nil, 0, time.Second)

	_, err := c.Lookup(context.Background(), "  Query One  ")
	require.NoError(t, err)
	_, err = c.Lookup(context.Background(), "query one")
	require.NoError(t, err)

	assert.Equal(t, 1, fetcher.calls)
	hits, misses := c.Stats()
	assert.Equal(t, 1, hits)
	assert.Equal(t, 1, misses)
	assert.InDelta(t, 0.5, c.HitRatio(), 0.001)
}

func TestCacheEvictsOldestAtCapacity(t *testing.T) {
	fetcher := &fakeFetcher{results: []types.SearchResult{{URL: "https://example.com/a", SourceEngine: "google", RelevanceHint: 0.5}}}
	c := New(fetcher, nil, nil, 2, time.Second)

	ctx := context.Background()
	_, _ = c.Lookup(ctx, "a")
	_, _ = c.Lookup(ctx, "b")
	_, _ = c.Lookup(ctx, "c")

	c.mu.Lock()
	_, hasA := c.entries["a"]
	_, hasC := c.entries["c"]
	count := len(c.entries)
	c.mu.Unlock()

	assert.False(t, hasA, "oldest entry should have been evicted")
	assert.True(t, hasC)
	assert.Equal(t, 2, count)
}
