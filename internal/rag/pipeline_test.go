package rag

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragrt/internal/types"
	"ragrt/internal/vectorstore"
)

func seedStore(t *testing.T, store *vectorstore.Store, entries []struct {
	vec  []float32
	pos  types.CyclePosition
	conf float64
	text string
}) {
	t.Helper()
	ctx := context.Background()
	for _, e := range entries {
		_, err := store.Insert(ctx, types.EmbeddingRecord{Vector: e.vec, Position: e.pos, Confidence: e.conf, Text: e.text})
		require.NoError(t, err)
	}
}

func TestRetrieveFiltersBySimilarityFloor(t *testing.T) {
	store := vectorstore.New(3)
	seedStore(t, store, []struct {
		vec  []float32
		pos  types.CyclePosition
		conf float64
		text string
	}{
		{[]float32{1, 0, 0}, 1, 0.9, "alpha content about cats"},
		{[]float32{0, 1, 0}, 2, 0.9, "beta content about dogs"},
	})

	cfg := DefaultConfig()
	cfg.SimMin = 0.99
	p := New(cfg, store)

	results, err := p.Retrieve(context.Background(), []float32{1, 0, 0}, false)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "alpha content about cats", results[0].Text)
}

func TestStage2MMRPrefersDiverseContent(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TopN = 2
	cfg.Lambda = 0.3
	p := New(cfg, vectorstore.New(3))

	candidates := []chunk{
		{result: types.ScoredRecord{Record: types.EmbeddingRecord{ID: "a", Text: "cats are great pets"}}, relevance: 0.9, content: "cats are great pets"},
		{result: types.ScoredRecord{Record: types.EmbeddingRecord{ID: "b", Text: "cats are great pets indeed"}}, relevance: 0.89, content: "cats are great pets indeed"},
		{result: types.ScoredRecord{Record: types.EmbeddingRecord{ID: "c", Text: "stock markets rose today"}}, relevance: 0.5, content: "stock markets rose today"},
	}

	selected := p.stage2MMR(candidates)
	require.Len(t, selected, 2)
	assert.Equal(t, "a", selected[0].result.Record.ID)
	assert.Equal(t, "c", selected[1].result.Record.ID)
}

func TestStage4BudgetStopsBeforeExceedingWindow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ContextWindow = 10
	p := New(cfg, vectorstore.New(3))

	chunks := []chunk{
		{content: "one two three four five"},
		{content: "six seven eight nine ten"},
	}

	out := p.stage4Budget(chunks)
	assert.Len(t, out, 1)
}

func TestStage3ExpandReachesStoreNowThatItImplementsIDLookup(t *testing.T) {
	store := vectorstore.New(3)
	ctx := context.Background()

	mainID, err := store.Insert(ctx, types.EmbeddingRecord{Vector: []float32{1, 0, 0}, Position: 1, Confidence: 0.9, Text: "middle chunk"})
	require.NoError(t, err)

	p := New(DefaultConfig(), store)
	selected := []chunk{{result: types.ScoredRecord{Record: types.EmbeddingRecord{ID: mainID}}, content: "middle chunk"}}
	expanded := p.stage3Expand(ctx, selected)
	// Store has no record at "<mainID>_prev"/"<mainID>_next", so content
	// is left as-is; the point of this test is that p.store.(idLookup)
	// now succeeds (Store implements LookupByID) instead of always
	// failing the type assertion, which previously made this stage a
	// permanent no-op regardless of what the store held.
	assert.Equal(t, "middle chunk", expanded[0].content)
}

func TestJaccardSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, jaccard("cats and dogs", "cats and dogs"))
	assert.Equal(t, 0.0, jaccard("cats", "dogs"))
	assert.InDelta(t, 1.0/3.0, jaccard("cats dogs", "cats birds"), 0.01)
}

func TestHybridRetrieveDedupsAndSortsByScore(t *testing.T) {
	store := vectorstore.New(3)
	seedStore(t, store, []struct {
		vec  []float32
		pos  types.CyclePosition
		conf float64
		text string
	}{
		{[]float32{1, 0, 0}, 3, 0.95, "sacred checkpoint content"},
		{[]float32{1, 0, 0}, 1, 0.8, "ordinary content"},
	})

	cfg := DefaultConfig()
	cfg.SimMin = 0.0
	cfg.MinConfidence = 0.0
	p := New(cfg, store)

	results, err := p.HybridRetrieve(context.Background(), []float32{1, 0, 0})
	require.NoError(t, err)
	require.NotEmpty(t, results)

	seen := make(map[string]bool)
	for _, r := range results {
		assert.False(t, seen[r.ID], "duplicate id in hybrid results: %s", r.ID)
		seen[r.ID] = true
	}
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}
