package rag

import (
	"context"
	"sort"
	"strings"

	"ragrt/internal/logging"
	"ragrt/internal/types"
)

// Pipeline runs the three-stage RAG retrieve/rerank/assemble flow
// against a vector store.
type Pipeline struct {
	cfg   Config
	store types.VectorStore
}

// New constructs a Pipeline over the given vector store.
func New(cfg Config, store types.VectorStore) *Pipeline {
	return &Pipeline{cfg: cfg, store: store}
}

// chunk is a result carried through the pipeline's stages, with its
// recomputed relevance and expanded content attached as stages run.
type chunk struct {
	result    types.ScoredRecord
	relevance float64
	content   string
}

// Retrieve runs stages 1-4 and returns the budgeted, MMR-diverse
// context chunks for query. sacredOnly restricts stage 1 to
// search_by_positions({3,6,9}, ...) with the configured min-confidence
// floor, per spec.md's sacred-filtered retrieval path.
func (p *Pipeline) Retrieve(ctx context.Context, queryVec []float32, sacredOnly bool) ([]types.RetrievalResult, error) {
	timer := logging.StartTimer(logging.CategoryRAG, "Retrieve")
	defer timer.Stop()

	candidates, err := p.stage1(ctx, queryVec, sacredOnly)
	if err != nil {
		return nil, err
	}

	selected := p.stage2MMR(candidates)
	expanded := p.stage3Expand(ctx, selected)
	budgeted := p.stage4Budget(expanded)

	out := make([]types.RetrievalResult, len(budgeted))
	for i, c := range budgeted {
		out[i] = types.RetrievalResult{
			ID:       c.result.Record.ID,
			Text:     c.content,
			Score:    c.relevance,
			Position: c.result.Record.Position,
		}
	}
	logging.RAGDebug("Retrieve: %d candidates -> %d selected -> %d budgeted", len(candidates), len(selected), len(out))
	return out, nil
}

// HybridRetrieve unions the default and sacred-filtered retrieval
// paths, deduplicates by chunk id, resorts by relevance, and truncates
// to TopN.
func (p *Pipeline) HybridRetrieve(ctx context.Context, queryVec []float32) ([]types.RetrievalResult, error) {
	defaultResults, err := p.Retrieve(ctx, queryVec, false)
	if err != nil {
		return nil, err
	}
	sacredResults, err := p.Retrieve(ctx, queryVec, true)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	merged := make([]types.RetrievalResult, 0, len(defaultResults)+len(sacredResults))
	for _, r := range append(defaultResults, sacredResults...) {
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		merged = append(merged, r)
	}

	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Score > merged[j].Score })
	if len(merged) > p.cfg.TopN {
		merged = merged[:p.cfg.TopN]
	}
	return merged, nil
}

func (p *Pipeline) stage1(ctx context.Context, queryVec []float32, sacredOnly bool) ([]chunk, error) {
	var records []types.ScoredRecord
	var err error

	if sacredOnly {
		minConf := p.cfg.MinConfidence
		all, searchErr := p.store.SearchByPositions(ctx, queryVec, []types.CyclePosition{3, 6, 9}, p.cfg.TopK)
		if searchErr != nil {
			return nil, searchErr
		}
		for _, r := range all {
			if r.Record.Confidence >= minConf {
				records = append(records, r)
			}
		}
	} else {
		records, err = p.store.Search(ctx, queryVec, p.cfg.TopK, nil)
		if err != nil {
			return nil, err
		}
	}

	out := make([]chunk, 0, len(records))
	for _, r := range records {
		if r.Similarity < p.cfg.SimMin {
			continue
		}
		sacredWeight := 1.0
		if r.Record.Position.IsSacred() {
			sacredWeight = p.cfg.SacredWeight
			if sacredWeight < 1 {
				sacredWeight = 1
			}
		}
		relevance := r.Similarity * r.Record.Confidence * sacredWeight
		out = append(out, chunk{result: r, relevance: relevance, content: r.Record.Text})
	}
	return out, nil
}

// stage2MMR reranks candidates by relevance, then greedily selects a
// diverse subset of size TopN by maximal marginal relevance.
func (p *Pipeline) stage2MMR(candidates []chunk) []chunk {
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].relevance > candidates[j].relevance })

	if len(candidates) == 0 {
		return nil
	}

	n := p.cfg.TopN
	if n <= 0 || n > len(candidates) {
		n = len(candidates)
	}

	selected := make([]chunk, 0, n)
	remaining := append([]chunk(nil), candidates...)

	selected = append(selected, remaining[0])
	remaining = remaining[1:]

	for len(selected) < n && len(remaining) > 0 {
		bestIdx := -1
		bestScore := -1e18
		for i, cand := range remaining {
			maxSim := 0.0
			for _, s := range selected {
				sim := jaccard(cand.content, s.content)
				if sim > maxSim {
					maxSim = sim
				}
			}
			mmrScore := p.cfg.Lambda*cand.relevance - (1-p.cfg.Lambda)*maxSim
			if mmrScore > bestScore {
				bestScore = mmrScore
				bestIdx = i
			}
		}
		selected = append(selected, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}

	return selected
}

// jaccard computes Jaccard similarity over lowercased whitespace
// tokens, the content_similarity used by MMR.
func jaccard(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 0
	}

	intersection := 0
	for tok := range setA {
		if setB[tok] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]bool {
	tokens := strings.Fields(strings.ToLower(s))
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}

// stage3Expand attempts to fetch <id>_prev/<id>_next neighbors for each
// selected chunk and prepends/appends their content verbatim.
func (p *Pipeline) stage3Expand(ctx context.Context, selected []chunk) []chunk {
	for i := range selected {
		id := selected[i].result.Record.ID
		var parts []string
		if prev := p.lookupByID(ctx, id+"_prev"); prev != "" {
			parts = append(parts, prev)
		}
		parts = append(parts, selected[i].content)
		if next := p.lookupByID(ctx, id+"_next"); next != "" {
			parts = append(parts, next)
		}
		selected[i].content = strings.Join(parts, "\n\n")
	}
	return selected
}

// lookupByID is a best-effort neighbor lookup. The VectorStore interface
// in spec.md §6 does not name a get-by-id operation, so this degrades
// gracefully through the optional idLookup extension; stores that don't
// implement it simply return no neighbor, which stage 3 treats as absent.
func (p *Pipeline) lookupByID(ctx context.Context, id string) string {
	lookup, ok := p.store.(idLookup)
	if !ok {
		return ""
	}
	text, found := lookup.LookupByID(ctx, id)
	if !found {
		return ""
	}
	return text
}

// idLookup is an optional extension a vector store may implement to
// support stage-3 neighbor expansion by exact id.
type idLookup interface {
	LookupByID(ctx context.Context, id string) (string, bool)
}

// stage4Budget accumulates chunks in MMR order, estimating token count
// as words*2, stopping before the running total would exceed the
// context window.
func (p *Pipeline) stage4Budget(chunks []chunk) []chunk {
	var out []chunk
	total := 0
	for _, c := range chunks {
		estTokens := len(strings.Fields(c.content)) * 2
		if total+estTokens > p.cfg.ContextWindow {
			break
		}
		total += estTokens
		out = append(out, c)
	}
	return out
}
