// Package vectorstore implements the dense embedding store described in
// spec.md §4.B: L2-normalized insert, brute-force cosine top-k search
// with the sacred-position boost, and age-based cleanup. Search is always
// exact brute force; the sqlite_vec+cgo build tag (init_vec.go) only
// registers the sqlite-vec extension and adds no ANN index.
package vectorstore

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"ragrt/internal/logging"
	"ragrt/internal/types"
)

// SacredBoost is the deterministic similarity multiplier applied at
// query time to records stored at a checkpoint position.
const SacredBoost = 1.5

// Store is an in-memory, concurrency-safe implementation of
// types.VectorStore. Reads (Search/Stats) take the read lock; Insert
// takes the write lock so search never observes a half-inserted
// record, per spec.md's concurrency model.
type Store struct {
	mu      sync.RWMutex
	records []timedRecord
	dim     int
}

type timedRecord struct {
	types.EmbeddingRecord
	seq       int
	createdAt time.Time
}

// New constructs an empty store. dim is the expected vector dimension;
// inserts of a different dimension are rejected. dim == 0 means "infer
// from the first insert".
func New(dim int) *Store {
	return &Store{dim: dim}
}

func normalize(v []float32) []float32 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		return v
	}
	norm := math.Sqrt(sumSq)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func boost(pos types.CyclePosition) float64 {
	if pos.IsSacred() {
		return SacredBoost
	}
	return 1.0
}

// Insert stores a new L2-normalized embedding record and returns its id.
// The ID and CreatedAt fields of rec are ignored; Insert assigns both.
func (s *Store) Insert(ctx context.Context, rec types.EmbeddingRecord) (string, error) {
	timer := logging.StartTimer(logging.CategoryVectorStore, "Insert")
	defer timer.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dim == 0 {
		s.dim = len(rec.Vector)
	} else if len(rec.Vector) != s.dim {
		logging.VectorStoreError("insert rejected: dimension %d != expected %d", len(rec.Vector), s.dim)
		return "", types.NewError(types.KindInputInvalid, "vectorstore.Insert", "dimension mismatch", nil)
	}

	rec.ID = uuid.NewString()
	rec.Vector = normalize(rec.Vector)
	rec.CreatedAt = time.Now().UTC()
	s.records = append(s.records, timedRecord{EmbeddingRecord: rec, seq: len(s.records), createdAt: rec.CreatedAt})

	logging.VectorStoreDebug("inserted record %s at position %d (total=%d)", rec.ID, rec.Position, len(s.records))
	return rec.ID, nil
}

// LookupByID returns the text of the record with the given id, used by
// the RAG pipeline's stage-3 neighbor expansion (spec.md §4.E).
func (s *Store) LookupByID(ctx context.Context, id string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.records {
		if r.ID == id {
			return r.Text, true
		}
	}
	return "", false
}

// Search returns up to k records with the largest boosted cosine
// similarity to query, restricted to confidence >= minConfidence when
// provided. Ties are broken by ascending insertion order.
func (s *Store) Search(ctx context.Context, query []float32, k int, minConfidence *float64) ([]types.ScoredRecord, error) {
	return s.search(ctx, query, k, minConfidence, nil)
}

// SearchByPositions restricts Search to records whose position is in
// positions.
func (s *Store) SearchByPositions(ctx context.Context, query []float32, positions []types.CyclePosition, k int) ([]types.ScoredRecord, error) {
	allowed := make(map[types.CyclePosition]bool, len(positions))
	for _, p := range positions {
		allowed[p] = true
	}
	return s.search(ctx, query, k, nil, allowed)
}

func (s *Store) search(ctx context.Context, query []float32, k int, minConfidence *float64, positions map[types.CyclePosition]bool) ([]types.ScoredRecord, error) {
	timer := logging.StartTimer(logging.CategoryVectorStore, "search")
	defer timer.Stop()

	if k <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(query) != s.dim && s.dim != 0 {
		logging.VectorStoreError("search rejected: query dimension %d != expected %d", len(query), s.dim)
		return nil, types.NewError(types.KindInputInvalid, "vectorstore.search", "dimension mismatch", nil)
	}

	type candidate struct {
		rec   types.ScoredRecord
		seq   int
	}
	candidates := make([]candidate, 0, len(s.records))

	normalizedQuery := normalize(query)
	for _, r := range s.records {
		if minConfidence != nil && r.Confidence < *minConfidence {
			continue
		}
		if positions != nil && !positions[r.Position] {
			continue
		}
		sim := dot(normalizedQuery, r.Vector) * boost(r.Position)
		candidates = append(candidates, candidate{
			rec: types.ScoredRecord{Record: r.EmbeddingRecord, Similarity: sim},
			seq: r.seq,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].rec.Similarity != candidates[j].rec.Similarity {
			return candidates[i].rec.Similarity > candidates[j].rec.Similarity
		}
		return candidates[i].seq < candidates[j].seq
	})

	if len(candidates) > k {
		candidates = candidates[:k]
	}

	out := make([]types.ScoredRecord, len(candidates))
	for i, c := range candidates {
		out[i] = c.rec
	}
	logging.VectorStoreDebug("search returned %d/%d candidates (k=%d)", len(out), len(s.records), k)
	return out, nil
}

// Stats returns the aggregate view named in spec.md §4.B.
func (s *Store) Stats(ctx context.Context) (types.VectorStoreStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := types.VectorStoreStats{Total: len(s.records), Dim: s.dim}
	var confSum float64
	for _, r := range s.records {
		confSum += r.Confidence
		if r.Position.IsSacred() {
			stats.SacredCount++
		}
	}
	if len(s.records) > 0 {
		stats.MeanConfidence = confSum / float64(len(s.records))
	}
	return stats, nil
}

// CleanupBefore removes records older than ageDays and returns the
// count removed. Named in spec.md §6 and made concrete by SPEC_FULL.md.
func (s *Store) CleanupBefore(ctx context.Context, ageDays int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().AddDate(0, 0, -ageDays)
	kept := s.records[:0:0]
	removed := 0
	for _, r := range s.records {
		if r.createdAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	s.records = kept
	logging.VectorStore("cleanup removed %d records older than %d days", removed, ageDays)
	return removed, nil
}

var _ types.VectorStore = (*Store)(nil)
