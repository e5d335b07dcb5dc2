package vectorstore

import (
	"context"
	"math/rand"
	"testing"

	"ragrt/internal/types"
)

func BenchmarkSearch(b *testing.B) {
	s := New(128)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 5000; i++ {
		vec := randomVector(rng, 128)
		pos := types.CyclePosition(i%9 + 1)
		_, _ = s.Insert(ctx, types.EmbeddingRecord{Vector: vec, Position: pos, Confidence: 0.5+rng.Float64()*0.5, Text: "bench record"})
	}

	query := randomVector(rng, 128)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = s.Search(ctx, query, 10, nil)
	}
}

func randomVector(rng *rand.Rand, dim int) []float32 {
	v := make([]float32, dim)
	for i := range v {
		v[i] = rng.Float32()
	}
	return v
}
