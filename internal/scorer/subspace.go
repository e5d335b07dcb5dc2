package scorer

import (
	"sort"

	"ragrt/internal/types"
)

// Subspace is the simplified PCA-style signal subspace computed from a
// beam trace: per-dimension variance, sorted descending, with the
// top-r dimensions retained as the "signal" directions.
type Subspace struct {
	dims     []int     // indices of the retained dimensions, descending variance
	variances []float64 // variance at each retained dimension
	strength float64
	rank     int
}

// computeSubspace computes per-dimension variance across the trace's
// nine digit slots, retains the top-r by variance, and reports the
// strength ratio (top-r variance / total variance).
func computeSubspace(beams []types.Beam, rank int) Subspace {
	if len(beams) == 0 {
		return defaultSubspace()
	}

	var variances [9]float64
	for dim := 0; dim < 9; dim++ {
		var mean float64
		for _, b := range beams {
			mean += b.Slots[dim]
		}
		mean /= float64(len(beams))

		var v float64
		for _, b := range beams {
			d := b.Slots[dim] - mean
			v += d * d
		}
		variances[dim] = v / float64(len(beams))
	}

	var total float64
	for _, v := range variances {
		total += v
	}

	type indexedVar struct {
		dim int
		v   float64
	}
	indexed := make([]indexedVar, 9)
	for i := 0; i < 9; i++ {
		indexed[i] = indexedVar{dim: i, v: variances[i]}
	}
	sort.SliceStable(indexed, func(i, j int) bool { return indexed[i].v > indexed[j].v })

	effectiveRank := rank
	if effectiveRank > 9 {
		effectiveRank = 9
	}
	if effectiveRank < 1 {
		effectiveRank = 1
	}

	dims := make([]int, effectiveRank)
	vars := make([]float64, effectiveRank)
	var signalEnergy float64
	for i := 0; i < effectiveRank; i++ {
		dims[i] = indexed[i].dim
		vars[i] = indexed[i].v
		signalEnergy += indexed[i].v
	}

	strength := 0.5
	if total > 0 {
		strength = signalEnergy / total
	}

	return Subspace{dims: dims, variances: vars, strength: strength, rank: effectiveRank}
}

func defaultSubspace() Subspace {
	dims := make([]int, 9)
	for i := range dims {
		dims[i] = i
	}
	return Subspace{dims: dims, variances: make([]float64, 9), strength: 0.5, rank: 9}
}

// project returns the beam's slots projected onto the subspace's
// retained dimensions, with all other dimensions zeroed.
func (s Subspace) project(beam types.Beam) [9]float64 {
	var out [9]float64
	for _, d := range s.dims {
		out[d] = beam.Slots[d]
	}
	return out
}

// computeLocalEnergies measures each beam's squared deviation from the
// uniform distribution (1/9) after projecting onto the subspace,
// dividing by the sacred factor at checkpoints.
func computeLocalEnergies(beams []types.Beam, subspace Subspace, sacredFactor float64) []float64 {
	uniform := 1.0 / 9.0
	energies := make([]float64, len(beams))
	for i, b := range beams {
		projected := subspace.project(b)
		var sumSq float64
		for _, v := range projected {
			d := v - uniform
			sumSq += d * d
		}
		if b.Position.IsSacred() && sacredFactor != 0 {
			sumSq /= sacredFactor
		}
		energies[i] = sumSq
	}
	return energies
}

// Intervene magnifies the signal subspace within beam by scale,
// replacing its slots with the scaled projection and renormalizing,
// then updates confidence as strength * min(1, scale). Grounded on
// original_source's SignalSubspace::magnify.
func (s Subspace) Intervene(beam *types.Beam, scale float64) {
	projected := s.project(*beam)

	var sum float64
	for i := range projected {
		projected[i] *= scale
		sum += projected[i]
	}
	if sum > 0 {
		for i := range projected {
			projected[i] /= sum
		}
	}
	beam.Slots = projected

	confidenceScale := scale
	if confidenceScale > 1 {
		confidenceScale = 1
	}
	beam.Confidence = s.strength * confidenceScale
}
