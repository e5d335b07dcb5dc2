package scorer

import (
	"ragrt/internal/logging"
	"ragrt/internal/types"
)

// Intervene magnifies the signal subspace at every checkpoint beam in
// trace by cfg's sacred factor, mutating the trace in place and
// re-scoring it. Grounded on original_source's
// VortexContextPreserver::process_with_interventions: subspace
// computed from the first half of the trace, interventions applied
// only at sacred positions.
func (s *Scorer) Intervene(trace *types.BeamTrace, magnification float64) Result {
	timer := logging.StartTimer(logging.CategoryScorer, "Intervene")
	defer timer.Stop()

	if len(trace.Beams) == 0 {
		return s.Score(*trace)
	}

	contextSize := len(trace.Beams) / 2
	if contextSize < 1 {
		contextSize = 1
	}
	subspace := computeSubspace(trace.Beams[:contextSize], s.cfg.SubspaceRank)

	for i := range trace.Beams {
		if trace.Beams[i].Position.IsSacred() {
			subspace.Intervene(&trace.Beams[i], magnification)
			trace.Beams[i].Confidence = minFloat(trace.Beams[i].Confidence*1.15, 1)
		}
	}

	return s.Score(*trace)
}

// ComparePropagation simulates the cyclic ("vortex") flow pattern
// against a naive linear position walk over the same starting beams
// and reports each path's resulting signal strength, so callers/tests
// can assert the cyclic path is not worse than the linear baseline.
// Grounded on original_source's compare_propagation_methods.
func (s *Scorer) ComparePropagation(initial []types.Beam, steps int) (vortexStrength, linearStrength float64) {
	vortex := append([]types.Beam(nil), initial...)
	vortex = simulateVortexPropagation(vortex, s, steps)
	vortexSubspace := computeSubspace(vortex, s.cfg.SubspaceRank)

	linear := append([]types.Beam(nil), initial...)
	linear = simulateLinearPropagation(linear, steps)
	linearSubspace := computeSubspace(linear, s.cfg.SubspaceRank)

	return vortexSubspace.strength, linearSubspace.strength
}

func simulateVortexPropagation(beams []types.Beam, s *Scorer, steps int) []types.Beam {
	for step := 0; step < steps; step++ {
		if len(beams) == 0 {
			break
		}
		next := beams[len(beams)-1]
		next.Position = types.CyclePosition(types.DoublingFlow[step%len(types.DoublingFlow)])

		if next.Position.IsSacred() {
			subspace := computeSubspace(beams, s.cfg.SubspaceRank)
			subspace.Intervene(&next, s.cfg.SacredFactor)
			next.Confidence *= 1.15
		}
		next.Confidence = minFloat(next.Confidence*1.05, 1)
		beams = append(beams, next)
	}
	return beams
}

func simulateLinearPropagation(beams []types.Beam, steps int) []types.Beam {
	for step := 0; step < steps; step++ {
		if len(beams) == 0 {
			break
		}
		next := beams[len(beams)-1]
		next.Position = types.CyclePosition(step%9 + 1)
		next.Confidence *= 0.95
		next.Confidence *= 0.93
		beams = append(beams, next)
	}
	return beams
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
