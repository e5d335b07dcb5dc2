package scorer

import (
	"math"

	"ragrt/internal/types"
)

// checkConstraints runs C1..C4 against the trace and returns every
// violation found (each tagged with its trace index and severity)
// along with the total number of checks actually performed, for the
// constraint_satisfaction = 1 - violations/checks formula.
func (s *Scorer) checkConstraints(beams []types.Beam) ([]Violation, int) {
	var violations []Violation
	checks := 0

	for i, b := range beams {
		e, l, p := b.Ethos, b.Logos, b.Pathos
		if e+l+p != 0 {
			checks++
			if v, ok := checkChannelBalance(b, s.cfg); ok {
				v.TraceIndex = i
				violations = append(violations, v)
			}
		}
		if b.Position.IsSacred() {
			checks++
			if v, ok := checkCheckpointSignal(b, s.cfg); ok {
				v.TraceIndex = i
				violations = append(violations, v)
			}
		}
	}

	for i := 0; i+1 < len(beams); i++ {
		checks++
		if v, ok := checkCyclicFlow(beams[i], beams[i+1]); ok {
			v.TraceIndex = i
			violations = append(violations, v)
		}
	}

	if countCheckpoints(beams) >= 2 {
		checks++
		if v, ok := checkCheckpointCoherence(beams); ok {
			v.TraceIndex = len(beams) - 1
			violations = append(violations, v)
		}
	}

	return violations, checks
}

// checkChannelBalance implements C1: pathos must not exceed PMax, ethos
// and logos must each meet their floor, among beams whose ELP channels
// sum to a nonzero total.
func checkChannelBalance(b types.Beam, cfg Config) (Violation, bool) {
	e, l, p := b.Ethos, b.Logos, b.Pathos
	total := e + l + p
	if total == 0 {
		return Violation{}, false
	}

	eRatio, lRatio, pRatio := e/total, l/total, p/total

	var worstSeverity float64
	violated := false
	if pRatio > cfg.PMax {
		violated = true
		worstSeverity = math.Max(worstSeverity, pRatio-cfg.PMax)
	}
	if eRatio < cfg.EMin {
		violated = true
		worstSeverity = math.Max(worstSeverity, cfg.EMin-eRatio)
	}
	if lRatio < cfg.LMin {
		violated = true
		worstSeverity = math.Max(worstSeverity, cfg.LMin-lRatio)
	}
	if !violated {
		return Violation{}, false
	}
	return Violation{Kind: ConstraintChannelBalance, Severity: clamp01(worstSeverity)}, true
}

// checkCheckpointSignal implements C2: at a checkpoint, confidence must
// be >= SigmaMin; severity is 1 - confidence/SigmaMin.
func checkCheckpointSignal(b types.Beam, cfg Config) (Violation, bool) {
	if cfg.SigmaMin <= 0 {
		return Violation{}, false
	}
	if b.Confidence >= cfg.SigmaMin {
		return Violation{}, false
	}
	severity := clamp01(1 - b.Confidence/cfg.SigmaMin)
	return Violation{Kind: ConstraintCheckpointSignal, Severity: severity}, true
}

// checkCyclicFlow implements C3: a consecutive pair must either land on
// a checkpoint or follow the doubling rule 1->2->4->8->7->5->1.
func checkCyclicFlow(curr, next types.Beam) (Violation, bool) {
	if next.Position.IsSacred() {
		return Violation{}, false
	}
	if followsDoubling(curr.Position, next.Position) {
		return Violation{}, false
	}
	return Violation{Kind: ConstraintCyclicFlow, Severity: 0.5}, true
}

func followsDoubling(from, to types.CyclePosition) bool {
	for i, v := range types.DoublingFlow {
		if types.CyclePosition(v) == from {
			next := types.DoublingFlow[(i+1)%len(types.DoublingFlow)]
			return types.CyclePosition(next) == to
		}
	}
	return false
}

// checkCheckpointCoherence implements C4: checkpoint beams' confidences
// must have low variance; coherence = 1 - stdev(confidences) >= 0.5.
func checkCheckpointCoherence(beams []types.Beam) (Violation, bool) {
	var checkpointConfidences []float64
	for _, b := range beams {
		if b.Position.IsSacred() {
			checkpointConfidences = append(checkpointConfidences, b.Confidence)
		}
	}
	if len(checkpointConfidences) < 2 {
		return Violation{}, false
	}

	m := mean(checkpointConfidences)
	var variance float64
	for _, c := range checkpointConfidences {
		d := c - m
		variance += d * d
	}
	variance /= float64(len(checkpointConfidences))
	stdev := math.Sqrt(variance)

	coherence := 1 - stdev
	if coherence >= 0.5 {
		return Violation{}, false
	}
	return Violation{Kind: ConstraintCheckpointCoherence, Severity: clamp01(1 - coherence)}, true
}
