// Package scorer implements the signal-subspace hallucination scorer
// described in spec.md §4.C: per-dimension variance analysis over a
// beam trace, four constraint checks (C1..C4), a global energy score,
// and a failure-location diagnostic.
package scorer

import (
	"math"

	"ragrt/internal/logging"
	"ragrt/internal/types"
)

// Config holds the tunables named in spec.md §4.C, with the reference
// defaults as zero-value fallbacks applied by DefaultConfig.
type Config struct {
	PMax         float64 `yaml:"p_max"`         // C1 pathos ceiling, default 0.7
	EMin         float64 `yaml:"e_min"`         // C1 ethos floor, default 0.2
	LMin         float64 `yaml:"l_min"`         // C1 logos floor, default 0.2
	SigmaMin     float64 `yaml:"sigma_min"`     // C2 checkpoint confidence floor, default 0.5
	SubspaceRank int     `yaml:"subspace_rank"` // top-r dimensions retained, default 5
	SacredFactor float64 `yaml:"sacred_factor"` // local-energy divisor at checkpoints, default 1.5
}

// DefaultConfig returns the reference-implementation defaults.
func DefaultConfig() Config {
	return Config{
		PMax:         0.7,
		EMin:         0.2,
		LMin:         0.2,
		SigmaMin:     0.5,
		SubspaceRank: 5,
		SacredFactor: 1.5,
	}
}

// ConstraintKind identifies which of C1..C4 a Violation reports.
type ConstraintKind int

const (
	ConstraintChannelBalance ConstraintKind = iota + 1 // C1
	ConstraintCheckpointSignal                         // C2
	ConstraintCyclicFlow                               // C3
	ConstraintCheckpointCoherence                      // C4
)

// Violation is one failed constraint check at a specific trace index.
type Violation struct {
	Kind       ConstraintKind
	TraceIndex int
	Severity   float64
}

// Result is the full scoring output for a trace.
type Result struct {
	Energy                float64
	ConstraintSatisfaction float64
	SignalStrength        float64
	LocalEnergies         []float64
	Valid                 bool
	FailureLocation       *Violation
	Checks                int
	Violations            []Violation
}

// Scorer evaluates beam traces against the signal-subspace contract.
type Scorer struct {
	cfg Config
}

// New constructs a Scorer with the given config.
func New(cfg Config) *Scorer {
	return &Scorer{cfg: cfg}
}

// Score evaluates trace in full (not partial-trace scaled).
func (s *Scorer) Score(trace types.BeamTrace) Result {
	timer := logging.StartTimer(logging.CategoryScorer, "Score")
	defer timer.Stop()
	return s.score(trace, 1.0)
}

// ScorePartial evaluates a partial (in-progress) trace, scaling energy
// by min(1, length/10) so short honest traces are not penalized.
func (s *Scorer) ScorePartial(trace types.BeamTrace) Result {
	timer := logging.StartTimer(logging.CategoryScorer, "ScorePartial")
	defer timer.Stop()
	scale := math.Min(1, float64(len(trace.Beams))/10)
	return s.score(trace, scale)
}

func (s *Scorer) score(trace types.BeamTrace, energyScale float64) Result {
	if len(trace.Beams) == 0 {
		logging.ScorerDebug("score: empty trace, energy=1 valid=false failure@0")
		failure := &Violation{Kind: ConstraintChannelBalance, TraceIndex: 0, Severity: 1}
		return Result{
			Energy:          1,
			Valid:           false,
			FailureLocation: failure,
			Violations:      []Violation{*failure},
			Checks:          1,
		}
	}

	subspace := computeSubspace(trace.Beams, s.cfg.SubspaceRank)

	violations, checks := s.checkConstraints(trace.Beams)
	constraintSatisfaction := 1.0
	if checks > 0 {
		constraintSatisfaction = 1 - float64(len(violations))/float64(checks)
	}

	localEnergies := computeLocalEnergies(trace.Beams, subspace, s.cfg.SacredFactor)
	meanLocal := mean(localEnergies)

	energy := 0.4*(1-subspace.strength) + 0.4*(1-constraintSatisfaction) + 0.2*meanLocal
	energy = clamp01(energy) * energyScale

	valid := energy < 0.5 && constraintSatisfaction > 0.5

	var failure *Violation
	if len(violations) > 0 {
		failure = worstViolation(violations)
	}

	logging.ScorerDebug("score: energy=%.4f strength=%.4f constraint_satisfaction=%.4f violations=%d valid=%v",
		energy, subspace.strength, constraintSatisfaction, len(violations), valid)

	return Result{
		Energy:                 energy,
		ConstraintSatisfaction: constraintSatisfaction,
		SignalStrength:         subspace.strength,
		LocalEnergies:          localEnergies,
		Valid:                  valid,
		FailureLocation:        failure,
		Checks:                 checks,
		Violations:             violations,
	}
}

func countCheckpoints(beams []types.Beam) int {
	n := 0
	for _, b := range beams {
		if b.Position.IsSacred() {
			n++
		}
	}
	return n
}

func worstViolation(violations []Violation) *Violation {
	worst := violations[0]
	for _, v := range violations[1:] {
		if v.Severity > worst.Severity ||
			(v.Severity == worst.Severity && v.TraceIndex < worst.TraceIndex) ||
			(v.Severity == worst.Severity && v.TraceIndex == worst.TraceIndex && v.Kind < worst.Kind) {
			worst = v
		}
	}
	return &worst
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

