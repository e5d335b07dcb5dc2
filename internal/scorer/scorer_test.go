package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragrt/internal/types"
)

func uniformBeam(pos types.CyclePosition, confidence float64) types.Beam {
	var slots [9]float64
	for i := range slots {
		slots[i] = 1.0 / 9.0
	}
	return types.Beam{Slots: slots, Ethos: 5, Logos: 5, Pathos: 5, Position: pos, Confidence: confidence}
}

func TestScoreHealthyTraceIsValid(t *testing.T) {
	s := New(DefaultConfig())
	trace := types.BeamTrace{Beams: []types.Beam{
		uniformBeam(1, 0.8),
		uniformBeam(2, 0.8),
		uniformBeam(4, 0.8),
		uniformBeam(8, 0.8),
		uniformBeam(7, 0.8),
		uniformBeam(5, 0.8),
		uniformBeam(3, 0.8),
	}}

	result := s.Score(trace)
	assert.GreaterOrEqual(t, result.ConstraintSatisfaction, 0.9)
	assert.Less(t, result.Energy, 0.6)
}

func TestChannelBalanceViolationDetected(t *testing.T) {
	s := New(DefaultConfig())
	beam := types.Beam{Ethos: 0.1, Logos: 0.1, Pathos: 9.8, Position: 1, Confidence: 0.9}
	for i := range beam.Slots {
		beam.Slots[i] = 1.0 / 9.0
	}
	trace := types.BeamTrace{Beams: []types.Beam{beam}}

	result := s.Score(trace)
	require.NotEmpty(t, result.Violations)
	assert.Equal(t, ConstraintChannelBalance, result.Violations[0].Kind)
}

func TestCheckpointSignalViolationBelowSigmaMin(t *testing.T) {
	s := New(DefaultConfig())
	trace := types.BeamTrace{Beams: []types.Beam{uniformBeam(3, 0.1)}}

	result := s.Score(trace)
	require.NotEmpty(t, result.Violations)
	assert.Equal(t, ConstraintCheckpointSignal, result.Violations[0].Kind)
}

func TestCyclicFlowViolationOnBadTransition(t *testing.T) {
	s := New(DefaultConfig())
	trace := types.BeamTrace{Beams: []types.Beam{uniformBeam(1, 0.8), uniformBeam(7, 0.8)}}

	result := s.Score(trace)
	found := false
	for _, v := range result.Violations {
		if v.Kind == ConstraintCyclicFlow {
			found = true
		}
	}
	assert.True(t, found)
}

func TestPartialTraceScalesEnergyDown(t *testing.T) {
	s := New(DefaultConfig())
	trace := types.BeamTrace{Beams: []types.Beam{uniformBeam(1, 0.5)}}

	full := s.Score(trace)
	partial := s.ScorePartial(trace)
	assert.LessOrEqual(t, partial.Energy, full.Energy)
}

func TestInterveneBoostsCheckpointConfidence(t *testing.T) {
	s := New(DefaultConfig())
	trace := types.BeamTrace{Beams: []types.Beam{
		uniformBeam(1, 0.5),
		uniformBeam(2, 0.5),
		uniformBeam(3, 0.5),
	}}
	before := trace.Beams[2].Confidence

	s.Intervene(&trace, 1.5)

	assert.GreaterOrEqual(t, trace.Beams[2].Confidence, before)
}

func TestScoreEmptyTraceIsInvalidWithMaxEnergy(t *testing.T) {
	s := New(DefaultConfig())
	trace := types.BeamTrace{}

	result := s.Score(trace)
	assert.Equal(t, 1.0, result.Energy)
	assert.False(t, result.Valid)
	require.NotNil(t, result.FailureLocation)
	assert.Equal(t, 0, result.FailureLocation.TraceIndex)

	partial := s.ScorePartial(trace)
	assert.Equal(t, 1.0, partial.Energy)
	assert.False(t, partial.Valid)
}

func TestComparePropagationReturnsBothStrengths(t *testing.T) {
	s := New(DefaultConfig())
	initial := []types.Beam{uniformBeam(1, 0.7)}

	vortexStrength, linearStrength := s.ComparePropagation(initial, 12)
	assert.GreaterOrEqual(t, vortexStrength, 0.0)
	assert.GreaterOrEqual(t, linearStrength, 0.0)
}
