package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSacredPositions(t *testing.T) {
	assert.True(t, CyclePosition(3).IsSacred())
	assert.True(t, CyclePosition(6).IsSacred())
	assert.True(t, CyclePosition(9).IsSacred())
	assert.False(t, CyclePosition(1).IsSacred())
	assert.False(t, CyclePosition(5).IsSacred())
}

func TestDoublingFlowSequence(t *testing.T) {
	assert.Equal(t, [6]int{1, 2, 4, 8, 7, 5}, DoublingFlow)
}

func TestRuntimeErrorUnwrap(t *testing.T) {
	cause := assertCause{}
	err := NewError(KindUpstream, "generator.Generate", "timed out", cause)
	assert.True(t, IsKind(err, KindUpstream))
	assert.False(t, IsKind(err, KindStorage))
	assert.ErrorIs(t, err, cause)
}

type assertCause struct{}

func (assertCause) Error() string { return "boom" }
