package controller

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragrt/internal/auditstream"
	"ragrt/internal/scorer"
	"ragrt/internal/types"
)

func newTestController() *Controller {
	return New(DefaultConfig(), scorer.New(scorer.DefaultConfig()), auditstream.NewManager(auditstream.DefaultConfig()))
}

func TestStepIncrementsCycleCounter(t *testing.T) {
	c := newTestController()
	ctx := context.Background()

	_, err := c.Step(ctx, StepInput{SessionID: "s1", UserText: "hi", ModelOutput: "hello there"})
	require.NoError(t, err)
	_, err = c.Step(ctx, StepInput{SessionID: "s1", UserText: "hi again", ModelOutput: "hello again"})
	require.NoError(t, err)

	state := c.State("s1")
	assert.Equal(t, 2, state.CycleCounter)
}

func TestMissingSessionCreatedSilently(t *testing.T) {
	c := newTestController()
	ctx := context.Background()

	out, err := c.Step(ctx, StepInput{SessionID: "brand-new", UserText: "q", ModelOutput: "a"})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, int(out.Position), 1)
	assert.LessOrEqual(t, int(out.Position), 9)
}

func TestCheckpointCompressesContext(t *testing.T) {
	c := newTestController()
	ctx := context.Background()

	var lastCompressed string
	for i := 0; i < 50; i++ {
		out, err := c.Step(ctx, StepInput{SessionID: "s2", UserText: "question", ModelOutput: fmt.Sprintf("answer text %d", i)})
		require.NoError(t, err)
		if out.Checkpoint {
			lastCompressed = out.CompressedContext
		}
	}
	assert.NotEmpty(t, lastCompressed)
}

func TestCompressedContextCapped(t *testing.T) {
	existing := strings.Repeat("x", 4000)
	result := compress(existing, "q", "a", 1, 3, 4000)
	assert.LessOrEqual(t, len([]rune(result)), 4000)
}

func TestBuildContextSkipsEmptySections(t *testing.T) {
	ctxStr := BuildContext("", "spatial info", "")
	assert.Equal(t, "[SPATIAL]\nspatial info", ctxStr)

	full := BuildContext("state", "spatial", "retrieved")
	assert.Equal(t, "[STATE]\nstate\n\n[SPATIAL]\nspatial\n\n[RETRIEVED]\nretrieved", full)
}

func TestTrailRecordsCompressionAndInterventionAtCheckpoints(t *testing.T) {
	c := newTestController()
	ctx := context.Background()

	var sawCheckpointRecord bool
	for i := 0; i < 50; i++ {
		out, err := c.Step(ctx, StepInput{SessionID: "s3", UserText: "question", ModelOutput: fmt.Sprintf("answer text %d", i)})
		require.NoError(t, err)
		if out.Checkpoint {
			sawCheckpointRecord = true
			state := c.State("s3")
			last := state.Trail[len(state.Trail)-1]
			assert.True(t, last.CompressionApplied)
			assert.Equal(t, types.InterventionCheckpoint, last.InterventionType)
		}
	}
	require.True(t, sawCheckpointRecord, "expected at least one checkpoint step in 50 cycles")
}

func TestTrailRecordsNoInterventionOffCheckpoint(t *testing.T) {
	c := newTestController()
	ctx := context.Background()

	out, err := c.Step(ctx, StepInput{SessionID: "s4", UserText: "q", ModelOutput: "a"})
	require.NoError(t, err)
	if !out.Checkpoint {
		state := c.State("s4")
		last := state.Trail[len(state.Trail)-1]
		assert.False(t, last.CompressionApplied)
		assert.Equal(t, types.InterventionNone, last.InterventionType)
	}
}

func TestDerivePositionIsPureAndInRange(t *testing.T) {
	p1 := derivePosition("hello world")
	p2 := derivePosition("hello world")
	assert.Equal(t, p1, p2)
	assert.GreaterOrEqual(t, int(p1), 1)
	assert.LessOrEqual(t, int(p1), 9)
}
