package auditstream

import (
	"bufio"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordEventAssignsIDsAndOrder(t *testing.T) {
	s := NewStream("sess-1")

	e1, err := s.RecordEvent(EventSessionStarted, SeverityInfo, "session started")
	require.NoError(t, err)
	e2, err := s.RecordEvent(EventCheckpointReached, SeverityInfo, "checkpoint")
	require.NoError(t, err)

	assert.NotEqual(t, e1.EventID, e2.EventID)
	events := s.Events()
	require.Len(t, events, 2)
	assert.Equal(t, EventSessionStarted, events[0].EventType)
	assert.Equal(t, EventCheckpointReached, events[1].EventType)
}

func TestStreamEvictsOldestWhenOverCapacity(t *testing.T) {
	s := NewStream("sess-2").WithMaxEvents(3)

	for i := 0; i < 5; i++ {
		_, err := s.RecordEvent(EventGenerationCompleted, SeverityInfo, "step")
		require.NoError(t, err)
	}

	events := s.Events()
	assert.Len(t, events, 3)
}

func TestStreamPersistsToJSONL(t *testing.T) {
	dir := t.TempDir()
	s := NewStream("sess-3").WithPersistence(dir)

	_, err := s.RecordEvent(EventGenerationStarted, SeverityInfo, "go", WithPerformance(PerformanceMetrics{LatencyMs: 120}))
	require.NoError(t, err)

	path := filepath.Join(dir, "audit_sess-3.jsonl")
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lines := 0
	for scanner.Scan() {
		lines++
	}
	assert.Equal(t, 1, lines)
}

func TestSummaryAggregatesPerformance(t *testing.T) {
	s := NewStream("sess-4")
	_, _ = s.RecordEvent(EventGenerationCompleted, SeverityInfo, "a", WithPerformance(PerformanceMetrics{LatencyMs: 100}))
	_, _ = s.RecordEvent(EventGenerationCompleted, SeverityInfo, "b", WithPerformance(PerformanceMetrics{LatencyMs: 200}))

	summary := s.Summary()
	assert.Equal(t, 2, summary.TotalEvents)
	assert.Equal(t, int64(300), summary.PerformanceSummary.TotalLatencyMs)
	assert.Equal(t, 150.0, summary.PerformanceSummary.AvgLatencyMs)
	assert.NotNil(t, summary.TimeRange)
}

func TestManagerEvictsOldestStreamAtCapacity(t *testing.T) {
	mgr := NewManager(Config{MaxStreams: 2, MaxEventsPerStream: DefaultMaxEvents})

	mgr.Stream("a")
	mgr.Stream("b")
	mgr.Stream("c") // evicts "a"

	mgr.mu.Lock()
	_, hasA := mgr.streams["a"]
	_, hasC := mgr.streams["c"]
	mgr.mu.Unlock()

	assert.False(t, hasA)
	assert.True(t, hasC)
}

func TestManagerGlobalStats(t *testing.T) {
	mgr := NewManager(DefaultConfig())
	s1 := mgr.Stream("x")
	s2 := mgr.Stream("y")
	_, _ = s1.RecordEvent(EventGenerationCompleted, SeverityInfo, "a", WithPerformance(PerformanceMetrics{LatencyMs: 50}))
	_, _ = s2.RecordEvent(EventGenerationCompleted, SeverityInfo, "b", WithPerformance(PerformanceMetrics{LatencyMs: 150}))

	stats := mgr.GlobalStats()
	assert.Equal(t, 2, stats.TotalStreams)
	assert.Equal(t, 2, stats.TotalEvents)
	assert.Equal(t, int64(200), stats.TotalLatencyMs)
}
