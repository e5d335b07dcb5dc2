package auditstream

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"ragrt/internal/logging"
	"ragrt/internal/types"
)

// DefaultMaxEvents is N_max: the number of events retained in memory per
// stream before the oldest are dropped.
const DefaultMaxEvents = 10000

// Stream is a single session's audit trail. Events are pushed serially
// (spec.md's concurrency model requires per-session audit pushes to be
// serialized); the mutex here is that serialization point.
type Stream struct {
	mu sync.Mutex

	sessionID          string
	events             []Event
	maxEvents          int
	enablePersistence  bool
	persistenceDir     string
}

// NewStream creates an in-memory-only audit stream for a session.
func NewStream(sessionID string) *Stream {
	return &Stream{
		sessionID: sessionID,
		maxEvents: DefaultMaxEvents,
	}
}

// WithPersistence enables append-only JSONL persistence under dir,
// following the layout named in spec.md §6: one file per session, path
// audit_<session>.jsonl.
func (s *Stream) WithPersistence(dir string) *Stream {
	s.enablePersistence = dir != ""
	s.persistenceDir = dir
	return s
}

// WithMaxEvents overrides the in-memory retention bound.
func (s *Stream) WithMaxEvents(max int) *Stream {
	if max > 0 {
		s.maxEvents = max
	}
	return s
}

// RecordEvent appends a new event to the stream, evicting the oldest
// event(s) if the stream is at capacity, and persisting it if enabled.
func (s *Stream) RecordEvent(eventType EventType, severity Severity, message string, opts ...func(*Event)) (*Event, error) {
	evt := Event{
		EventID:   uuid.NewString(),
		SessionID: s.sessionID,
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Severity:  severity,
		Message:   message,
	}
	for _, opt := range opts {
		opt(&evt)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.events) >= s.maxEvents {
		removeCount := len(s.events) - s.maxEvents + 1
		s.events = s.events[removeCount:]
	}
	s.events = append(s.events, evt)

	if s.enablePersistence {
		if err := s.persistEvent(&evt); err != nil {
			logging.AuditError("failed to persist event %s for session %s: %v", evt.EventID, s.sessionID, err)
			return &evt, err
		}
	}

	return &evt, nil
}

func (s *Stream) persistEvent(evt *Event) error {
	if err := os.MkdirAll(s.persistenceDir, 0755); err != nil {
		return types.NewError(types.KindPersistence, "auditstream.persistEvent", "create directory", err)
	}
	path := filepath.Join(s.persistenceDir, fmt.Sprintf("audit_%s.jsonl", s.sessionID))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return types.NewError(types.KindPersistence, "auditstream.persistEvent", "open audit file", err)
	}
	defer f.Close()

	data, err := json.Marshal(evt)
	if err != nil {
		return types.NewError(types.KindPersistence, "auditstream.persistEvent", "marshal event", err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		return types.NewError(types.KindPersistence, "auditstream.persistEvent", "append event", err)
	}
	return nil
}

// Events returns a snapshot of the events currently retained in memory.
func (s *Stream) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// Summary aggregates the in-memory events into counts and performance
// rollups.
func (s *Stream) Summary() Summary {
	s.mu.Lock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	sessionID := s.sessionID
	s.mu.Unlock()

	eventCounts := make(map[EventType]int)
	severityCounts := make(map[Severity]int)
	perf := NewPerformanceSummary()

	for _, evt := range events {
		eventCounts[evt.EventType]++
		severityCounts[evt.Severity]++
		if evt.Performance != nil {
			perf.AddSample(evt.Performance)
		}
	}

	var timeRange *TimeRange
	if len(events) > 0 {
		timeRange = &TimeRange{Start: events[0].Timestamp, End: events[len(events)-1].Timestamp}
	}

	return Summary{
		SessionID:          sessionID,
		TotalEvents:        len(events),
		EventCounts:        eventCounts,
		SeverityCounts:     severityCounts,
		PerformanceSummary: perf,
		TimeRange:          timeRange,
	}
}

// WithMetadata attaches free-form metadata to an event being recorded.
func WithMetadata(metadata map[string]interface{}) func(*Event) {
	return func(e *Event) { e.Metadata = metadata }
}

// WithPerformance attaches performance metrics to an event.
func WithPerformance(p PerformanceMetrics) func(*Event) {
	return func(e *Event) { e.Performance = &p }
}

// WithController attaches controller step data to an event.
func WithController(c ControllerData) func(*Event) {
	return func(e *Event) { e.Controller = &c }
}

// WithContextData attaches context-assembly data to an event.
func WithContextData(c ContextData) func(*Event) {
	return func(e *Event) { e.Context = &c }
}

// WithSecurity attaches security data to an event.
func WithSecurity(sec SecurityData) func(*Event) {
	return func(e *Event) { e.Security = &sec }
}
