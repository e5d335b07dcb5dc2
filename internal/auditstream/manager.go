package auditstream

import "sync"

// Config bounds a Manager's behavior across all streams it owns.
type Config struct {
	EnablePersistence  bool   `yaml:"enable_persistence"`
	PersistenceDir     string `yaml:"persistence_dir"`
	MaxEventsPerStream int    `yaml:"max_events_per_stream"`
	MaxStreams         int    `yaml:"max_streams"` // S_max
}

// DefaultConfig mirrors the original audit manager's defaults.
func DefaultConfig() Config {
	return Config{
		EnablePersistence:  false,
		MaxEventsPerStream: DefaultMaxEvents,
		MaxStreams:         1000,
	}
}

// Manager owns one Stream per session, evicting the oldest stream when
// MaxStreams is exceeded. Eviction follows creation order (tracked in
// order); looking up an existing stream does not change its place.
type Manager struct {
	mu      sync.Mutex
	streams map[string]*Stream
	order   []string // insertion order, used to evict the oldest stream
	config  Config
}

// NewManager constructs a Manager with the given config.
func NewManager(cfg Config) *Manager {
	return &Manager{
		streams: make(map[string]*Stream),
		config:  cfg,
	}
}

// Stream returns the session's audit stream, creating it (and evicting
// the oldest stream if at capacity) if it does not yet exist.
func (m *Manager) Stream(sessionID string) *Stream {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.streams[sessionID]; ok {
		return s
	}

	if len(m.streams) >= m.config.MaxStreams && len(m.order) > 0 {
		oldest := m.order[0]
		m.order = m.order[1:]
		delete(m.streams, oldest)
	}

	s := NewStream(sessionID).WithMaxEvents(m.config.MaxEventsPerStream)
	if m.config.EnablePersistence {
		s = s.WithPersistence(m.config.PersistenceDir)
	}
	m.streams[sessionID] = s
	m.order = append(m.order, sessionID)
	return s
}

// Summaries returns a summary for every stream currently held.
func (m *Manager) Summaries() []Summary {
	m.mu.Lock()
	streams := make([]*Stream, 0, len(m.streams))
	for _, s := range m.streams {
		streams = append(streams, s)
	}
	m.mu.Unlock()

	out := make([]Summary, 0, len(streams))
	for _, s := range streams {
		out = append(out, s.Summary())
	}
	return out
}

// GlobalStats rolls up every stream's summary into a single aggregate.
func (m *Manager) GlobalStats() GlobalStats {
	summaries := m.Summaries()

	stats := GlobalStats{TotalStreams: len(summaries)}
	for _, s := range summaries {
		stats.TotalEvents += s.TotalEvents
		stats.TotalLatencyMs += s.PerformanceSummary.TotalLatencyMs
		stats.TotalTokensGenerated += s.PerformanceSummary.TotalTokens
	}
	if stats.TotalEvents > 0 {
		stats.AvgLatencyPerEvent = float64(stats.TotalLatencyMs) / float64(stats.TotalEvents)
	}
	return stats
}
