package buffer

import (
	"sort"
	"sync"
	"time"

	"eeg-workload-be/internal/metrics"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// retiredTTL is how long a removed session keeps rejecting appends. Frames
// already in flight when a session ends arrive well within it.
const retiredTTL = time.Hour

// Manager owns one StreamBuffer per live session. The map lock is separate
// from the per-buffer locks, so appends to different sessions never contend.
type Manager struct {
	mu       sync.RWMutex
	buffers  map[uuid.UUID]*StreamBuffer
	capacity int
	metrics  *metrics.Metrics
	retired  *cache.Cache
}

func NewManager(capacity int, m *metrics.Metrics) *Manager {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Manager{
		buffers:  make(map[uuid.UUID]*StreamBuffer),
		capacity: capacity,
		metrics:  m,
		retired:  cache.New(retiredTTL, 10*time.Minute),
	}
}

func (m *Manager) Get(sessionID uuid.UUID) (*StreamBuffer, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.buffers[sessionID]
	return b, ok
}

func (m *Manager) GetOrCreate(sessionID uuid.UUID) *StreamBuffer {
	if b, ok := m.Get(sessionID); ok {
		return b
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.buffers[sessionID]; ok {
		return b
	}
	b := NewStreamBuffer(m.capacity)
	m.buffers[sessionID] = b
	m.metrics.BufferSessions(len(m.buffers))
	return b
}

// Append stores r in its session's buffer, creating the buffer on demand.
// Records of a removed session are dropped and Append reports false.
func (m *Manager) Append(r Record) bool {
	if m.Retired(r.SessionID) {
		return false
	}
	evicted := m.GetOrCreate(r.SessionID).Append(r)
	m.metrics.BufferAppended(evicted)
	return true
}

// Remove retires a session's buffer. Later appends for the session are
// dropped instead of re-creating it. Unknown sessions are ignored.
func (m *Manager) Remove(sessionID uuid.UUID) {
	m.retired.Set(sessionID.String(), struct{}{}, cache.DefaultExpiration)

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.buffers, sessionID)
	m.metrics.BufferSessions(len(m.buffers))
}

func (m *Manager) Retired(sessionID uuid.UUID) bool {
	_, ok := m.retired.Get(sessionID.String())
	return ok
}

// ActiveSessions returns the ids of sessions with a buffer, sorted for
// stable output.
func (m *Manager) ActiveSessions() []uuid.UUID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]uuid.UUID, 0, len(m.buffers))
	for id := range m.buffers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

func (m *Manager) AllStats() map[uuid.UUID]Stats {
	m.mu.RLock()
	buffers := make(map[uuid.UUID]*StreamBuffer, len(m.buffers))
	for id, b := range m.buffers {
		buffers[id] = b
	}
	m.mu.RUnlock()

	out := make(map[uuid.UUID]Stats, len(buffers))
	for id, b := range buffers {
		out[id] = b.Stats()
	}
	return out
}

// ClearAll empties every buffer but keeps them registered.
func (m *Manager) ClearAll() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, b := range m.buffers {
		b.Clear("")
	}
}

// Latest returns the newest record of the given kind for userID across all
// session buffers.
func (m *Manager) Latest(userID string, kind Kind) (Record, bool) {
	var (
		best  Record
		found bool
	)
	for _, id := range m.ActiveSessions() {
		b, ok := m.Get(id)
		if !ok {
			continue
		}
		recs := b.LastN(1, userID, kind)
		if len(recs) == 0 {
			continue
		}
		if !found || recs[0].Timestamp.After(best.Timestamp) {
			best, found = recs[0], true
		}
	}
	return best, found
}

// LastN merges the newest n matching records across all session buffers,
// newest first.
func (m *Manager) LastN(n int, userID string, kind Kind) []Record {
	if n <= 0 {
		return nil
	}
	var all []Record
	for _, id := range m.ActiveSessions() {
		if b, ok := m.Get(id); ok {
			all = append(all, b.LastN(n, userID, kind)...)
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Timestamp.After(all[j].Timestamp) })
	if len(all) > n {
		all = all[:n]
	}
	return all
}
