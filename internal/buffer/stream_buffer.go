package buffer

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const DefaultCapacity = 1000

// Stats describes the current contents of one StreamBuffer.
type Stats struct {
	TotalSamples   int        `json:"total_samples"`
	UniqueUsers    int        `json:"unique_users"`
	UniqueSessions int        `json:"unique_sessions"`
	Oldest         *time.Time `json:"oldest_timestamp"`
	Newest         *time.Time `json:"newest_timestamp"`
	Capacity       int        `json:"buffer_capacity"`
	UsagePercent   float64    `json:"buffer_usage_percent"`
	Evicted        uint64     `json:"evicted"`
}

// StreamBuffer is a fixed-capacity ring of the most recent records of one
// session. Appends past capacity silently evict the oldest record.
type StreamBuffer struct {
	mu       sync.RWMutex
	items    []Record
	capacity int
	size     int
	head     int // next write position
	evicted  uint64
}

func NewStreamBuffer(capacity int) *StreamBuffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &StreamBuffer{
		items:    make([]Record, capacity),
		capacity: capacity,
	}
}

// at returns the i-th oldest record. Caller holds the lock.
func (b *StreamBuffer) at(i int) Record {
	return b.items[(b.head-b.size+i+b.capacity)%b.capacity]
}

// Append stores r and reports whether an older record was evicted.
func (b *StreamBuffer) Append(r Record) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.items[b.head] = r
	b.head = (b.head + 1) % b.capacity
	if b.size == b.capacity {
		b.evicted++
		return true
	}
	b.size++
	return false
}

func (b *StreamBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

func (b *StreamBuffer) Capacity() int { return b.capacity }

// Latest returns the newest record, restricted to userID when it is not empty.
func (b *StreamBuffer) Latest(userID string) (Record, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for i := b.size - 1; i >= 0; i-- {
		r := b.at(i)
		if userID == "" || r.UserID == userID {
			return r, true
		}
	}
	return Record{}, false
}

// LastN returns up to n records newest first. Empty userID or kind match
// everything.
func (b *StreamBuffer) LastN(n int, userID string, kind Kind) []Record {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if n <= 0 {
		return nil
	}
	out := make([]Record, 0, min(n, b.size))
	for i := b.size - 1; i >= 0 && len(out) < n; i-- {
		r := b.at(i)
		if userID != "" && r.UserID != userID {
			continue
		}
		if kind != "" && r.Kind != kind {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Range returns the records with start <= timestamp <= end, oldest first.
func (b *StreamBuffer) Range(start, end time.Time, userID string) []Record {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []Record
	for i := 0; i < b.size; i++ {
		r := b.at(i)
		if r.Timestamp.Before(start) || r.Timestamp.After(end) {
			continue
		}
		if userID != "" && r.UserID != userID {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Clear drops every record, or only the records of userID when it is not
// empty. Remaining records keep their order.
func (b *StreamBuffer) Clear(userID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if userID == "" {
		b.items = make([]Record, b.capacity)
		b.size, b.head = 0, 0
		return
	}

	kept := make([]Record, b.capacity)
	n := 0
	for i := 0; i < b.size; i++ {
		r := b.at(i)
		if r.UserID != userID {
			kept[n] = r
			n++
		}
	}
	b.items = kept
	b.size = n
	b.head = n % b.capacity
}

func (b *StreamBuffer) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	st := Stats{
		TotalSamples: b.size,
		Capacity:     b.capacity,
		UsagePercent: float64(b.size) / float64(b.capacity) * 100,
		Evicted:      b.evicted,
	}
	if b.size == 0 {
		return st
	}

	users := make(map[string]struct{})
	sessions := make(map[uuid.UUID]struct{})
	for i := 0; i < b.size; i++ {
		r := b.at(i)
		users[r.UserID] = struct{}{}
		sessions[r.SessionID] = struct{}{}
	}
	oldest := b.at(0).Timestamp
	newest := b.at(b.size - 1).Timestamp
	st.UniqueUsers = len(users)
	st.UniqueSessions = len(sessions)
	st.Oldest = &oldest
	st.Newest = &newest
	return st
}
