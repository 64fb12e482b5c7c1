package store

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"eeg-workload-be/internal/entity"

	"github.com/google/uuid"
)

// MemoryStore keeps everything in process memory. It backs the server when
// no database is configured and stands in for Postgres in tests.
type MemoryStore struct {
	mu          sync.RWMutex
	sessions    map[uuid.UUID]*entity.Session
	predictions []*entity.Prediction
	features    []*entity.FeatureVector
	samples     []*entity.StreamSample
	events      []*entity.Event
	nextID      int64
	closed      bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[uuid.UUID]*entity.Session)}
}

func (s *MemoryStore) CreateSession(ctx context.Context, session *entity.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if session.SessionId == uuid.Nil {
		session.SessionId = uuid.New()
	}
	if session.StartTime.IsZero() {
		session.StartTime = time.Now().UTC()
	}
	cp := *session
	s.sessions[cp.SessionId] = &cp
	return nil
}

func (s *MemoryStore) EndSession(ctx context.Context, id uuid.UUID, endTime time.Time, totalSamples int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}
	sess, ok := s.sessions[id]
	if !ok {
		return false, nil
	}
	end := endTime
	sess.EndTime = &end
	sess.TotalSamples = totalSamples
	return true, nil
}

func (s *MemoryStore) AddEvent(ctx context.Context, event *entity.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if event.EventId == uuid.Nil {
		event.EventId = uuid.New()
	}
	cp := *event
	s.events = append(s.events, &cp)
	return nil
}

func (s *MemoryStore) WritePredictions(ctx context.Context, rows []*entity.Prediction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	for _, r := range rows {
		cp := *r
		s.nextID++
		cp.Id = s.nextID
		s.predictions = append(s.predictions, &cp)
	}
	return nil
}

func (s *MemoryStore) WriteFeatureVectors(ctx context.Context, rows []*entity.FeatureVector) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	for _, r := range rows {
		cp := *r
		s.nextID++
		cp.Id = s.nextID
		s.features = append(s.features, &cp)
	}
	return nil
}

func (s *MemoryStore) WriteStreamSamples(ctx context.Context, rows []*entity.StreamSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	for _, r := range rows {
		cp := *r
		s.nextID++
		cp.Id = s.nextID
		s.samples = append(s.samples, &cp)
	}
	return nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Counts returns the number of stored predictions, feature vectors and
// stream samples.
func (s *MemoryStore) Counts() (predictions, features, samples int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.predictions), len(s.features), len(s.samples)
}

func (s *MemoryStore) FindSession(ctx context.Context, id uuid.UUID) (*entity.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	cp := *sess
	return &cp, nil
}

func (s *MemoryStore) FindOpenSession(ctx context.Context, userID string) (*entity.Session, error) {
	list, err := s.ListSessions(ctx, SessionQuery{UserID: userID, ActiveOnly: true, Limit: 1})
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return list[0], nil
}

func (s *MemoryStore) ListSessions(ctx context.Context, q SessionQuery) ([]*entity.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*entity.Session
	for _, sess := range s.sessions {
		if q.UserID != "" && sess.UserId != q.UserID {
			continue
		}
		if q.ActiveOnly && !sess.IsOpen() {
			continue
		}
		cp := *sess
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *MemoryStore) UpdateSessionNotes(ctx context.Context, id uuid.UUID, notes string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return false, nil
	}
	n := notes
	sess.Notes = &n
	return true, nil
}

func (s *MemoryStore) Predictions(ctx context.Context, q PredictionQuery) ([]*entity.Prediction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*entity.Prediction
	for _, p := range s.predictions {
		if q.UserID != "" && p.UserId != q.UserID {
			continue
		}
		if q.SessionID != uuid.Nil && p.SessionId != q.SessionID {
			continue
		}
		if !q.Start.IsZero() && p.Timestamp.Before(q.Start) {
			continue
		}
		if !q.End.IsZero() && p.Timestamp.After(q.End) {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if q.NewestFirst {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *MemoryStore) Events(ctx context.Context, q EventQuery) ([]*entity.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*entity.Event
	for _, e := range s.events {
		if q.SessionID != uuid.Nil && e.SessionId != q.SessionID {
			continue
		}
		if q.UserID != "" {
			sess, ok := s.sessions[e.SessionId]
			if !ok || sess.UserId != q.UserID {
				continue
			}
		}
		cp := *e
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *MemoryStore) NearestFeatures(ctx context.Context, vector []float32, limit int) ([]*entity.FeatureVector, error) {
	if limit <= 0 {
		limit = 5
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		fv   *entity.FeatureVector
		dist float64
	}
	var all []scored
	for _, fv := range s.features {
		if len(fv.BandVector) != len(vector) {
			continue
		}
		var d float64
		for i, v := range fv.BandVector {
			diff := float64(v - vector[i])
			d += diff * diff
		}
		all = append(all, scored{fv: fv, dist: math.Sqrt(d)})
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].dist < all[j].dist })
	if len(all) > limit {
		all = all[:limit]
	}
	out := make([]*entity.FeatureVector, len(all))
	for i, sc := range all {
		cp := *sc.fv
		out[i] = &cp
	}
	return out, nil
}
