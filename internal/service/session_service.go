package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"eeg-workload-be/internal/buffer"
	"eeg-workload-be/internal/dto"
	"eeg-workload-be/internal/entity"
	"eeg-workload-be/internal/pkg/logger"
	"eeg-workload-be/internal/repository/memory"
	"eeg-workload-be/internal/store"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

type ISessionService interface {
	// ResolveSession returns the user's open session, creating one when
	// there is none.
	ResolveSession(ctx context.Context, userId string, deviceInfo map[string]interface{}) (uuid.UUID, error)
	// IsCurrent reports whether sessionId is still the user's open session.
	// It turns false once the session is ended.
	IsCurrent(userId string, sessionId uuid.UUID) bool
	RecordSamples(sessionId uuid.UUID, n int64)
	Create(ctx context.Context, req *dto.CreateSessionRequest) (*dto.SessionResponse, error)
	End(ctx context.Context, req *dto.EndSessionRequest) (*dto.SessionResponse, error)
	List(ctx context.Context, req *dto.ListSessionsRequest) ([]*dto.SessionResponse, error)
	UpdateNotes(ctx context.Context, req *dto.UpdateSessionNotesRequest) (*dto.UpdateSessionNotesResponse, error)
	AddEvent(ctx context.Context, req *dto.AddEventRequest) (*dto.EventResponse, error)
	Events(ctx context.Context, req *dto.ListEventsRequest) ([]*dto.EventResponse, error)
	Predictions(ctx context.Context, sessionId uuid.UUID, limit int) ([]*dto.PredictionResponse, error)
	Summary(ctx context.Context, sessionId uuid.UUID) (*dto.SessionSummaryResponse, error)
	Export(ctx context.Context, sessionId uuid.UUID) (*dto.SessionExportResponse, error)
}

type sessionService struct {
	persistence *PersistenceService
	reader      store.Reader
	buffers     *buffer.Manager
	active      *memory.ActiveSessionRepository
	logger      logger.ILogger

	resolve singleflight.Group
	// opening serializes session creation so a user never holds two open
	// sessions.
	opening sync.Mutex

	countsMu sync.Mutex
	counts   map[uuid.UUID]int64
}

func NewSessionService(
	persistence *PersistenceService,
	reader store.Reader,
	buffers *buffer.Manager,
	active *memory.ActiveSessionRepository,
	log logger.ILogger,
) ISessionService {
	return &sessionService{
		persistence: persistence,
		reader:      reader,
		buffers:     buffers,
		active:      active,
		logger:      log,
		counts:      make(map[uuid.UUID]int64),
	}
}

func (s *sessionService) ResolveSession(ctx context.Context, userId string, deviceInfo map[string]interface{}) (uuid.UUID, error) {
	if id, ok := s.active.Get(userId); ok {
		return id, nil
	}

	// Concurrent first connections for one user collapse into one lookup.
	v, err, _ := s.resolve.Do(userId, func() (interface{}, error) {
		s.opening.Lock()
		defer s.opening.Unlock()
		if id, ok := s.active.Get(userId); ok {
			return id, nil
		}

		open, err := s.reader.FindOpenSession(ctx, userId)
		if err != nil {
			return uuid.Nil, fmt.Errorf("find open session: %w", err)
		}
		if open != nil {
			s.active.Save(userId, open.SessionId)
			s.seedCount(open.SessionId, open.TotalSamples)
			s.logger.Info("SESSION", "Resumed open session", map[string]interface{}{
				"user_id":    userId,
				"session_id": open.SessionId.String(),
			})
			return open.SessionId, nil
		}

		session := &entity.Session{
			SessionId:  uuid.New(),
			UserId:     userId,
			StartTime:  time.Now().UTC(),
			DeviceInfo: deviceInfo,
		}
		if err := s.persistence.CreateSession(ctx, session); err != nil {
			return uuid.Nil, err
		}
		s.seedCount(session.SessionId, 0)
		s.active.Save(userId, session.SessionId)
		s.logger.Info("SESSION", "Created session", map[string]interface{}{
			"user_id":    userId,
			"session_id": session.SessionId.String(),
		})
		return session.SessionId, nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	return v.(uuid.UUID), nil
}

func (s *sessionService) IsCurrent(userId string, sessionId uuid.UUID) bool {
	id, ok := s.active.Get(userId)
	return ok && id == sessionId
}

func (s *sessionService) seedCount(id uuid.UUID, n int64) {
	s.countsMu.Lock()
	defer s.countsMu.Unlock()
	if _, ok := s.counts[id]; !ok {
		s.counts[id] = n
	}
}

// RecordSamples adds to the running count of an open session. Counts for
// sessions already ended are ignored.
func (s *sessionService) RecordSamples(sessionId uuid.UUID, n int64) {
	s.countsMu.Lock()
	defer s.countsMu.Unlock()
	if _, ok := s.counts[sessionId]; ok {
		s.counts[sessionId] += n
	}
}

func (s *sessionService) takeCount(id uuid.UUID) (int64, bool) {
	s.countsMu.Lock()
	defer s.countsMu.Unlock()
	n, ok := s.counts[id]
	delete(s.counts, id)
	return n, ok
}

func (s *sessionService) Create(ctx context.Context, req *dto.CreateSessionRequest) (*dto.SessionResponse, error) {
	s.opening.Lock()
	defer s.opening.Unlock()

	if _, ok := s.active.Get(req.UserId); ok {
		return nil, ErrSessionAlreadyOpen
	}
	open, err := s.reader.FindOpenSession(ctx, req.UserId)
	if err != nil {
		return nil, err
	}
	if open != nil {
		return nil, ErrSessionAlreadyOpen
	}

	session := &entity.Session{
		SessionId:  uuid.New(),
		UserId:     req.UserId,
		StartTime:  time.Now().UTC(),
		DeviceInfo: req.DeviceInfo,
		Notes:      req.Notes,
	}
	if err := s.persistence.CreateSession(ctx, session); err != nil {
		return nil, err
	}
	s.seedCount(session.SessionId, 0)
	s.active.Save(req.UserId, session.SessionId)

	s.logger.Info("SESSION", "Created session", map[string]interface{}{
		"user_id":    req.UserId,
		"session_id": session.SessionId.String(),
	})
	return toSessionResponse(session, time.Now()), nil
}

func (s *sessionService) End(ctx context.Context, req *dto.EndSessionRequest) (*dto.SessionResponse, error) {
	session, err := s.reader.FindSession(ctx, req.SessionId)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	if !session.IsOpen() {
		return nil, ErrSessionEnded
	}

	if req.Notes != nil && *req.Notes != "" {
		notes := *req.Notes
		if session.Notes != nil && *session.Notes != "" {
			notes = *session.Notes + "\n\nClosing notes: " + notes
		}
		if _, err := s.reader.UpdateSessionNotes(ctx, session.SessionId, notes); err != nil {
			return nil, err
		}
		session.Notes = &notes
	}

	// Held until the row is closed so a concurrent resolve cannot resume
	// the session. Producers check the mapping before every frame.
	s.opening.Lock()
	defer s.opening.Unlock()
	s.active.DeleteSession(session.SessionId)
	s.buffers.Remove(session.SessionId)

	total, ok := s.takeCount(session.SessionId)
	if !ok {
		total = session.TotalSamples
	}
	end := time.Now().UTC()
	found, err := s.persistence.EndSession(ctx, session.SessionId, end, total)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrSessionNotFound
	}

	session.EndTime = &end
	session.TotalSamples = total
	s.logger.Info("SESSION", "Ended session", map[string]interface{}{
		"session_id":    session.SessionId.String(),
		"total_samples": total,
	})
	return toSessionResponse(session, end), nil
}

func (s *sessionService) List(ctx context.Context, req *dto.ListSessionsRequest) ([]*dto.SessionResponse, error) {
	limit := req.Limit
	if limit == 0 {
		limit = 10
	}
	sessions, err := s.reader.ListSessions(ctx, store.SessionQuery{
		UserID:     req.UserId,
		ActiveOnly: req.ActiveOnly,
		Limit:      limit,
	})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	result := make([]*dto.SessionResponse, 0, len(sessions))
	for _, session := range sessions {
		result = append(result, toSessionResponse(session, now))
	}
	return result, nil
}

func (s *sessionService) UpdateNotes(ctx context.Context, req *dto.UpdateSessionNotesRequest) (*dto.UpdateSessionNotesResponse, error) {
	session, err := s.reader.FindSession(ctx, req.SessionId)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	notes := req.Notes
	if req.Append && session.Notes != nil && *session.Notes != "" {
		notes = *session.Notes + "\n" + req.Notes
	}
	if _, err := s.reader.UpdateSessionNotes(ctx, session.SessionId, notes); err != nil {
		return nil, err
	}
	return &dto.UpdateSessionNotesResponse{SessionId: session.SessionId, Notes: &notes}, nil
}

func (s *sessionService) AddEvent(ctx context.Context, req *dto.AddEventRequest) (*dto.EventResponse, error) {
	var sessionId uuid.UUID
	switch {
	case req.SessionId != nil:
		session, err := s.reader.FindSession(ctx, *req.SessionId)
		if err != nil {
			return nil, err
		}
		if session == nil {
			return nil, ErrSessionNotFound
		}
		sessionId = session.SessionId
	case req.UserId != "":
		if id, ok := s.active.Get(req.UserId); ok {
			sessionId = id
			break
		}
		open, err := s.reader.FindOpenSession(ctx, req.UserId)
		if err != nil {
			return nil, err
		}
		if open == nil {
			return nil, ErrNoActiveSession
		}
		sessionId = open.SessionId
	default:
		return nil, ErrSessionRefRequired
	}

	event := &entity.Event{
		EventId:       uuid.New(),
		SessionId:     sessionId,
		Timestamp:     time.Now().UTC(),
		Label:         req.Label,
		Notes:         req.Notes,
		EventMetadata: req.Metadata,
	}
	if err := s.persistence.AddEvent(ctx, event); err != nil {
		return nil, err
	}

	s.logger.Info("SESSION", "Event annotated", map[string]interface{}{
		"session_id": sessionId.String(),
		"label":      req.Label,
	})
	return toEventResponse(event), nil
}

func (s *sessionService) Events(ctx context.Context, req *dto.ListEventsRequest) ([]*dto.EventResponse, error) {
	q := store.EventQuery{UserID: req.UserId, Limit: req.Limit}
	if q.Limit == 0 {
		q.Limit = 10
	}
	if req.SessionId != nil {
		q.SessionID = *req.SessionId
	}
	events, err := s.reader.Events(ctx, q)
	if err != nil {
		return nil, err
	}
	result := make([]*dto.EventResponse, 0, len(events))
	for _, e := range events {
		result = append(result, toEventResponse(e))
	}
	return result, nil
}

func (s *sessionService) Predictions(ctx context.Context, sessionId uuid.UUID, limit int) ([]*dto.PredictionResponse, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.reader.Predictions(ctx, store.PredictionQuery{
		SessionID:   sessionId,
		Limit:       limit,
		NewestFirst: true,
	})
	if err != nil {
		return nil, err
	}
	return toPredictionResponses(rows), nil
}

func (s *sessionService) Summary(ctx context.Context, sessionId uuid.UUID) (*dto.SessionSummaryResponse, error) {
	session, err := s.reader.FindSession(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	preds, err := s.reader.Predictions(ctx, store.PredictionQuery{SessionID: sessionId})
	if err != nil {
		return nil, err
	}
	events, err := s.reader.Events(ctx, store.EventQuery{SessionID: sessionId})
	if err != nil {
		return nil, err
	}

	stats := dto.SessionStatistics{
		TotalPredictions: len(preds),
		TotalEvents:      len(events),
	}
	if len(preds) > 0 {
		first, last := preds[0].Timestamp, preds[len(preds)-1].Timestamp
		stats.FirstPrediction = &first
		stats.LastPrediction = &last
	}
	if ws := workloads(preds); len(ws) > 0 {
		st := summarize(ws)
		stats.AvgWorkload = &st.Mean
		stats.MinWorkload = &st.Min
		stats.MaxWorkload = &st.Max
	}

	return &dto.SessionSummaryResponse{
		Session:    *toSessionResponse(session, time.Now()),
		Statistics: stats,
	}, nil
}

func (s *sessionService) Export(ctx context.Context, sessionId uuid.UUID) (*dto.SessionExportResponse, error) {
	session, err := s.reader.FindSession(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	preds, err := s.reader.Predictions(ctx, store.PredictionQuery{SessionID: sessionId})
	if err != nil {
		return nil, err
	}
	events, err := s.reader.Events(ctx, store.EventQuery{SessionID: sessionId})
	if err != nil {
		return nil, err
	}

	res := &dto.SessionExportResponse{
		Session:     *toSessionResponse(session, time.Now()),
		Predictions: make([]dto.PredictionResponse, 0, len(preds)),
		Events:      make([]dto.EventResponse, 0, len(events)),
		ExportedAt:  time.Now().UTC(),
	}
	for _, p := range toPredictionResponses(preds) {
		res.Predictions = append(res.Predictions, *p)
	}
	for _, e := range events {
		res.Events = append(res.Events, *toEventResponse(e))
	}
	return res, nil
}

func toSessionResponse(s *entity.Session, now time.Time) *dto.SessionResponse {
	end := now
	if s.EndTime != nil {
		end = *s.EndTime
	}
	return &dto.SessionResponse{
		SessionId:       s.SessionId,
		UserId:          s.UserId,
		StartTime:       s.StartTime,
		EndTime:         s.EndTime,
		DurationSeconds: end.Sub(s.StartTime).Seconds(),
		TotalSamples:    s.TotalSamples,
		Notes:           s.Notes,
		DeviceInfo:      s.DeviceInfo,
		IsActive:        s.IsOpen(),
	}
}

func toEventResponse(e *entity.Event) *dto.EventResponse {
	return &dto.EventResponse{
		EventId:   e.EventId,
		SessionId: e.SessionId,
		Timestamp: e.Timestamp,
		Label:     e.Label,
		Notes:     e.Notes,
		Metadata:  e.EventMetadata,
	}
}

func toPredictionResponses(rows []*entity.Prediction) []*dto.PredictionResponse {
	result := make([]*dto.PredictionResponse, 0, len(rows))
	for _, p := range rows {
		result = append(result, &dto.PredictionResponse{
			Timestamp:         p.Timestamp,
			SessionId:         p.SessionId,
			UserId:            p.UserId,
			Classifier:        p.ClassifierName,
			ClassifierVersion: p.ClassifierVersion,
			Workload:          p.Workload,
			Attention:         p.Attention,
			Confidence:        p.Confidence,
			ProcessingTimeMs:  p.ProcessingTimeMs,
			Features:          p.Features,
		})
	}
	return result
}
