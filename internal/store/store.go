package store

import (
	"context"
	"errors"
	"time"

	"eeg-workload-be/internal/entity"

	"github.com/google/uuid"
)

var ErrClosed = errors.New("store closed")

// Writer is the durable side of persistence. Session and event writes are
// synchronous; the three batch writers take whole batches and either commit
// all rows or none.
type Writer interface {
	CreateSession(ctx context.Context, session *entity.Session) error
	EndSession(ctx context.Context, id uuid.UUID, endTime time.Time, totalSamples int64) (bool, error)
	AddEvent(ctx context.Context, event *entity.Event) error
	WritePredictions(ctx context.Context, rows []*entity.Prediction) error
	WriteFeatureVectors(ctx context.Context, rows []*entity.FeatureVector) error
	WriteStreamSamples(ctx context.Context, rows []*entity.StreamSample) error
	Close() error
}

// Reader serves session management and history queries.
type Reader interface {
	FindSession(ctx context.Context, id uuid.UUID) (*entity.Session, error)
	FindOpenSession(ctx context.Context, userID string) (*entity.Session, error)
	ListSessions(ctx context.Context, q SessionQuery) ([]*entity.Session, error)
	UpdateSessionNotes(ctx context.Context, id uuid.UUID, notes string) (bool, error)
	Predictions(ctx context.Context, q PredictionQuery) ([]*entity.Prediction, error)
	Events(ctx context.Context, q EventQuery) ([]*entity.Event, error)
	NearestFeatures(ctx context.Context, vector []float32, limit int) ([]*entity.FeatureVector, error)
}

type Store interface {
	Writer
	Reader
}

type SessionQuery struct {
	UserID     string
	ActiveOnly bool
	Limit      int
}

// PredictionQuery filters prediction history. Zero fields do not filter.
type PredictionQuery struct {
	UserID    string
	SessionID uuid.UUID
	Start     time.Time
	End       time.Time
	Limit     int
	// NewestFirst orders by descending timestamp.
	NewestFirst bool
}

type EventQuery struct {
	SessionID uuid.UUID
	UserID    string
	Limit     int
}
