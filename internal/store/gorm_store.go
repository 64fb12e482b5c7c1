package store

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"eeg-workload-be/internal/entity"
	"eeg-workload-be/internal/repository/specification"
	"eeg-workload-be/internal/repository/unitofwork"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormStore implements Store on the gorm repositories.
type GormStore struct {
	db         *gorm.DB
	uowFactory unitofwork.RepositoryFactory
	closed     atomic.Bool
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{
		db:         db,
		uowFactory: unitofwork.NewRepositoryFactory(db),
	}
}

func (s *GormStore) check() error {
	if s.closed.Load() {
		return ErrClosed
	}
	return nil
}

func (s *GormStore) CreateSession(ctx context.Context, session *entity.Session) error {
	if err := s.check(); err != nil {
		return err
	}
	return s.uowFactory.NewUnitOfWork(ctx).SessionRepository().Create(ctx, session)
}

func (s *GormStore) EndSession(ctx context.Context, id uuid.UUID, endTime time.Time, totalSamples int64) (bool, error) {
	if err := s.check(); err != nil {
		return false, err
	}
	return s.uowFactory.NewUnitOfWork(ctx).SessionRepository().End(ctx, id, endTime, totalSamples)
}

func (s *GormStore) AddEvent(ctx context.Context, event *entity.Event) error {
	if err := s.check(); err != nil {
		return err
	}
	return s.uowFactory.NewUnitOfWork(ctx).EventRepository().Create(ctx, event)
}

// inTx runs fn inside one transaction so a batch commits all-or-nothing.
func (s *GormStore) inTx(ctx context.Context, fn func(uow unitofwork.UnitOfWork) error) error {
	if err := s.check(); err != nil {
		return err
	}
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(uow); err != nil {
		_ = uow.Rollback()
		return err
	}
	return uow.Commit()
}

func (s *GormStore) WritePredictions(ctx context.Context, rows []*entity.Prediction) error {
	return s.inTx(ctx, func(uow unitofwork.UnitOfWork) error {
		return uow.PredictionRepository().CreateBatch(ctx, rows)
	})
}

func (s *GormStore) WriteFeatureVectors(ctx context.Context, rows []*entity.FeatureVector) error {
	return s.inTx(ctx, func(uow unitofwork.UnitOfWork) error {
		return uow.FeatureVectorRepository().CreateBatch(ctx, rows)
	})
}

func (s *GormStore) WriteStreamSamples(ctx context.Context, rows []*entity.StreamSample) error {
	return s.inTx(ctx, func(uow unitofwork.UnitOfWork) error {
		return uow.StreamSampleRepository().CreateBatch(ctx, rows)
	})
}

// Close releases the connection pool. It is safe to call more than once.
func (s *GormStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *GormStore) FindSession(ctx context.Context, id uuid.UUID) (*entity.Session, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	return s.uowFactory.NewUnitOfWork(ctx).SessionRepository().FindOne(ctx, specification.BySessionID{SessionID: id})
}

func (s *GormStore) FindOpenSession(ctx context.Context, userID string) (*entity.Session, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	return s.uowFactory.NewUnitOfWork(ctx).SessionRepository().FindOne(ctx,
		specification.ByUserID{UserID: userID},
		specification.OpenSession{},
		specification.OrderBy{Field: "start_time", Desc: true},
	)
}

func (s *GormStore) ListSessions(ctx context.Context, q SessionQuery) ([]*entity.Session, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	specs := []specification.Specification{specification.OrderBy{Field: "start_time", Desc: true}}
	if q.UserID != "" {
		specs = append(specs, specification.ByUserID{UserID: q.UserID})
	}
	if q.ActiveOnly {
		specs = append(specs, specification.OpenSession{})
	}
	if q.Limit > 0 {
		specs = append(specs, specification.Pagination{Limit: q.Limit})
	}
	return s.uowFactory.NewUnitOfWork(ctx).SessionRepository().FindAll(ctx, specs...)
}

func (s *GormStore) UpdateSessionNotes(ctx context.Context, id uuid.UUID, notes string) (bool, error) {
	if err := s.check(); err != nil {
		return false, err
	}
	res := s.db.WithContext(ctx).Table("sessions").Where("session_id = ?", id).Update("notes", notes)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *GormStore) Predictions(ctx context.Context, q PredictionQuery) ([]*entity.Prediction, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	specs := []specification.Specification{
		specification.Between{Field: "timestamp", Start: q.Start, End: q.End},
		specification.OrderBy{Field: "timestamp", Desc: q.NewestFirst},
	}
	if q.UserID != "" {
		specs = append(specs, specification.ByUserID{UserID: q.UserID})
	}
	if q.SessionID != uuid.Nil {
		specs = append(specs, specification.BySessionID{SessionID: q.SessionID})
	}
	if q.Limit > 0 {
		specs = append(specs, specification.Pagination{Limit: q.Limit})
	}
	return s.uowFactory.NewUnitOfWork(ctx).PredictionRepository().FindAll(ctx, specs...)
}

func (s *GormStore) Events(ctx context.Context, q EventQuery) ([]*entity.Event, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	specs := []specification.Specification{specification.OrderBy{Field: "timestamp", Desc: true}}
	if q.SessionID != uuid.Nil {
		specs = append(specs, specification.BySessionID{SessionID: q.SessionID})
	}
	if q.UserID != "" {
		specs = append(specs, specification.EventsOfUser{UserID: q.UserID})
	}
	if q.Limit > 0 {
		specs = append(specs, specification.Pagination{Limit: q.Limit})
	}
	return s.uowFactory.NewUnitOfWork(ctx).EventRepository().FindAll(ctx, specs...)
}

func (s *GormStore) NearestFeatures(ctx context.Context, vector []float32, limit int) ([]*entity.FeatureVector, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	return s.uowFactory.NewUnitOfWork(ctx).FeatureVectorRepository().FindNearest(ctx, vector, limit)
}
