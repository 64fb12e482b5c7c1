package unitofwork

import (
	"context"

	"eeg-workload-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	SessionRepository() contract.SessionRepository
	PredictionRepository() contract.PredictionRepository
	FeatureVectorRepository() contract.FeatureVectorRepository
	StreamSampleRepository() contract.StreamSampleRepository
	EventRepository() contract.EventRepository
}
