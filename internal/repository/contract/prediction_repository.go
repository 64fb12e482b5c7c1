package contract

import (
	"context"

	"eeg-workload-be/internal/entity"
	"eeg-workload-be/internal/repository/specification"
)

type PredictionRepository interface {
	CreateBatch(ctx context.Context, predictions []*entity.Prediction) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Prediction, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
