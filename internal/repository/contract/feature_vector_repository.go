package contract

import (
	"context"

	"eeg-workload-be/internal/entity"
	"eeg-workload-be/internal/repository/specification"
)

type FeatureVectorRepository interface {
	CreateBatch(ctx context.Context, rows []*entity.FeatureVector) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.FeatureVector, error)
	// FindNearest orders rows by L2 distance between band vectors.
	FindNearest(ctx context.Context, vector []float32, limit int, specs ...specification.Specification) ([]*entity.FeatureVector, error)
}
