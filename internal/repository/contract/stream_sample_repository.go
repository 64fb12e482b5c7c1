package contract

import (
	"context"

	"eeg-workload-be/internal/entity"
	"eeg-workload-be/internal/repository/specification"
)

type StreamSampleRepository interface {
	CreateBatch(ctx context.Context, rows []*entity.StreamSample) error
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
