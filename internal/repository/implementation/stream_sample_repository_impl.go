package implementation

import (
	"context"

	"eeg-workload-be/internal/entity"
	"eeg-workload-be/internal/mapper"
	"eeg-workload-be/internal/model"
	"eeg-workload-be/internal/repository/contract"
	"eeg-workload-be/internal/repository/specification"

	"gorm.io/gorm"
)

type StreamSampleRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.StreamSampleMapper
}

func NewStreamSampleRepository(db *gorm.DB) contract.StreamSampleRepository {
	return &StreamSampleRepositoryImpl{
		db:     db,
		mapper: mapper.NewStreamSampleMapper(),
	}
}

func (r *StreamSampleRepositoryImpl) CreateBatch(ctx context.Context, rows []*entity.StreamSample) error {
	if len(rows) == 0 {
		return nil
	}
	models, err := r.mapper.ToModels(rows)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).CreateInBatches(models, insertBatchSize).Error
}

func (r *StreamSampleRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&model.StreamSample{})
	for _, spec := range specs {
		query = spec.Apply(query)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
