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

// insertBatchSize caps rows per INSERT statement.
const insertBatchSize = 100

type PredictionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.PredictionMapper
}

func NewPredictionRepository(db *gorm.DB) contract.PredictionRepository {
	return &PredictionRepositoryImpl{
		db:     db,
		mapper: mapper.NewPredictionMapper(),
	}
}

func (r *PredictionRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *PredictionRepositoryImpl) CreateBatch(ctx context.Context, predictions []*entity.Prediction) error {
	if len(predictions) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(r.mapper.ToModels(predictions), insertBatchSize).Error
}

func (r *PredictionRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Prediction, error) {
	var models []*model.Prediction
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *PredictionRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.Prediction{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
