package implementation

import (
	"context"

	"eeg-workload-be/internal/entity"
	"eeg-workload-be/internal/mapper"
	"eeg-workload-be/internal/model"
	"eeg-workload-be/internal/repository/contract"
	"eeg-workload-be/internal/repository/specification"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type FeatureVectorRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.FeatureVectorMapper
}

func NewFeatureVectorRepository(db *gorm.DB) contract.FeatureVectorRepository {
	return &FeatureVectorRepositoryImpl{
		db:     db,
		mapper: mapper.NewFeatureVectorMapper(),
	}
}

func (r *FeatureVectorRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *FeatureVectorRepositoryImpl) CreateBatch(ctx context.Context, rows []*entity.FeatureVector) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(r.mapper.ToModels(rows), insertBatchSize).Error
}

func (r *FeatureVectorRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.FeatureVector, error) {
	var models []*model.FeatureVector
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *FeatureVectorRepositoryImpl) FindNearest(ctx context.Context, vector []float32, limit int, specs ...specification.Specification) ([]*entity.FeatureVector, error) {
	if limit <= 0 {
		limit = 5
	}
	var models []*model.FeatureVector

	// L2 distance; band values are log powers, not unit vectors.
	query := r.applySpecifications(r.db.WithContext(ctx), specs...).
		Where("band_vector IS NOT NULL").
		Order(gorm.Expr("band_vector <-> ?", pgvector.NewVector(vector))).
		Limit(limit)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}
