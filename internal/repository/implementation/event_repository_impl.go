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

type EventRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.EventMapper
}

func NewEventRepository(db *gorm.DB) contract.EventRepository {
	return &EventRepositoryImpl{
		db:     db,
		mapper: mapper.NewEventMapper(),
	}
}

func (r *EventRepositoryImpl) Create(ctx context.Context, event *entity.Event) error {
	m := r.mapper.ToModel(event)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*event = *r.mapper.ToEntity(m)
	return nil
}

func (r *EventRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Event, error) {
	var models []*model.Event
	query := r.db.WithContext(ctx)
	for _, spec := range specs {
		query = spec.Apply(query)
	}
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}
