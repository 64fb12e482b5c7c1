package contract

import (
	"context"

	"eeg-workload-be/internal/entity"
	"eeg-workload-be/internal/repository/specification"
)

type EventRepository interface {
	Create(ctx context.Context, event *entity.Event) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Event, error)
}
