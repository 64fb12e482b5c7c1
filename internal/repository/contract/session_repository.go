package contract

import (
	"context"
	"time"

	"eeg-workload-be/internal/entity"
	"eeg-workload-be/internal/repository/specification"

	"github.com/google/uuid"
)

type SessionRepository interface {
	Create(ctx context.Context, session *entity.Session) error
	// End sets the end time and final sample count. It reports false when no
	// session with that id exists.
	End(ctx context.Context, id uuid.UUID, endTime time.Time, totalSamples int64) (bool, error)
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Session, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Session, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
