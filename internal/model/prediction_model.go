package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Prediction is stored in a TimescaleDB hypertable partitioned on Timestamp,
// which is why the timestamp is part of the primary key.
type Prediction struct {
	Id                int64          `gorm:"primaryKey;autoIncrement"`
	Timestamp         time.Time      `gorm:"primaryKey;type:timestamptz;not null;index"`
	SessionId         uuid.UUID      `gorm:"type:uuid;not null;index"`
	UserId            string         `gorm:"type:varchar(100);not null;index"`
	ClassifierName    string         `gorm:"type:varchar(100);not null"`
	Workload          *float64       `gorm:"type:double precision"`
	Attention         *float64       `gorm:"type:double precision"`
	Confidence        *float64       `gorm:"type:double precision"`
	Features          datatypes.JSON `gorm:"type:jsonb"`
	ProcessingTimeMs  *float64       `gorm:"type:double precision"`
	ClassifierVersion *string        `gorm:"type:varchar(50)"`
}

func (Prediction) TableName() string {
	return "predictions"
}
