package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// StreamSample is stored in a TimescaleDB hypertable partitioned on Timestamp.
type StreamSample struct {
	Id         int64          `gorm:"primaryKey;autoIncrement"`
	Timestamp  time.Time      `gorm:"primaryKey;type:timestamptz;not null;index"`
	SessionId  *uuid.UUID     `gorm:"type:uuid;index"`
	StreamName string         `gorm:"type:varchar(100);not null;index"`
	StreamType *string        `gorm:"type:varchar(50)"`
	Data       datatypes.JSON `gorm:"type:jsonb;not null"`
}

func (StreamSample) TableName() string {
	return "stream_samples"
}
