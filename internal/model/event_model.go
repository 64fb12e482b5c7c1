package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Event struct {
	EventId       uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionId     uuid.UUID      `gorm:"type:uuid;not null;index"`
	Timestamp     time.Time      `gorm:"type:timestamptz;not null;index"`
	Label         string         `gorm:"type:varchar(100);not null"`
	Notes         *string        `gorm:"type:text"`
	EventMetadata datatypes.JSON `gorm:"type:jsonb"`
}

func (Event) TableName() string {
	return "events"
}
