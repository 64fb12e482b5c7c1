package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Session struct {
	SessionId         uuid.UUID                   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId            string                      `gorm:"type:varchar(100);not null;index"`
	StartTime         time.Time                   `gorm:"type:timestamptz;not null"`
	EndTime           *time.Time                  `gorm:"type:timestamptz"`
	DeviceInfo        datatypes.JSON              `gorm:"type:jsonb"`
	TotalSamples      int64                       `gorm:"default:0"`
	Notes             *string                     `gorm:"type:text"`
	ActiveClassifiers datatypes.JSONSlice[string] `gorm:"type:jsonb"`
}

func (Session) TableName() string {
	return "sessions"
}
