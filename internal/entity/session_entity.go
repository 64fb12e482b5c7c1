package entity

import (
	"time"

	"github.com/google/uuid"
)

type Session struct {
	SessionId         uuid.UUID
	UserId            string
	StartTime         time.Time
	EndTime           *time.Time
	DeviceInfo        map[string]interface{}
	TotalSamples      int64
	Notes             *string
	ActiveClassifiers []string
}

// IsOpen reports whether the session has not been ended.
func (s *Session) IsOpen() bool {
	return s.EndTime == nil
}
