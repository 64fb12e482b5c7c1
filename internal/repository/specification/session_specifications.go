package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BySessionID struct {
	SessionID uuid.UUID
}

func (s BySessionID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("session_id = ?", s.SessionID)
}

type ByUserID struct {
	UserID string
}

func (s ByUserID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("user_id = ?", s.UserID)
}

// OpenSession keeps sessions that have not been ended.
type OpenSession struct{}

func (s OpenSession) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("end_time IS NULL")
}

type ByLabel struct {
	Label string
}

func (s ByLabel) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("label = ?", s.Label)
}

// EventsOfUser keeps events whose session belongs to the user.
type EventsOfUser struct {
	UserID string
}

func (s EventsOfUser) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("session_id IN (?)", db.Session(&gorm.Session{NewDB: true}).Table("sessions").Select("session_id").Where("user_id = ?", s.UserID))
}
