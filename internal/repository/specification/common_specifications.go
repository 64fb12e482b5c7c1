package specification

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// OrderBy applies ordering
type OrderBy struct {
	Field string
	Desc  bool
}

func (s OrderBy) Apply(db *gorm.DB) *gorm.DB {
	direction := "ASC"
	if s.Desc {
		direction = "DESC"
	}
	return db.Order(fmt.Sprintf("%s %s", s.Field, direction))
}

// Pagination
type Pagination struct {
	Limit  int
	Offset int
}

func (s Pagination) Apply(db *gorm.DB) *gorm.DB {
	return db.Limit(s.Limit).Offset(s.Offset)
}

// FilterBy Generic Filter
type FilterBy struct {
	Field string
	Value interface{}
}

func (s FilterBy) Apply(db *gorm.DB) *gorm.DB {
	query := fmt.Sprintf("%s = ?", s.Field)
	return db.Where(query, s.Value)
}

func Filter(field string, value interface{}) Specification {
	return FilterBy{Field: field, Value: value}
}

// Between keeps rows whose Field lies in [Start, End]. A zero bound is open.
type Between struct {
	Field string
	Start time.Time
	End   time.Time
}

func (s Between) Apply(db *gorm.DB) *gorm.DB {
	if !s.Start.IsZero() {
		db = db.Where(fmt.Sprintf("%s >= ?", s.Field), s.Start)
	}
	if !s.End.IsZero() {
		db = db.Where(fmt.Sprintf("%s <= ?", s.Field), s.End)
	}
	return db
}
