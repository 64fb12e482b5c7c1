package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateSessionRequest struct {
	UserId     string                 `json:"user_id" validate:"required,max=100"`
	Notes      *string                `json:"notes" validate:"omitempty,max=10000"`
	DeviceInfo map[string]interface{} `json:"device_info"`
}

type SessionResponse struct {
	SessionId       uuid.UUID              `json:"session_id"`
	UserId          string                 `json:"user_id"`
	StartTime       time.Time              `json:"start_time"`
	EndTime         *time.Time             `json:"end_time"`
	DurationSeconds float64                `json:"duration_seconds"`
	TotalSamples    int64                  `json:"total_samples"`
	Notes           *string                `json:"notes"`
	DeviceInfo      map[string]interface{} `json:"device_info,omitempty"`
	IsActive        bool                   `json:"is_active"`
}

type ListSessionsRequest struct {
	UserId     string `query:"user_id" validate:"omitempty,max=100"`
	ActiveOnly bool   `query:"active_only"`
	Limit      int    `query:"limit" validate:"omitempty,min=1,max=500"`
}

type EndSessionRequest struct {
	SessionId uuid.UUID
	Notes     *string `json:"notes" validate:"omitempty,max=10000"`
}

type UpdateSessionNotesRequest struct {
	SessionId uuid.UUID
	Notes     string `json:"notes" validate:"required,max=10000"`
	// Append adds the notes on a new line instead of replacing them.
	Append bool `json:"append"`
}

type UpdateSessionNotesResponse struct {
	SessionId uuid.UUID `json:"session_id"`
	Notes     *string   `json:"notes"`
}

// AddEventRequest annotates a session. When SessionId is empty the user's
// open session is used.
type AddEventRequest struct {
	SessionId *uuid.UUID             `json:"session_id"`
	UserId    string                 `json:"user_id" validate:"omitempty,max=100"`
	Label     string                 `json:"label" validate:"required,max=100"`
	Notes     *string                `json:"notes" validate:"omitempty,max=10000"`
	Metadata  map[string]interface{} `json:"metadata"`
}

type EventResponse struct {
	EventId   uuid.UUID              `json:"event_id"`
	SessionId uuid.UUID              `json:"session_id"`
	Timestamp time.Time              `json:"timestamp"`
	Label     string                 `json:"label"`
	Notes     *string                `json:"notes"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

type ListEventsRequest struct {
	SessionId *uuid.UUID `query:"session_id"`
	UserId    string     `query:"user_id" validate:"omitempty,max=100"`
	Limit     int        `query:"limit" validate:"omitempty,min=1,max=500"`
}

type PredictionResponse struct {
	Timestamp         time.Time          `json:"timestamp"`
	SessionId         uuid.UUID          `json:"session_id"`
	UserId            string             `json:"user_id"`
	Classifier        string             `json:"classifier"`
	ClassifierVersion *string            `json:"classifier_version,omitempty"`
	Workload          *float64           `json:"workload"`
	Attention         *float64           `json:"attention"`
	Confidence        *float64           `json:"confidence"`
	ProcessingTimeMs  *float64           `json:"processing_time_ms,omitempty"`
	Features          map[string]float64 `json:"features,omitempty"`
}

type SessionStatistics struct {
	TotalPredictions int        `json:"total_predictions"`
	AvgWorkload      *float64   `json:"avg_workload"`
	MinWorkload      *float64   `json:"min_workload"`
	MaxWorkload      *float64   `json:"max_workload"`
	FirstPrediction  *time.Time `json:"first_prediction"`
	LastPrediction   *time.Time `json:"last_prediction"`
	TotalEvents      int        `json:"total_events"`
}

type SessionSummaryResponse struct {
	Session    SessionResponse   `json:"session_info"`
	Statistics SessionStatistics `json:"statistics"`
}

type SessionExportResponse struct {
	Session     SessionResponse      `json:"session"`
	Predictions []PredictionResponse `json:"predictions"`
	Events      []EventResponse      `json:"events"`
	ExportedAt  time.Time            `json:"exported_at"`
}
