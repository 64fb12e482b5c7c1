package dto

import (
	"time"

	"github.com/google/uuid"
)

type RealtimeRequest struct {
	UserId string `query:"user_id" validate:"omitempty,max=100"`
}

type TrendRequest struct {
	UserId  string `query:"user_id" validate:"omitempty,max=100"`
	Minutes int    `query:"minutes" validate:"omitempty,min=1,max=1440"`
}

type CurrentLoadResponse struct {
	UserId     string             `json:"user_id"`
	SessionId  uuid.UUID          `json:"session_id"`
	Timestamp  time.Time          `json:"timestamp"`
	Workload   float64            `json:"workload"`
	Confidence float64            `json:"confidence"`
	Trend      string             `json:"trend"`
	Features   map[string]float64 `json:"features,omitempty"`
}

type CognitiveStateResponse struct {
	State           string    `json:"state"`
	Intensity       string    `json:"intensity"`
	Workload        float64   `json:"workload"`
	Confidence      float64   `json:"confidence"`
	DurationSeconds float64   `json:"duration_seconds"`
	Trend           string    `json:"trend"`
	Recommendations []string  `json:"recommendations"`
	Timestamp       time.Time `json:"timestamp"`
}

type WorkloadTrendResponse struct {
	SamplesCount     int         `json:"samples_count"`
	TimeRangeMinutes int         `json:"time_range_minutes"`
	StartTime        time.Time   `json:"start_time"`
	EndTime          time.Time   `json:"end_time"`
	AvgWorkload      float64     `json:"avg_workload"`
	MinWorkload      float64     `json:"min_workload"`
	MaxWorkload      float64     `json:"max_workload"`
	Trend            string      `json:"trend"`
	WorkloadValues   []float64   `json:"workload_values"`
	Timestamps       []time.Time `json:"timestamps"`
}

type BufferStatsResponse struct {
	SessionId      uuid.UUID  `json:"session_id"`
	TotalSamples   int        `json:"total_samples"`
	UniqueUsers    int        `json:"unique_users"`
	UniqueSessions int        `json:"unique_sessions"`
	OldestSample   *time.Time `json:"oldest_sample"`
	NewestSample   *time.Time `json:"newest_sample"`
	Capacity       int        `json:"capacity"`
	UsagePercent   float64    `json:"usage_percent"`
	Evicted        uint64     `json:"evicted"`
}

type BufferStatusResponse struct {
	ActiveSessions int                   `json:"active_sessions"`
	Sessions       []BufferStatsResponse `json:"sessions"`
}
