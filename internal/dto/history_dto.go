package dto

import (
	"time"

	"github.com/google/uuid"
)

type WorkloadHistoryRequest struct {
	UserId    string     `query:"user_id" validate:"omitempty,max=100"`
	SessionId *uuid.UUID `query:"session_id"`
	Minutes   int        `query:"minutes" validate:"omitempty,min=1,max=10080"`
	Limit     int        `query:"limit" validate:"omitempty,min=1,max=10000"`
}

// WorkloadStatistics is omitted when no prediction in range has a workload.
type WorkloadStatistics struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Median float64 `json:"median"`
}

type WorkloadHistoryResponse struct {
	TimeRangeMinutes int                  `json:"time_range_minutes"`
	StartTime        time.Time            `json:"start_time"`
	EndTime          time.Time            `json:"end_time"`
	Samples          []PredictionResponse `json:"samples"`
	Statistics       *WorkloadStatistics  `json:"statistics"`
}

type PatternAnalysisRequest struct {
	UserId string    `query:"user_id" validate:"omitempty,max=100"`
	Start  time.Time `query:"start" validate:"required"`
	End    time.Time `query:"end" validate:"required,gtfield=Start"`
}

type LoadPeriod struct {
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	DurationSeconds float64   `json:"duration_seconds"`
}

type LoadPeriods struct {
	Count   int          `json:"count"`
	Periods []LoadPeriod `json:"periods"`
}

type PatternTrend struct {
	Direction string  `json:"direction"`
	Magnitude float64 `json:"magnitude"`
}

type PatternOverall struct {
	MeanWorkload  float64 `json:"mean_workload"`
	MinWorkload   float64 `json:"min_workload"`
	MaxWorkload   float64 `json:"max_workload"`
	WorkloadRange float64 `json:"workload_range"`
}

type PatternAnalysisResponse struct {
	Start           time.Time      `json:"start"`
	End             time.Time      `json:"end"`
	DurationHours   float64        `json:"duration_hours"`
	SampleCount     int            `json:"sample_count"`
	Overall         PatternOverall `json:"overall"`
	Trend           PatternTrend   `json:"trend"`
	HighLoadPeriods LoadPeriods    `json:"high_load_periods"`
	LowLoadPeriods  LoadPeriods    `json:"low_load_periods"`
}

type SimilarFeaturesRequest struct {
	Vector []float32 `json:"vector" validate:"required,len=5"`
	Limit  int       `json:"limit" validate:"omitempty,min=1,max=100"`
}

type FeatureVectorResponse struct {
	Timestamp       time.Time              `json:"timestamp"`
	SessionId       uuid.UUID              `json:"session_id"`
	FrontalTheta    *float64               `json:"frontal_theta"`
	FrontalBeta     *float64               `json:"frontal_beta"`
	ParietalAlpha   *float64               `json:"parietal_alpha"`
	ThetaBetaRatio  *float64               `json:"theta_beta_ratio"`
	ThetaAlphaRatio *float64               `json:"theta_alpha_ratio"`
	BandVector      []float32              `json:"band_vector,omitempty"`
	AllFeatures     map[string]interface{} `json:"all_features,omitempty"`
}
