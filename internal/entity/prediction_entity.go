package entity

import (
	"time"

	"github.com/google/uuid"
)

type Prediction struct {
	Id                int64
	Timestamp         time.Time
	SessionId         uuid.UUID
	UserId            string
	ClassifierName    string
	Workload          *float64
	Attention         *float64
	Confidence        *float64
	Features          map[string]float64
	ProcessingTimeMs  *float64
	ClassifierVersion *string
}

type FeatureVector struct {
	Id              int64
	Timestamp       time.Time
	SessionId       uuid.UUID
	FrontalTheta    *float64
	FrontalBeta     *float64
	ParietalAlpha   *float64
	ThetaBetaRatio  *float64
	ThetaAlphaRatio *float64
	AllFeatures     map[string]interface{}
	// BandVector is nil when the source features cannot fill every slot.
	BandVector []float32
}

type StreamSample struct {
	Id         int64
	Timestamp  time.Time
	SessionId  *uuid.UUID
	StreamName string
	StreamType *string
	Data       map[string]interface{}
}

type Event struct {
	EventId       uuid.UUID
	SessionId     uuid.UUID
	Timestamp     time.Time
	Label         string
	Notes         *string
	EventMetadata map[string]interface{}
}
