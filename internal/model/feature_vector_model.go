package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

// BandVectorDims is the length of FeatureVector.BandVector.
const BandVectorDims = 5

type FeatureVector struct {
	Id              int64            `gorm:"primaryKey;autoIncrement"`
	Timestamp       time.Time        `gorm:"type:timestamptz;not null;index"`
	SessionId       uuid.UUID        `gorm:"type:uuid;not null;index"`
	FrontalTheta    *float64         `gorm:"type:double precision"`
	FrontalBeta     *float64         `gorm:"type:double precision"`
	ParietalAlpha   *float64         `gorm:"type:double precision"`
	ThetaBetaRatio  *float64         `gorm:"type:double precision"`
	ThetaAlphaRatio *float64         `gorm:"type:double precision"`
	AllFeatures     datatypes.JSON   `gorm:"type:jsonb"`
	BandVector      *pgvector.Vector `gorm:"type:vector(5)"`
}

func (FeatureVector) TableName() string {
	return "feature_vectors"
}
