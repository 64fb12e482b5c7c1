package buffer

import (
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindRaw        Kind = "raw"
	KindFeatures   Kind = "features"
	KindPrediction Kind = "prediction"
)

// Record is one buffered sample. Records are never mutated after they are
// built, so readers may share the payload slices and maps.
type Record struct {
	Timestamp time.Time              `json:"timestamp"`
	SessionID uuid.UUID              `json:"session_id"`
	UserID    string                 `json:"user_id"`
	Kind      Kind                   `json:"sample_type"`
	Raw       [][]float64            `json:"raw,omitempty"`
	Values    map[string]float64     `json:"values,omitempty"`
	Metadata  map[string]interface{} `json:"metadata"`
}

// NewRawRecord copies a channels x samples block into a raw record.
func NewRawRecord(ts time.Time, sessionID uuid.UUID, userID string, raw [][]float64, metadata map[string]interface{}) Record {
	cp := make([][]float64, len(raw))
	for i, ch := range raw {
		cp[i] = append([]float64(nil), ch...)
	}
	return Record{
		Timestamp: ts,
		SessionID: sessionID,
		UserID:    userID,
		Kind:      KindRaw,
		Raw:       cp,
		Metadata:  copyMetadata(metadata),
	}
}

func NewFeaturesRecord(ts time.Time, sessionID uuid.UUID, userID string, values map[string]float64, metadata map[string]interface{}) Record {
	return newValuesRecord(KindFeatures, ts, sessionID, userID, values, metadata)
}

func NewPredictionRecord(ts time.Time, sessionID uuid.UUID, userID string, values map[string]float64, metadata map[string]interface{}) Record {
	return newValuesRecord(KindPrediction, ts, sessionID, userID, values, metadata)
}

func newValuesRecord(kind Kind, ts time.Time, sessionID uuid.UUID, userID string, values map[string]float64, metadata map[string]interface{}) Record {
	cp := make(map[string]float64, len(values))
	for k, v := range values {
		cp[k] = v
	}
	return Record{
		Timestamp: ts,
		SessionID: sessionID,
		UserID:    userID,
		Kind:      kind,
		Values:    cp,
		Metadata:  copyMetadata(metadata),
	}
}

func copyMetadata(md map[string]interface{}) map[string]interface{} {
	cp := make(map[string]interface{}, len(md))
	for k, v := range md {
		cp[k] = v
	}
	return cp
}
