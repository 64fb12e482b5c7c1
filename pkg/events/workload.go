package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const WorkloadPredictedType = "WORKLOAD_PREDICTED"

// WorkloadPredicted is emitted for every classified raw sample block.
type WorkloadPredicted struct {
	UserID     string             `json:"user_id"`
	SessionID  uuid.UUID          `json:"session_id"`
	Classifier string             `json:"classifier"`
	Workload   float64            `json:"workload"`
	Confidence float64            `json:"confidence"`
	Features   map[string]float64 `json:"features,omitempty"`
	OccurredAt time.Time          `json:"timestamp"`
}

func (e WorkloadPredicted) EventType() string { return WorkloadPredictedType }

func (e WorkloadPredicted) Timestamp() time.Time { return e.OccurredAt }

func (e WorkloadPredicted) Payload() map[string]interface{} {
	features := make(map[string]interface{}, len(e.Features))
	for k, v := range e.Features {
		features[k] = v
	}
	return map[string]interface{}{
		"user_id":    e.UserID,
		"session_id": e.SessionID.String(),
		"classifier": e.Classifier,
		"workload":   e.Workload,
		"confidence": e.Confidence,
		"features":   features,
		"timestamp":  e.OccurredAt.UTC().Format(time.RFC3339Nano),
	}
}

// DecodeWorkloadPredicted parses the JSON form of Payload.
func DecodeWorkloadPredicted(data []byte) (WorkloadPredicted, error) {
	var e WorkloadPredicted
	if err := json.Unmarshal(data, &e); err != nil {
		return WorkloadPredicted{}, fmt.Errorf("decode %s: %w", WorkloadPredictedType, err)
	}
	return e, nil
}
