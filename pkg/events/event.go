package events

import "time"

// Event is anything published on the workload topic or the NATS stream.
type Event interface {
	// EventType is the subject suffix, e.g. WorkloadPredictedType.
	EventType() string

	// Payload is the JSON object sent on the wire.
	Payload() map[string]interface{}

	Timestamp() time.Time
}

// BaseEvent is an event rebuilt from the wire when the concrete type is
// not needed.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}
