package nats

import (
	"testing"
	"time"

	"eeg-workload-be/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventFromMessage(t *testing.T) {
	ev, err := EventFromMessage(Subject(events.WorkloadPredictedType),
		[]byte(`{"user_id":"alice","workload":0.4,"timestamp":"2024-01-02T03:04:05.5Z"}`))
	require.NoError(t, err)

	assert.Equal(t, events.WorkloadPredictedType, ev.EventType())
	assert.Equal(t, "alice", ev.Payload()["user_id"])
	assert.True(t, ev.Timestamp().Equal(time.Date(2024, 1, 2, 3, 4, 5, 5e8, time.UTC)))

	_, err = EventFromMessage("events.X", []byte("nope"))
	assert.Error(t, err)
}
