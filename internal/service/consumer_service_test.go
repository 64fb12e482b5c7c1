package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"eeg-workload-be/internal/pkg/logger"
	"eeg-workload-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu        sync.Mutex
	published []events.Event
	cached    []events.WorkloadPredicted
}

func (r *recordingSink) Publish(ctx context.Context, ev events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published = append(r.published, ev)
	return nil
}

func (r *recordingSink) StoreLatest(ctx context.Context, ev events.WorkloadPredicted) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cached = append(r.cached, ev)
	return nil
}

func (r *recordingSink) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.published), len(r.cached)
}

func TestConsumerFansOutWorkloadEvents(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	sink := &recordingSink{}
	consumer := NewConsumerService(pubSub, WorkloadTopic, sink, sink, logger.NewNopLogger())
	require.NoError(t, consumer.Consume(context.Background()))

	publisher := NewPublisherService(WorkloadTopic, pubSub)
	ev := events.WorkloadPredicted{
		UserID:     "alice",
		SessionID:  uuid.New(),
		Classifier: "signal_processing",
		Workload:   0.55,
		Confidence: 1,
		OccurredAt: time.Now().UTC(),
	}
	require.NoError(t, publisher.PublishWorkload(context.Background(), ev))

	assert.Eventually(t, func() bool {
		p, c := sink.counts()
		return p == 1 && c == 1
	}, 2*time.Second, 10*time.Millisecond)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, events.WorkloadPredictedType, sink.published[0].EventType())
	assert.Equal(t, ev.SessionID, sink.cached[0].SessionID)
	assert.Equal(t, 0.55, sink.cached[0].Workload)
}

func TestConsumerAcksMalformedPayload(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	sink := &recordingSink{}
	consumer := NewConsumerService(pubSub, WorkloadTopic, nil, sink, logger.NewNopLogger())
	require.NoError(t, consumer.Consume(context.Background()))

	require.NoError(t, pubSub.Publish(WorkloadTopic, message.NewMessage(watermill.NewUUID(), []byte("not json"))))
	good := events.WorkloadPredicted{UserID: "bob", SessionID: uuid.New(), OccurredAt: time.Now()}
	require.NoError(t, NewPublisherService(WorkloadTopic, pubSub).PublishWorkload(context.Background(), good))

	assert.Eventually(t, func() bool {
		_, c := sink.counts()
		return c == 1
	}, 2*time.Second, 10*time.Millisecond)
}
