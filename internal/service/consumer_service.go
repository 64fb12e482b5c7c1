package service

import (
	"context"
	"encoding/json"
	"time"

	"eeg-workload-be/internal/pkg/logger"
	"eeg-workload-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

const WorkloadTopic = "workload.predicted"

const sinkTimeout = 5 * time.Second

// EventPublisher forwards events to the cross-service bus.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// LatestWorkloadStore caches the newest prediction per user.
type LatestWorkloadStore interface {
	StoreLatest(ctx context.Context, ev events.WorkloadPredicted) error
}

type IPublisherService interface {
	PublishWorkload(ctx context.Context, ev events.WorkloadPredicted) error
}

type publisherService struct {
	topic     string
	publisher message.Publisher
}

func NewPublisherService(topic string, publisher message.Publisher) IPublisherService {
	return &publisherService{topic: topic, publisher: publisher}
}

func (s *publisherService) PublishWorkload(ctx context.Context, ev events.WorkloadPredicted) error {
	payload, err := json.Marshal(ev.Payload())
	if err != nil {
		return err
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	return s.publisher.Publish(s.topic, msg)
}

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	subscriber message.Subscriber
	topic      string
	bus        EventPublisher
	cache      LatestWorkloadStore
	logger     logger.ILogger
}

// NewConsumerService fans workload events out to bus and cache. Either sink
// may be nil.
func NewConsumerService(
	subscriber message.Subscriber,
	topic string,
	bus EventPublisher,
	cache LatestWorkloadStore,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		topic:      topic,
		bus:        bus,
		cache:      cache,
		logger:     log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(msg *message.Message) {
	ev, err := events.DecodeWorkloadPredicted(msg.Payload)
	if err != nil {
		cs.logger.Error("CONSUMER", "Dropping malformed workload event", map[string]interface{}{"error": err.Error()})
		// Ack invalid messages to prevent infinite redelivery.
		msg.Ack()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
	defer cancel()

	// Sinks are best effort: the durable path already holds the prediction.
	if cs.bus != nil {
		if err := cs.bus.Publish(ctx, ev); err != nil {
			cs.logger.Warn("CONSUMER", "Failed to publish workload event", map[string]interface{}{
				"user_id": ev.UserID,
				"error":   err.Error(),
			})
		}
	}
	if cs.cache != nil {
		if err := cs.cache.StoreLatest(ctx, ev); err != nil {
			cs.logger.Warn("CONSUMER", "Failed to cache latest workload", map[string]interface{}{
				"user_id": ev.UserID,
				"error":   err.Error(),
			})
		}
	}
	msg.Ack()
}
