package watermillpublisher

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/arkade-os/kittyd/internal/core/domain"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	eventTypeMetadataKey = "event_type"
	batchIdMetadataKey   = "batch_id"
	outputChannelBuffer  = 64
)

// Publisher fans kitty events out to in-process subscribers.
// Publish blocks until every subscriber acked the messages.
type Publisher struct {
	pubsub *gochannel.GoChannel

	closeOnce sync.Once
}

func NewPublisher() *Publisher {
	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer:            outputChannelBuffer,
		BlockPublishUntilSubscriberAck: true,
	}, newLogrusAdapter())

	return &Publisher{pubsub: pubsub}
}

func (p *Publisher) Publish(ctx context.Context, events ...domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	batchId := uuid.NewString()
	byTopic := make(map[string][]*message.Message)
	topics := make([]string, 0)
	for _, event := range events {
		msg, err := toWatermillMessage(ctx, event)
		if err != nil {
			return err
		}
		msg.Metadata.Set(batchIdMetadataKey, batchId)

		topic := event.GetTopic()
		if _, ok := byTopic[topic]; !ok {
			topics = append(topics, topic)
		}
		byTopic[topic] = append(byTopic[topic], msg)
	}

	for _, topic := range topics {
		if err := p.pubsub.Publish(topic, byTopic[topic]...); err != nil {
			return fmt.Errorf("failed to publish events to topic %s: %w", topic, err)
		}
	}
	return nil
}

// Subscribe runs handler for every event published on topic until ctx is done or the
// publisher is closed. Messages that cannot be decoded are acked and dropped.
//
// Publish does not return before handler returns, and the application service publishes
// while holding its state lock. Handlers must therefore be quick and must never call back
// into a mutating service method, or the calling transition deadlocks.
func (p *Publisher) Subscribe(
	ctx context.Context, topic string, handler func(domain.Event),
) error {
	messages, err := p.pubsub.Subscribe(ctx, topic)
	if err != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %w", topic, err)
	}

	go func() {
		for msg := range messages {
			event, err := deserializeEvent(msg.Payload)
			if err != nil {
				log.WithError(err).WithField("message_id", msg.UUID).
					Warn("failed to deserialize event")
				msg.Ack()
				continue
			}
			handler(event)
			msg.Ack()
		}
	}()
	return nil
}

func (p *Publisher) Close() {
	p.closeOnce.Do(func() {
		if err := p.pubsub.Close(); err != nil {
			log.WithError(err).Warn("failed to close event publisher")
		}
	})
}

func toWatermillMessage(ctx context.Context, event domain.Event) (*message.Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize %s event: %w", event.GetType(), err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(eventTypeMetadataKey, event.GetType().String())
	msg.SetContext(ctx)
	return msg, nil
}

func deserializeEvent(buf []byte) (domain.Event, error) {
	var eventType struct {
		Type domain.EventType
	}

	if err := json.Unmarshal(buf, &eventType); err != nil {
		return nil, err
	}

	switch eventType.Type {
	case domain.EventTypeKittyCreated:
		var event = domain.KittyCreated{}
		if err := json.Unmarshal(buf, &event); err != nil {
			return nil, err
		}
		return event, nil
	case domain.EventTypePriceSet:
		var event = domain.PriceSet{}
		if err := json.Unmarshal(buf, &event); err != nil {
			return nil, err
		}
		return event, nil
	case domain.EventTypeKittyTransferred:
		var event = domain.KittyTransferred{}
		if err := json.Unmarshal(buf, &event); err != nil {
			return nil, err
		}
		return event, nil
	case domain.EventTypeKittyBought:
		var event = domain.KittyBought{}
		if err := json.Unmarshal(buf, &event); err != nil {
			return nil, err
		}
		return event, nil
	}

	return nil, fmt.Errorf("unknown event type %d", eventType.Type)
}
