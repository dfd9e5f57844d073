package service

import (
	"context"

	"ai-docfill-be/internal/pkg/logger"
	"ai-docfill-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
)

type IPublisherService interface {
	Publish(ctx context.Context, event events.Event)
}

type publisherService struct {
	topicName string
	pubSub    message.Publisher
	logger    logger.ILogger
}

func NewPublisherService(topicName string, pubSub message.Publisher, log logger.ILogger) IPublisherService {
	return &publisherService{
		topicName: topicName,
		pubSub:    pubSub,
		logger:    log,
	}
}

// Publish is fire and forget: a failed publish is logged and never fails
// the request that produced the event. The request context is not attached
// to the message since consumers outlive the request.
func (ps *publisherService) Publish(_ context.Context, event events.Event) {
	payload, err := events.Encode(event)
	if err != nil {
		ps.logger.Error("EVENTS", "Failed to marshal event", map[string]interface{}{
			"type":  event.EventType(),
			"error": err.Error(),
		})
		return
	}

	msg := message.NewMessage(event.EventID(), payload)
	msg.Metadata.Set("type", event.EventType())

	if err := ps.pubSub.Publish(ps.topicName, msg); err != nil {
		ps.logger.Error("EVENTS", "Failed to publish event", map[string]interface{}{
			"type":  event.EventType(),
			"error": err.Error(),
		})
	}
}
