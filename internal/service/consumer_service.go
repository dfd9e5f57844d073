package service

import (
	"context"

	"ai-docfill-be/internal/pkg/logger"
	"ai-docfill-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
)

// EventForwarder sends events to an external bus (NATS JetStream).
type EventForwarder interface {
	Publish(ctx context.Context, event events.Event) error
}

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	pubSub    message.Subscriber
	topicName string
	audit     logger.ILogger
	forwarder EventForwarder
	logger    logger.ILogger
}

// NewConsumerService writes every domain event to the audit log and, when
// forwarder is non-nil, republishes it.
func NewConsumerService(
	pubSub message.Subscriber,
	topicName string,
	audit logger.ILogger,
	forwarder EventForwarder,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		pubSub:    pubSub,
		topicName: topicName,
		audit:     audit,
		forwarder: forwarder,
		logger:    log,
	}
}

// Consume subscribes and processes messages in the background until ctx is
// cancelled or the pub/sub is closed.
func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	event, err := events.Decode(msg.Payload)
	if err != nil {
		cs.logger.Error("EVENTS", "Failed to unmarshal event", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	details := map[string]interface{}{
		"event_id":    event.ID,
		"file_id":     event.FileID,
		"occurred_at": event.OccurredAt,
	}
	for k, v := range event.Data {
		details[k] = v
	}
	cs.audit.Info("AUDIT", event.Type, details)

	if cs.forwarder != nil {
		if err := cs.forwarder.Publish(ctx, event); err != nil {
			cs.logger.Warn("EVENTS", "Failed to forward event", map[string]interface{}{
				"type":  event.Type,
				"error": err.Error(),
			})
		}
	}

	msg.Ack()
}
