package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"ai-docfill-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type recordingForwarder struct {
	mu     sync.Mutex
	events []events.Event
}

func (f *recordingForwarder) Publish(_ context.Context, event events.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *recordingForwarder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

func TestConsumerService_AuditsAndForwards(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	audit := &recordingLogger{}
	forwarder := &recordingForwarder{}
	ctx, cancel := context.WithCancel(context.Background())

	consumer := NewConsumerService(pubSub, "DOCFILL_EVENTS", audit, forwarder, &recordingLogger{})
	require.NoError(t, consumer.Consume(ctx))

	publisher := NewPublisherService("DOCFILL_EVENTS", pubSub, &recordingLogger{})
	publisher.Publish(ctx, events.DocumentUploaded("f-1", "safe", []string{"Company"}))
	publisher.Publish(ctx, events.DocumentFilled("f-1", 1, nil))

	assert.Eventually(t, func() bool {
		return len(audit.snapshot()) == 2 && forwarder.count() == 2
	}, 2*time.Second, 10*time.Millisecond)

	entries := audit.snapshot()
	require.Len(t, entries, 2)
	assert.Equal(t, "AUDIT", entries[0].Module)
	assert.Equal(t, events.TypeDocumentUploaded, entries[0].Message)
	assert.Equal(t, "safe", entries[0].Details["doc_type"])
	assert.Equal(t, "f-1", entries[0].Details["file_id"])
	assert.Equal(t, events.TypeDocumentFilled, entries[1].Message)

	cancel()
	require.NoError(t, pubSub.Close())
}

func TestConsumerService_AcksMalformedPayload(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	audit := &recordingLogger{}
	errs := &recordingLogger{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumer := NewConsumerService(pubSub, "t", audit, nil, errs)
	require.NoError(t, consumer.Consume(ctx))

	require.NoError(t, pubSub.Publish("t", newRawMessage("not json")))

	assert.Eventually(t, func() bool {
		return len(errs.snapshot()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Empty(t, audit.snapshot())
}

func newRawMessage(payload string) *message.Message {
	return message.NewMessage(watermill.NewUUID(), []byte(payload))
}
