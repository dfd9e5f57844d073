package nats

import (
	"context"
	"fmt"
	"time"

	"ai-docfill-be/pkg/events"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	StreamName    = "DOCFILL_EVENTS"
	SubjectPrefix = "docfill"

	streamMaxAge = 72 * time.Hour
	setupTimeout = 5 * time.Second
)

// Publisher forwards domain events to a JetStream stream. Messages carry the
// event id as Nats-Msg-Id so a retried forward is deduplicated by the server.
type Publisher struct {
	nc *nats.Conn
	js jetstream.JetStream
}

type Option func(*options)

type options struct {
	maxAge      time.Duration
	onStreamErr func(error)
}

func WithMaxAge(d time.Duration) Option {
	return func(o *options) { o.maxAge = d }
}

// WithStreamErrorHandler is called when the stream cannot be created. The
// publisher is still returned since the stream may be managed elsewhere.
func WithStreamErrorHandler(fn func(error)) Option {
	return func(o *options) { o.onStreamErr = fn }
}

func NewPublisher(url string, opts ...Option) (*Publisher, error) {
	o := options{maxAge: streamMaxAge}
	for _, opt := range opts {
		opt(&o)
	}

	nc, err := nats.Connect(url,
		nats.Name("docfill-backend"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), setupTimeout)
	defer cancel()

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:       StreamName,
		Subjects:   []string{SubjectPrefix + ".>"},
		Storage:    jetstream.FileStorage,
		Retention:  jetstream.LimitsPolicy,
		MaxAge:     o.maxAge,
		Duplicates: 2 * time.Minute,
	})
	if err != nil && o.onStreamErr != nil {
		o.onStreamErr(fmt.Errorf("ensure stream %s: %w", StreamName, err))
	}

	return &Publisher{nc: nc, js: js}, nil
}

// Subject maps an event type to its subject, e.g. docfill.document.uploaded.
func Subject(event events.Event) string {
	return SubjectPrefix + "." + event.EventType()
}

func (p *Publisher) Publish(ctx context.Context, event events.Event) error {
	data, err := events.Encode(event)
	if err != nil {
		return err
	}

	subject := Subject(event)
	if _, err := p.js.Publish(ctx, subject, data, jetstream.WithMsgID(event.EventID())); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Close drains pending publishes before closing the connection.
func (p *Publisher) Close() error {
	if p.nc == nil {
		return nil
	}
	return p.nc.Drain()
}
