// Package publisher ships audit events to the Kafka audit pipeline.
// Compliance and security events are produced synchronously (fail-closed);
// operations events are fire-and-forget.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "trustplane/pkg/platform/audit"
)

// Publisher emits audit events to a Kafka topic, keyed by category so a
// consumer can route retention policies per partition.
type Publisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithLogger sets a logger for produce failures on the async path.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// New connects to the brokers and ensures the audit topic exists.
func New(ctx context.Context, brokers []string, topic string, opts ...Option) (*Publisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("audit publisher: connect: %w", err)
	}

	admin := kadm.NewClient(client)
	// CreateTopics is idempotent for our purposes: topic-exists errors are
	// reported per topic and ignored here.
	if _, err := admin.CreateTopics(ctx, 3, 1, nil, topic); err != nil {
		client.Close()
		return nil, fmt.Errorf("audit publisher: ensure topic %s: %w", topic, err)
	}

	p := &Publisher{client: client, topic: topic}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Emit publishes one audit event. Compliance and security events block until
// the broker acknowledges; operations events are produced asynchronously.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("audit publisher: encode event: %w", err)
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.Category),
		Value: value,
	}

	if event.Category == audit.CategoryOperations {
		p.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
			if err != nil && p.logger != nil {
				p.logger.Warn("audit produce failed", "action", event.Action, "error", err)
			}
		})
		return nil
	}

	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("audit publisher: produce %s: %w", event.Action, err)
	}
	return nil
}

// Close flushes pending records and releases the client.
func (p *Publisher) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.client.Flush(ctx); err != nil {
		p.client.Close()
		return err
	}
	p.client.Close()
	return nil
}
