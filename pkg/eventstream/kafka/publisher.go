// Package kafka implements the eventstream Publisher on a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/rhoadesScholar/llm-experiments/pkg/eventstream"
)

// DefaultTopic is the topic record events are published to when none is
// configured.
const DefaultTopic = "telephone.records"

// Publisher writes record events to a Kafka topic, keyed by run ID so all
// records of one run land in the same partition, in order.
type Publisher struct {
	writer *kafka.Writer
}

// Config holds Kafka publisher settings.
type Config struct {
	// Brokers is the list of bootstrap broker addresses.
	Brokers []string

	// Topic is the destination topic. Defaults to DefaultTopic if empty.
	Topic string
}

// NewPublisher creates a Kafka-backed eventstream publisher.
func NewPublisher(cfg Config) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher requires at least one broker")
	}

	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}

	return &Publisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(cfg.Brokers...),
			Topic:    topic,
			Balancer: &kafka.Hash{},
		},
	}, nil
}

// PublishRecord marshals the event and writes it to the topic.
func (p *Publisher) PublishRecord(ctx context.Context, event *eventstream.RecordCompletedEvent) error {
	if event == nil {
		return eventstream.ErrNilRecordEvent
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal record event: %w", err)
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.RunID),
		Value: payload,
	}); err != nil {
		return fmt.Errorf("write record event: %w", err)
	}

	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
