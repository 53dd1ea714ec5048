// Package kafka publishes audit events to a Kafka topic for downstream
// SIEM / compliance consumers.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	audit "cohort/pkg/platform/audit"
)

// Sink publishes audit events to a single Kafka topic. Events are keyed by
// subject so all events for one principal land on the same partition.
type Sink struct {
	client *kgo.Client
	topic  string
}

// New connects to the given brokers. Returns an error if the client cannot
// be constructed; broker reachability is checked lazily on first produce.
func New(brokers []string, topic string) (*Sink, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &Sink{client: client, topic: topic}, nil
}

func (s *Sink) Publish(ctx context.Context, event audit.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	record := &kgo.Record{
		Key:   []byte(event.Subject),
		Value: payload,
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

func (s *Sink) Close() {
	s.client.Close()
}
