package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/fairbatch/fairbatch/protocol"
)

// OutcomePublisher streams settled clearing outcomes to downstream
// consumers (indexers, analytics, reconciliation). Publishing happens after
// the batch record is archived; a publish failure is logged, never blocks
// settlement.
type OutcomePublisher interface {
	PublishOutcome(ctx context.Context, outcome *protocol.ClearingOutcome) error
	Close() error
}

// KafkaPublisher writes clearing outcomes as JSON messages keyed by batch ID.
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher creates a publisher writing to topic on the given brokers.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireAll,
			Async:        false,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

func (p *KafkaPublisher) PublishOutcome(ctx context.Context, outcome *protocol.ClearingOutcome) error {
	payload, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("encoding outcome: %w", err)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(outcome.Batch), 10)),
		Value: payload,
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher discards outcomes. Used when no event stream is configured.
type NopPublisher struct{}

func (NopPublisher) PublishOutcome(context.Context, *protocol.ClearingOutcome) error { return nil }
func (NopPublisher) Close() error                                                    { return nil }
