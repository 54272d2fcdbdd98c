package sink

import (
	"context"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	audit "sarflow/pkg/platform/audit"
)

// Producer is the subset of *kgo.Client used by Kafka.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Flush(ctx context.Context) error
	Close()
}

// Kafka publishes each entry as one record keyed by case id, so entries for
// the same case land on the same partition in order.
type Kafka struct {
	producer Producer
	topic    string
}

func NewKafka(producer Producer, topic string) *Kafka {
	return &Kafka{producer: producer, topic: topic}
}

func (s *Kafka) Name() string { return "kafka" }

func (s *Kafka) Append(ctx context.Context, entry audit.Entry, line []byte) error {
	rec := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(entry.CaseID),
		Value: line,
		Headers: []kgo.RecordHeader{
			{Key: "agent_type", Value: []byte(entry.AgentType)},
			{Key: "action", Value: []byte(entry.Action)},
		},
	}
	if err := s.producer.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("produce to %s: %w", s.topic, err)
	}
	return nil
}

func (s *Kafka) Close() error {
	err := s.producer.Flush(context.Background())
	s.producer.Close()
	return err
}
