package mirror

import (
	"context"
	"sync"

	"github.com/segmentio/kafka-go"
)

// SnapshotProducer delivers snapshot events to Kafka. The engine publishes
// a single event stream, so one lazily created writer serves every batch;
// the topic travels on the message, keeping the outbox row the source of
// routing truth. Messages are hash-balanced on their key so one user's
// events stay ordered within a partition.
type SnapshotProducer struct {
	brokers []string
	mu      sync.Mutex
	writer  *kafka.Writer
}

// NewSnapshotProducer creates a SnapshotProducer for the given brokers.
func NewSnapshotProducer(brokers []string) *SnapshotProducer {
	return &SnapshotProducer{brokers: brokers}
}

// WriteMessages stamps the topic onto each message and delivers the batch.
func (p *SnapshotProducer) WriteMessages(ctx context.Context, topic string, msgs ...kafka.Message) error {
	return p.handle().WriteMessages(ctx, stampTopic(topic, msgs)...)
}

// stampTopic returns a copy of msgs routed to topic. The input batch is
// never mutated: the dispatcher may retry it against a later poll.
func stampTopic(topic string, msgs []kafka.Message) []kafka.Message {
	out := make([]kafka.Message, len(msgs))
	copy(out, msgs)
	for i := range out {
		out[i].Topic = topic
	}
	return out
}

func (p *SnapshotProducer) handle() *kafka.Writer {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.writer == nil {
		p.writer = &kafka.Writer{
			Addr:         kafka.TCP(p.brokers...),
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Compression:  kafka.Snappy,
			Async:        false,
		}
	}
	return p.writer
}

// Close releases the writer. Safe to call before any message was written.
func (p *SnapshotProducer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.writer == nil {
		return nil
	}
	err := p.writer.Close()
	p.writer = nil
	return err
}
