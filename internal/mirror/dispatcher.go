package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, topic string, msgs ...kafka.Message) error
}

// Dispatcher drains the snapshot outbox and delivers events to Kafka.
// Undelivered rows stay unpublished and are picked up again on the next
// poll, which is how mirror failures get retried on a later cycle instead
// of inline.
type Dispatcher struct {
	pool             *pgxpool.Pool
	producer         messageWriter
	pollInterval     time.Duration
	batchSize        int
	logger           *log.Logger
	shutdownComplete chan struct{}
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(pool *pgxpool.Pool, producer messageWriter, pollInterval time.Duration, batchSize int) *Dispatcher {
	return &Dispatcher{
		pool:             pool,
		producer:         producer,
		pollInterval:     pollInterval,
		batchSize:        batchSize,
		logger:           log.New(log.Writer(), "[mirror] ", log.LstdFlags),
		shutdownComplete: make(chan struct{}),
	}
}

// Start launches the polling loop. It should be called in a goroutine.
func (d *Dispatcher) Start(ctx context.Context) {
	ticker := time.NewTicker(d.pollInterval)
	defer func() {
		ticker.Stop()
		close(d.shutdownComplete)
	}()

	for {
		if err := d.processBatch(ctx); err != nil && !errors.Is(err, context.Canceled) {
			d.logger.Printf("dispatch error: %v", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Wait blocks until the dispatcher stops.
func (d *Dispatcher) Wait() {
	<-d.shutdownComplete
}

// Event is one row fetched from the snapshot outbox.
type Event struct {
	EventID      int64
	UserID       string
	EventType    string
	Topic        string
	PartitionKey string
	Payload      json.RawMessage
}

func (d *Dispatcher) processBatch(ctx context.Context) error {
	start := time.Now()

	events, err := d.fetchAndClaim(ctx)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}
	defer dispatchDuration.Observe(time.Since(start).Seconds())

	if err := d.deliver(ctx, events); err != nil {
		// Leave the batch unpublished; the next poll retries it.
		failedEvents.Add(float64(len(events)))
		d.logger.Printf("delivery failure, will retry: %v", err)
		return nil
	}

	deliveredEvents.Add(float64(len(events)))
	return d.markPublished(ctx, events)
}

func (d *Dispatcher) fetchAndClaim(ctx context.Context) ([]Event, error) {
	tx, err := d.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	const query = `SELECT event_id, user_id, event_type, topic, partition_key, payload
        FROM snapshot_outbox
        WHERE published_at IS NULL
        ORDER BY event_id
        LIMIT $1
        FOR UPDATE SKIP LOCKED`

	rows, err := tx.Query(ctx, query, d.batchSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]Event, 0)
	ids := make([]int64, 0)
	for rows.Next() {
		var event Event
		if err = rows.Scan(&event.EventID, &event.UserID, &event.EventType, &event.Topic, &event.PartitionKey, &event.Payload); err != nil {
			return nil, err
		}
		events = append(events, event)
		ids = append(ids, event.EventID)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	if len(ids) == 0 {
		tx.Rollback(ctx)
		return nil, nil
	}

	if _, err = tx.Exec(ctx, `UPDATE snapshot_outbox SET claimed_at = NOW() WHERE event_id = ANY($1)`, ids); err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, err
	}

	return events, nil
}

func (d *Dispatcher) deliver(ctx context.Context, events []Event) error {
	batches := make(map[string][]kafka.Message)
	for _, event := range events {
		record := kafka.Message{
			Key:   []byte(event.PartitionKey),
			Value: event.Payload,
			Time:  time.Now().UTC(),
			Headers: []kafka.Header{
				{Key: "event_type", Value: []byte(event.EventType)},
				{Key: "user_id", Value: []byte(event.UserID)},
			},
		}
		batches[event.Topic] = append(batches[event.Topic], record)
	}

	for topic, msgs := range batches {
		if err := d.producer.WriteMessages(ctx, topic, msgs...); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) markPublished(ctx context.Context, events []Event) error {
	ids := make([]int64, 0, len(events))
	for _, event := range events {
		ids = append(ids, event.EventID)
	}

	_, err := d.pool.Exec(ctx, `UPDATE snapshot_outbox SET published_at = NOW() WHERE event_id = ANY($1)`, ids)
	return err
}
