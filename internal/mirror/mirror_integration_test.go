//go:build integration

package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/alessandro-lagamba/wellness-coach-sub007/internal/metric"
)

func TestStoreUpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	pool, cleanup := setupPostgres(t, ctx)
	defer cleanup()

	store := NewStore(pool)
	userID := uuid.NewString()
	day := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
	syncedAt := day.Add(9 * time.Hour)
	snap := metric.DailySnapshot{
		Day:          day,
		Steps:        8200,
		DistanceKM:   6.2484,
		HeartRateBPM: metric.Float64(71),
		Sleep:        metric.SleepSummary{TotalMinutes: 420, Quality: metric.Int(74)},
	}

	require.NoError(t, store.UpsertDailySnapshot(ctx, userID, day, snap, syncedAt))
	require.NoError(t, store.UpsertDailySnapshot(ctx, userID, day, snap, syncedAt))

	var rows int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM daily_snapshots WHERE user_id = $1`, userID).Scan(&rows))
	require.Equal(t, 1, rows)

	// Replaying the same sync result produces no duplicate outbox event.
	var events int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM snapshot_outbox WHERE user_id = $1`, userID).Scan(&events))
	require.Equal(t, 1, events)

	payload, err := store.LatestSnapshot(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, payload)

	var decoded snapshotPayload
	require.NoError(t, json.Unmarshal(payload, &decoded))
	require.Equal(t, 8200, decoded.Steps)
	require.Equal(t, "2025-03-10", decoded.Day)
}

func TestStoreLaterSyncOverwritesTheDay(t *testing.T) {
	ctx := context.Background()
	pool, cleanup := setupPostgres(t, ctx)
	defer cleanup()

	store := NewStore(pool)
	userID := uuid.NewString()
	day := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.UpsertDailySnapshot(ctx, userID, day,
		metric.DailySnapshot{Day: day, Steps: 4000}, day.Add(9*time.Hour)))
	require.NoError(t, store.UpsertDailySnapshot(ctx, userID, day,
		metric.DailySnapshot{Day: day, Steps: 9100}, day.Add(18*time.Hour)))

	payload, err := store.LatestSnapshot(ctx, userID)
	require.NoError(t, err)

	var decoded snapshotPayload
	require.NoError(t, json.Unmarshal(payload, &decoded))
	require.Equal(t, 9100, decoded.Steps)

	var events int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM snapshot_outbox WHERE user_id = $1`, userID).Scan(&events))
	require.Equal(t, 2, events, "each distinct sync gets its own event")
}

func TestDispatcherPublishesAndMarksRows(t *testing.T) {
	ctx := context.Background()
	pool, cleanup := setupPostgres(t, ctx)
	defer cleanup()

	store := NewStore(pool)
	userID := uuid.NewString()
	day := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.UpsertDailySnapshot(ctx, userID, day,
		metric.DailySnapshot{Day: day, Steps: 8200}, day.Add(9*time.Hour)))

	producer := &stubProducer{}
	dispatcher := NewDispatcher(pool, producer, 10*time.Millisecond, 5)

	beforeDelivered := testutil.ToFloat64(deliveredEvents)

	require.NoError(t, dispatcher.processBatch(ctx))

	require.Len(t, producer.writes, 1)
	require.Equal(t, snapshotTopic, producer.writes[0].topic)
	require.Len(t, producer.writes[0].messages, 1)
	require.Equal(t, []byte(userID), producer.writes[0].messages[0].Key)

	afterDelivered := testutil.ToFloat64(deliveredEvents)
	require.InDelta(t, beforeDelivered+1, afterDelivered, 0.0001)

	var published int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM snapshot_outbox WHERE published_at IS NOT NULL`).Scan(&published))
	require.Equal(t, 1, published)
}

func TestDispatcherLeavesBatchForRetryOnFailure(t *testing.T) {
	ctx := context.Background()
	pool, cleanup := setupPostgres(t, ctx)
	defer cleanup()

	store := NewStore(pool)
	day := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.UpsertDailySnapshot(ctx, uuid.NewString(), day,
		metric.DailySnapshot{Day: day, Steps: 8200}, day.Add(9*time.Hour)))

	producer := &stubProducer{err: errors.New("kafka write failed")}
	dispatcher := NewDispatcher(pool, producer, 10*time.Millisecond, 5)

	beforeFailed := testutil.ToFloat64(failedEvents)

	require.NoError(t, dispatcher.processBatch(ctx))

	afterFailed := testutil.ToFloat64(failedEvents)
	require.InDelta(t, beforeFailed+1, afterFailed, 0.0001)

	var published int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM snapshot_outbox WHERE published_at IS NOT NULL`).Scan(&published))
	require.Equal(t, 0, published, "undelivered rows stay unpublished")

	// Once the broker recovers the same row goes out.
	producer.setErr(nil)
	require.NoError(t, dispatcher.processBatch(ctx))
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM snapshot_outbox WHERE published_at IS NOT NULL`).Scan(&published))
	require.Equal(t, 1, published)
}

type stubProducer struct {
	mu     sync.Mutex
	err    error
	writes []writtenBatch
}

type writtenBatch struct {
	topic    string
	messages []kafka.Message
}

func (s *stubProducer) WriteMessages(ctx context.Context, topic string, msgs ...kafka.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}

	copied := make([]kafka.Message, len(msgs))
	copy(copied, msgs)

	s.writes = append(s.writes, writtenBatch{topic: topic, messages: copied})
	return nil
}

func (s *stubProducer) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func setupPostgres(t *testing.T, ctx context.Context) (*pgxpool.Pool, func()) {
	t.Helper()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("wellness"),
		postgrescontainer.WithUsername("platform"),
		postgrescontainer.WithPassword("platform"),
	)
	require.NoError(t, err)

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, waitForDatabase(ctx, connStr))

	runMigrations(t, ctx, connStr)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	cleanup := func() {
		pool.Close()
		_ = pg.Terminate(ctx)
	}
	return pool, cleanup
}

func runMigrations(t *testing.T, ctx context.Context, connStr string) {
	t.Helper()

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	defer pool.Close()

	migrationsDir := resolvePath(t, "../../db/postgres/migrations")
	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.up.sql"))
	require.NoError(t, err)
	require.NotEmpty(t, files, "expected at least one migration .up.sql file")

	sort.Strings(files)

	for _, file := range files {
		contents, readErr := os.ReadFile(file)
		require.NoErrorf(t, readErr, "read migration %s", file)

		if _, execErr := pool.Exec(ctx, string(contents)); execErr != nil {
			require.NoErrorf(t, execErr, "execute migration %s", file)
		}
	}
}

func resolvePath(t *testing.T, rel string) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), rel)
}

func waitForDatabase(ctx context.Context, connStr string) error {
	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, err := pgxpool.New(ctx, connStr)
		if err == nil {
			err = pool.Ping(ctx)
			pool.Close()
			if err == nil {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(time.Second)
	}
}
