// Package mirror persists genuine daily snapshots to the remote record
// store and delivers snapshot events to Kafka for downstream consumers.
package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alessandro-lagamba/wellness-coach-sub007/internal/metric"
)

const snapshotTopic = "health_snapshot_events"

// Store provides Postgres-backed persistence for mirrored snapshots plus an
// outbox for event delivery. Mirroring and event recording share one
// transaction so a snapshot row never exists without its event.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// snapshotPayload is the wire representation written to the snapshot row
// and the outbox event.
type snapshotPayload struct {
	UserID           string    `json:"user_id"`
	Day              string    `json:"day"`
	Steps            int       `json:"steps"`
	DistanceKM       float64   `json:"distance_km"`
	Calories         float64   `json:"calories"`
	HeartRateBPM     *float64  `json:"heart_rate_bpm,omitempty"`
	RestingHeartRate *float64  `json:"resting_heart_rate,omitempty"`
	HRVMillis        *float64  `json:"hrv_ms,omitempty"`
	HRVAverage       *float64  `json:"hrv_avg_ms,omitempty"`
	SleepMinutes     int       `json:"sleep_minutes"`
	DeepMinutes      int       `json:"deep_minutes"`
	RemMinutes       int       `json:"rem_minutes"`
	LightMinutes     int       `json:"light_minutes"`
	SleepQuality     *int      `json:"sleep_quality,omitempty"`
	WeightKG         *float64  `json:"weight_kg,omitempty"`
	BodyFatPercent   *float64  `json:"body_fat_percent,omitempty"`
	HydrationML      float64   `json:"hydration_ml"`
	MindfulMinutes   int       `json:"mindful_minutes"`
	SyncedAt         time.Time `json:"synced_at"`
}

func toPayload(userID string, day time.Time, snap metric.DailySnapshot, syncedAt time.Time) snapshotPayload {
	return snapshotPayload{
		UserID:           userID,
		Day:              day.Format("2006-01-02"),
		Steps:            snap.Steps,
		DistanceKM:       snap.DistanceKM,
		Calories:         snap.Calories,
		HeartRateBPM:     snap.HeartRateBPM,
		RestingHeartRate: snap.RestingHeartRate,
		HRVMillis:        snap.HRVMillis,
		HRVAverage:       snap.HRVAverage,
		SleepMinutes:     snap.Sleep.TotalMinutes,
		DeepMinutes:      snap.Sleep.DeepMinutes,
		RemMinutes:       snap.Sleep.RemMinutes,
		LightMinutes:     snap.Sleep.LightMinutes,
		SleepQuality:     snap.Sleep.Quality,
		WeightKG:         snap.WeightKG,
		BodyFatPercent:   snap.BodyFatPercent,
		HydrationML:      snap.HydrationML,
		MindfulMinutes:   snap.MindfulMinutes,
		SyncedAt:         syncedAt.UTC(),
	}
}

// UpsertDailySnapshot writes the snapshot keyed by (user, day) and records
// a snapshot.updated outbox event in the same transaction. The upsert is
// idempotent: replaying the same sync result is harmless.
func (s *Store) UpsertDailySnapshot(ctx context.Context, userID string, day time.Time, snap metric.DailySnapshot, syncedAt time.Time) error {
	payload := toPayload(userID, day, snap, syncedAt)
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	const upsert = `INSERT INTO daily_snapshots (user_id, day, payload, provenance, synced_at, updated_at)
        VALUES ($1, $2, $3, 'genuine', $4, NOW())
        ON CONFLICT (user_id, day)
        DO UPDATE SET payload = EXCLUDED.payload, synced_at = EXCLUDED.synced_at, updated_at = NOW()`

	if _, err = tx.Exec(ctx, upsert, userID, day, body, syncedAt.UTC()); err != nil {
		return err
	}

	dedupeKey := fmt.Sprintf("%s:%s:%d", userID, payload.Day, syncedAt.Unix())
	const insertEvent = `INSERT INTO snapshot_outbox (user_id, day, event_type, topic, partition_key, payload, dedupe_key)
        VALUES ($1, $2, 'snapshot.updated', $3, $4, $5, $6)
        ON CONFLICT (dedupe_key) DO NOTHING`

	if _, err = tx.Exec(ctx, insertEvent, userID, day, snapshotTopic, userID, body, dedupeKey); err != nil {
		return err
	}

	err = tx.Commit(ctx)
	return err
}

// LatestSnapshot returns the most recently mirrored payload for the user,
// or nil when nothing has been mirrored yet.
func (s *Store) LatestSnapshot(ctx context.Context, userID string) (json.RawMessage, error) {
	const query = `SELECT payload FROM daily_snapshots WHERE user_id = $1 ORDER BY day DESC LIMIT 1`

	var payload json.RawMessage
	err := s.pool.QueryRow(ctx, query, userID).Scan(&payload)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return payload, nil
}
