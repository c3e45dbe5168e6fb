package database

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/imfelmardotdev/tasty-uptimefel-sub000/app/internal/models"
)

// statTable maps a resolution to its table name. Table names cannot be bound
// as parameters, so callers go through this switch.
func statTable(r models.Resolution) string {
	switch r {
	case models.ResolutionHour:
		return "stat_hourly"
	case models.ResolutionDay:
		return "stat_daily"
	default:
		return "stat_minutely"
	}
}

// BucketDelta is the per-heartbeat increment applied to one bucket of each
// resolution. Ping fields are set only for UP heartbeats that carried a ping.
type BucketDelta struct {
	Up          int
	Down        int
	Maintenance int
	Ping        *int
}

// upsertBucketStmt builds the accumulate-on-conflict upsert for one stat
// table. Counts add; the running ping mean is recomputed from ping_count so
// that two writers for different monitors never conflict and replays
// accumulate instead of overwriting.
func upsertBucketStmt(table string) string {
	return fmt.Sprintf(`
		INSERT INTO %[1]s (monitor_id, timestamp, up, down, maintenance, ping, ping_min, ping_max, ping_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(monitor_id, timestamp) DO UPDATE SET
			up = up + excluded.up,
			down = down + excluded.down,
			maintenance = maintenance + excluded.maintenance,
			ping = CASE
				WHEN excluded.ping_count > 0 THEN
					(COALESCE(%[1]s.ping, 0) * %[1]s.ping_count + excluded.ping * excluded.ping_count)
						/ (%[1]s.ping_count + excluded.ping_count)
				ELSE %[1]s.ping
			END,
			ping_min = CASE
				WHEN excluded.ping_count > 0 THEN
					COALESCE(MIN(%[1]s.ping_min, excluded.ping_min), excluded.ping_min)
				ELSE %[1]s.ping_min
			END,
			ping_max = CASE
				WHEN excluded.ping_count > 0 THEN
					COALESCE(MAX(%[1]s.ping_max, excluded.ping_max), excluded.ping_max)
				ELSE %[1]s.ping_max
			END,
			ping_count = ping_count + excluded.ping_count`, table)
}

// ErrPersistence categorizes any storage failure while recording a heartbeat.
// The scheduler logs it and moves on to the next monitor.
var ErrPersistence = errors.New("PERSISTENCE_ERROR")

// RecordHeartbeat applies one heartbeat atomically: the minute, hour and day
// buckets are accumulated and the heartbeat row is appended in a single
// transaction. Any statement failure rolls back the whole write and comes
// back wrapped in ErrPersistence.
func RecordHeartbeat(hb *models.Heartbeat, delta BucketDelta) error {
	if err := recordHeartbeat(hb, delta); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

func recordHeartbeat(hb *models.Heartbeat, delta BucketDelta) error {
	tx, err := DB.Begin()
	if err != nil {
		return fmt.Errorf("begin heartbeat tx: %w", err)
	}
	defer tx.Rollback()

	pingCount := 0
	var ping, pingMinMax any
	if delta.Ping != nil {
		pingCount = 1
		ping = float64(*delta.Ping)
		pingMinMax = *delta.Ping
	}

	for _, r := range []models.Resolution{models.ResolutionMinute, models.ResolutionHour, models.ResolutionDay} {
		key := r.BucketKey(hb.Time)
		_, err := tx.Exec(upsertBucketStmt(statTable(r)),
			hb.MonitorID, key, delta.Up, delta.Down, delta.Maintenance,
			ping, pingMinMax, pingMinMax, pingCount)
		if err != nil {
			return fmt.Errorf("upsert %s bucket: %w", r, err)
		}
	}

	important := 0
	if hb.Important {
		important = 1
	}
	var pingVal any
	if hb.Ping != nil {
		pingVal = *hb.Ping
	}
	_, err = tx.Exec(`
		INSERT INTO heartbeats (monitor_id, status, time, msg, ping, important)
		VALUES (?, ?, ?, ?, ?, ?)`,
		hb.MonitorID, hb.Status, hb.Time.UTC().Format(time.RFC3339), hb.Msg, pingVal, important)
	if err != nil {
		return fmt.Errorf("insert heartbeat: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit heartbeat tx: %w", err)
	}
	return nil
}

// QueryBuckets returns persisted buckets for one monitor with
// timestamp >= since, oldest first.
func QueryBuckets(r models.Resolution, monitorID int64, since int64) ([]models.StatBucket, error) {
	rows, err := DB.Query(fmt.Sprintf(`
		SELECT timestamp, up, down, maintenance,
		       COALESCE(ping, 0), COALESCE(ping_min, 0), COALESCE(ping_max, 0), ping_count
		FROM %s WHERE monitor_id = ? AND timestamp >= ?
		ORDER BY timestamp ASC`, statTable(r)), monitorID, since)
	if err != nil {
		return nil, fmt.Errorf("query %s buckets: %w", r, err)
	}
	defer rows.Close()

	var buckets []models.StatBucket
	for rows.Next() {
		var b models.StatBucket
		if err := rows.Scan(&b.Timestamp, &b.Up, &b.Down, &b.Maintenance,
			&b.AvgPing, &b.MinPing, &b.MaxPing, &b.PingCount); err != nil {
			return nil, err
		}
		buckets = append(buckets, b)
	}
	return buckets, rows.Err()
}

// QueryHeartbeats returns the most recent heartbeats for a monitor,
// newest first.
func QueryHeartbeats(monitorID int64, limit int) ([]models.Heartbeat, error) {
	rows, err := DB.Query(`
		SELECT monitor_id, status, time, COALESCE(msg, ''), ping, important
		FROM heartbeats WHERE monitor_id = ?
		ORDER BY id DESC LIMIT ?`, monitorID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hbs []models.Heartbeat
	for rows.Next() {
		var hb models.Heartbeat
		var ts string
		var ping *int
		var important int
		if err := rows.Scan(&hb.MonitorID, &hb.Status, &ts, &hb.Msg, &ping, &important); err != nil {
			return nil, err
		}
		hb.Time, _ = time.Parse(time.RFC3339, ts)
		hb.Ping = ping
		hb.Important = important != 0
		hbs = append(hbs, hb)
	}
	return hbs, rows.Err()
}

// PruneStats deletes buckets that fell outside each resolution's retention
// horizon. Safe to run out-of-band: only rows unreachable from the query
// window are removed.
func PruneStats(now time.Time) {
	for _, r := range []models.Resolution{models.ResolutionMinute, models.ResolutionHour, models.ResolutionDay} {
		cutoff := r.RetentionCutoff(now)
		if _, err := DB.Exec(fmt.Sprintf(`DELETE FROM %s WHERE timestamp < ?`, statTable(r)), cutoff); err != nil {
			log.Printf("Error pruning %s stats: %v", r, err)
		}
	}
}

// PruneHeartbeats removes raw heartbeats older than 24 hours, keeping
// status-change rows for 7 days.
func PruneHeartbeats(now time.Time) {
	dayAgo := now.UTC().Add(-24 * time.Hour).Format(time.RFC3339)
	if _, err := DB.Exec(`DELETE FROM heartbeats WHERE time < ? AND important = 0`, dayAgo); err != nil {
		log.Printf("Error pruning heartbeats: %v", err)
	}

	weekAgo := now.UTC().Add(-7 * 24 * time.Hour).Format(time.RFC3339)
	if _, err := DB.Exec(`DELETE FROM heartbeats WHERE time < ?`, weekAgo); err != nil {
		log.Printf("Error pruning important heartbeats: %v", err)
	}
}
