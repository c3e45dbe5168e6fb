package database

import (
	"database/sql"
	"errors"

	_ "modernc.org/sqlite"
)

// DB is the global database instance
var DB *sql.DB

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Init initializes the database connection and creates schema
func Init(dbPath string) error {
	var err error
	DB, err = sql.Open("sqlite", dbPath)
	if err != nil {
		return err
	}

	// Serialize access: modernc sqlite does not like concurrent writers,
	// and the stats upserts are cheap.
	DB.SetMaxOpenConns(1)

	return EnsureSchema()
}

// EnsureSchema creates all necessary database tables
func EnsureSchema() error {
	_, err := DB.Exec(`
CREATE TABLE IF NOT EXISTS monitors (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  url TEXT NOT NULL,
  kind TEXT NOT NULL DEFAULT 'http',
  active INTEGER NOT NULL DEFAULT 1,
  check_interval INTEGER NOT NULL DEFAULT 60,
  timeout INTEGER NOT NULL DEFAULT 10,
  retry_count INTEGER NOT NULL DEFAULT 1,
  accepted_statuses TEXT NOT NULL DEFAULT '',
  follow_redirects INTEGER NOT NULL DEFAULT 1,
  max_redirects INTEGER NOT NULL DEFAULT 10,
  keyword TEXT NOT NULL DEFAULT '',
  keyword_case_sensitive INTEGER NOT NULL DEFAULT 0,
  invert_keyword INTEGER NOT NULL DEFAULT 0,
  verify_tls INTEGER NOT NULL DEFAULT 1,
  expiry_warn_days INTEGER NOT NULL DEFAULT 14,
  created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS monitor_status (
  monitor_id INTEGER PRIMARY KEY,
  last_check_time TEXT,
  last_status_code INTEGER NOT NULL DEFAULT 0,
  last_response_time INTEGER NOT NULL DEFAULT 0,
  is_up INTEGER NOT NULL DEFAULT 0,
  last_error TEXT NOT NULL DEFAULT '',
  total_checks INTEGER NOT NULL DEFAULT 0,
  total_successful_checks INTEGER NOT NULL DEFAULT 0,
  FOREIGN KEY(monitor_id) REFERENCES monitors(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS heartbeats (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  monitor_id INTEGER NOT NULL,
  status INTEGER NOT NULL,
  time TEXT NOT NULL,
  msg TEXT,
  ping INTEGER,
  important INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_heartbeats_monitor ON heartbeats(monitor_id);
CREATE INDEX IF NOT EXISTS idx_heartbeats_time ON heartbeats(time);

CREATE TABLE IF NOT EXISTS stat_minutely (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  monitor_id INTEGER NOT NULL,
  timestamp INTEGER NOT NULL,
  up INTEGER NOT NULL DEFAULT 0,
  down INTEGER NOT NULL DEFAULT 0,
  maintenance INTEGER NOT NULL DEFAULT 0,
  ping REAL,
  ping_min INTEGER,
  ping_max INTEGER,
  ping_count INTEGER NOT NULL DEFAULT 0,
  UNIQUE(monitor_id, timestamp)
);
CREATE INDEX IF NOT EXISTS idx_stat_minutely_ts ON stat_minutely(timestamp);

CREATE TABLE IF NOT EXISTS stat_hourly (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  monitor_id INTEGER NOT NULL,
  timestamp INTEGER NOT NULL,
  up INTEGER NOT NULL DEFAULT 0,
  down INTEGER NOT NULL DEFAULT 0,
  maintenance INTEGER NOT NULL DEFAULT 0,
  ping REAL,
  ping_min INTEGER,
  ping_max INTEGER,
  ping_count INTEGER NOT NULL DEFAULT 0,
  UNIQUE(monitor_id, timestamp)
);
CREATE INDEX IF NOT EXISTS idx_stat_hourly_ts ON stat_hourly(timestamp);

CREATE TABLE IF NOT EXISTS stat_daily (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  monitor_id INTEGER NOT NULL,
  timestamp INTEGER NOT NULL,
  up INTEGER NOT NULL DEFAULT 0,
  down INTEGER NOT NULL DEFAULT 0,
  maintenance INTEGER NOT NULL DEFAULT 0,
  ping REAL,
  ping_min INTEGER,
  ping_max INTEGER,
  ping_count INTEGER NOT NULL DEFAULT 0,
  UNIQUE(monitor_id, timestamp)
);
CREATE INDEX IF NOT EXISTS idx_stat_daily_ts ON stat_daily(timestamp);
`)
	if err != nil {
		return err
	}

	_, err = DB.Exec(`PRAGMA foreign_keys = ON`)
	return err
}
