package database

import (
	"database/sql"
	"errors"
	"time"

	"github.com/imfelmardotdev/tasty-uptimefel-sub000/app/internal/models"
)

const monitorCols = `id, name, url, kind, active, check_interval, timeout, retry_count,
	accepted_statuses, follow_redirects, max_redirects,
	keyword, keyword_case_sensitive, invert_keyword,
	verify_tls, expiry_warn_days, created_at`

func scanMonitor(row interface{ Scan(...any) error }) (*models.Monitor, error) {
	var m models.Monitor
	var active, follow, caseSense, invert, verify int
	var createdAt string
	err := row.Scan(&m.ID, &m.Name, &m.URL, &m.Kind, &active, &m.CheckIntervalSecs,
		&m.TimeoutSecs, &m.RetryCount, &m.AcceptedStatuses, &follow, &m.MaxRedirects,
		&m.Keyword, &caseSense, &invert, &verify, &m.ExpiryWarnDays, &createdAt)
	if err != nil {
		return nil, err
	}
	m.Active = active != 0
	m.FollowRedirects = follow != 0
	m.KeywordCaseSense = caseSense != 0
	m.InvertKeyword = invert != 0
	m.VerifyTLS = verify != 0
	m.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &m, nil
}

// ListActiveMonitors returns all monitors with active = 1.
func ListActiveMonitors() ([]*models.Monitor, error) {
	rows, err := DB.Query(`SELECT ` + monitorCols + ` FROM monitors WHERE active = 1 ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var monitors []*models.Monitor
	for rows.Next() {
		m, err := scanMonitor(rows)
		if err != nil {
			return nil, err
		}
		monitors = append(monitors, m)
	}
	return monitors, rows.Err()
}

// GetMonitor returns a monitor by id.
func GetMonitor(id int64) (*models.Monitor, error) {
	m, err := scanMonitor(DB.QueryRow(`SELECT `+monitorCols+` FROM monitors WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return m, err
}

// CreateMonitor inserts a new monitor together with its (empty) status row.
func CreateMonitor(m *models.Monitor) (int64, error) {
	boolInt := func(b bool) int {
		if b {
			return 1
		}
		return 0
	}

	tx, err := DB.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		INSERT INTO monitors (name, url, kind, active, check_interval, timeout, retry_count,
			accepted_statuses, follow_redirects, max_redirects,
			keyword, keyword_case_sensitive, invert_keyword,
			verify_tls, expiry_warn_days, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.Name, m.URL, m.Kind, boolInt(m.Active), m.CheckIntervalSecs, m.TimeoutSecs,
		m.RetryCount, m.AcceptedStatuses, boolInt(m.FollowRedirects), m.MaxRedirects,
		m.Keyword, boolInt(m.KeywordCaseSense), boolInt(m.InvertKeyword),
		boolInt(m.VerifyTLS), m.ExpiryWarnDays, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	// Status row is created together with the monitor and cascades on delete.
	if _, err := tx.Exec(`INSERT INTO monitor_status (monitor_id) VALUES (?)`, id); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	m.ID = id
	return id, nil
}

// DeleteMonitor removes a monitor; the status row cascades.
func DeleteMonitor(id int64) error {
	_, err := DB.Exec(`DELETE FROM monitors WHERE id = ?`, id)
	return err
}

// GetMonitorStatus returns the current status projection for a monitor.
// A status row that has never been checked has a nil LastCheckTime.
func GetMonitorStatus(id int64) (*models.MonitorStatus, error) {
	var s models.MonitorStatus
	var lastCheck sql.NullString
	var isUp int
	err := DB.QueryRow(`
		SELECT monitor_id, last_check_time, last_status_code, last_response_time,
		       is_up, last_error, total_checks, total_successful_checks
		FROM monitor_status WHERE monitor_id = ?`, id).Scan(
		&s.MonitorID, &lastCheck, &s.LastStatusCode, &s.LastResponseTime,
		&isUp, &s.LastError, &s.TotalChecks, &s.TotalSuccessful)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	s.IsUp = isUp != 0
	if lastCheck.Valid {
		if t, perr := time.Parse(time.RFC3339, lastCheck.String); perr == nil {
			s.LastCheckTime = &t
		}
	}
	return &s, nil
}

// UpsertMonitorStatus overwrites the status projection after a check.
func UpsertMonitorStatus(s *models.MonitorStatus) error {
	isUp := 0
	if s.IsUp {
		isUp = 1
	}
	var lastCheck any
	if s.LastCheckTime != nil {
		lastCheck = s.LastCheckTime.UTC().Format(time.RFC3339)
	}
	_, err := DB.Exec(`
		INSERT INTO monitor_status (monitor_id, last_check_time, last_status_code,
			last_response_time, is_up, last_error, total_checks, total_successful_checks)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(monitor_id) DO UPDATE SET
			last_check_time = excluded.last_check_time,
			last_status_code = excluded.last_status_code,
			last_response_time = excluded.last_response_time,
			is_up = excluded.is_up,
			last_error = excluded.last_error,
			total_checks = excluded.total_checks,
			total_successful_checks = excluded.total_successful_checks`,
		s.MonitorID, lastCheck, s.LastStatusCode, s.LastResponseTime,
		isUp, s.LastError, s.TotalChecks, s.TotalSuccessful)
	return err
}
