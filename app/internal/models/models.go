package models

import "time"

// Heartbeat status values. MAINTENANCE still counts toward uptime;
// PENDING counts as down.
const (
	StatusDown        = 0
	StatusUp          = 1
	StatusPending     = 2
	StatusMaintenance = 3
)

// Probe kinds supported by the checker.
const (
	KindHTTP    = "http"
	KindHTTPS   = "https"
	KindKeyword = "keyword"
)

// Monitor is a monitored endpoint under periodic observation.
type Monitor struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	URL    string `json:"url"`
	Kind   string `json:"kind"` // http, https, keyword
	Active bool   `json:"active"`

	// Scheduling
	CheckIntervalSecs int `json:"check_interval"`
	TimeoutSecs       int `json:"timeout"`
	RetryCount        int `json:"retry_count"`

	// Response acceptance. Raw configured string ("200-299,404"); parsed into
	// a typed range list once at load time, not per probe.
	AcceptedStatuses string `json:"accepted_statuses"`

	// Redirect policy
	FollowRedirects bool `json:"follow_redirects"`
	MaxRedirects    int  `json:"max_redirects"`

	// Keyword kind
	Keyword          string `json:"keyword"`
	KeywordCaseSense bool   `json:"keyword_case_sensitive"`
	InvertKeyword    bool   `json:"invert_keyword"`

	// HTTPS kind
	VerifyTLS      bool `json:"verify_tls"`
	ExpiryWarnDays int  `json:"expiry_warn_days"`

	CreatedAt time.Time `json:"created_at"`
}

// MonitorStatus is the current projection per monitor, overwritten on every
// check. Derivable by replaying heartbeats, kept denormalized for O(1) reads.
type MonitorStatus struct {
	MonitorID        int64      `json:"monitor_id"`
	LastCheckTime    *time.Time `json:"last_check_time"`
	LastStatusCode   int        `json:"last_status_code"`
	LastResponseTime int        `json:"last_response_time"`
	IsUp             bool       `json:"is_up"`
	LastError        string     `json:"last_error"`
	TotalChecks      int64      `json:"total_checks"`
	TotalSuccessful  int64      `json:"total_successful_checks"`
}

// Heartbeat is one persisted probe outcome.
type Heartbeat struct {
	MonitorID int64     `json:"monitor_id"`
	Status    int       `json:"status"`
	Time      time.Time `json:"time"`
	Msg       string    `json:"msg"`
	Ping      *int      `json:"ping"`
	Important bool      `json:"important"` // status change event
}

// NotificationEvent is handed to the notification sink on an up/down
// transition.
type NotificationEvent struct {
	MonitorID    int64     `json:"monitor_id"`
	MonitorName  string    `json:"monitor_name"`
	PreviousUp   bool      `json:"previous_up"`
	NewUp        bool      `json:"new_up"`
	StatusCode   int       `json:"status_code"`
	ResponseTime int       `json:"response_time"`
	ErrorMessage string    `json:"error_message"`
	Timestamp    time.Time `json:"timestamp"`
}
