package models

import "time"

// Resolution is one of the three aggregation granularities.
type Resolution string

const (
	ResolutionMinute Resolution = "minute"
	ResolutionHour   Resolution = "hour"
	ResolutionDay    Resolution = "day"
)

// PeriodSeconds returns the bucket width in seconds.
func (r Resolution) PeriodSeconds() int64 {
	switch r {
	case ResolutionHour:
		return 3600
	case ResolutionDay:
		return 86400
	default:
		return 60
	}
}

// Capacity returns how many buckets are retained, in memory and on disk:
// 24h of minutes, 30d of hours, 365 days. The in-memory window size and the
// persisted retention horizon must stay equal.
func (r Resolution) Capacity() int {
	switch r {
	case ResolutionHour:
		return 720
	case ResolutionDay:
		return 365
	default:
		return 1440
	}
}

// BucketKey returns the UTC-aligned start-of-period timestamp for t.
func (r Resolution) BucketKey(t time.Time) int64 {
	p := r.PeriodSeconds()
	return t.UTC().Unix() / p * p
}

// RetentionCutoff returns the oldest bucket key still inside the retention
// horizon as of now.
func (r Resolution) RetentionCutoff(now time.Time) int64 {
	return r.BucketKey(now) - int64(r.Capacity()-1)*r.PeriodSeconds()
}

// Valid reports whether r is a known resolution.
func (r Resolution) Valid() bool {
	switch r {
	case ResolutionMinute, ResolutionHour, ResolutionDay:
		return true
	}
	return false
}

// StatBucket holds aggregated counts and ping statistics for one monitor and
// one fixed-width time interval. Ping fields are meaningful only when
// PingCount > 0 (MinPing/MaxPing are null until the first UP sample).
type StatBucket struct {
	Timestamp   int64   `json:"timestamp"`
	Up          int     `json:"up"`
	Down        int     `json:"down"`
	Maintenance int     `json:"maintenance"`
	AvgPing     float64 `json:"avg_ping"`
	MinPing     int     `json:"min_ping"`
	MaxPing     int     `json:"max_ping"`
	PingCount   int     `json:"ping_count"`
}
