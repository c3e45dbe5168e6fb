package uptime

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/imfelmardotdev/tasty-uptimefel-sub000/app/internal/cache"
	"github.com/imfelmardotdev/tasty-uptimefel-sub000/app/internal/database"
	"github.com/imfelmardotdev/tasty-uptimefel-sub000/app/internal/models"
)

var resolutions = []models.Resolution{
	models.ResolutionMinute,
	models.ResolutionHour,
	models.ResolutionDay,
}

// Aggregator turns one monitor's heartbeat stream into bounded rolling
// statistics at minute/hour/day resolution. The mutex doubles as the
// per-monitor in-flight guard: overlapping scheduler passes serialize here.
type Aggregator struct {
	monitorID int64

	mu      sync.Mutex
	windows map[models.Resolution]*cache.Window
	recent  []models.Heartbeat // last 100, newest at the end
	last    int                // last heartbeat status, -1 before any
}

func newAggregator(monitorID int64) *Aggregator {
	a := &Aggregator{
		monitorID: monitorID,
		windows:   make(map[models.Resolution]*cache.Window, len(resolutions)),
		recent:    make([]models.Heartbeat, 0, recentKeep),
		last:      -1,
	}
	for _, r := range resolutions {
		a.windows[r] = cache.NewWindow(r.Capacity())
	}
	return a
}

const recentKeep = 100

// warm loads every persisted bucket still inside each resolution's retention
// horizon into the in-memory windows, and restores the recent-heartbeat ring
// and last known status so a restart neither empties the heartbeat feed nor
// flags the next unchanged heartbeat as a status change.
func (a *Aggregator) warm(now time.Time) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, r := range resolutions {
		buckets, err := database.QueryBuckets(r, a.monitorID, r.RetentionCutoff(now))
		if err != nil {
			return fmt.Errorf("warm %s window for monitor %d: %w", r, a.monitorID, err)
		}
		for i := range buckets {
			b := buckets[i]
			a.windows[r].Push(b.Timestamp, &b)
		}
	}

	hbs, err := database.QueryHeartbeats(a.monitorID, recentKeep)
	if err != nil {
		return fmt.Errorf("warm recent heartbeats for monitor %d: %w", a.monitorID, err)
	}
	// QueryHeartbeats is newest first; the ring keeps newest at the end.
	for i := len(hbs) - 1; i >= 0; i-- {
		a.recent = append(a.recent, hbs[i])
	}
	if len(hbs) > 0 {
		a.last = hbs[0].Status
	}
	return nil
}

// Update applies one heartbeat: the minute, hour and day buckets are
// accumulated and the heartbeat appended in a single transaction, then the
// in-memory windows are updated. On a persistence failure nothing is cached
// and the error is surfaced to the caller.
func (a *Aggregator) Update(hb *models.Heartbeat) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var delta database.BucketDelta
	switch hb.Status {
	case models.StatusUp:
		delta.Up = 1
	case models.StatusMaintenance:
		// Maintenance still counts toward uptime, tracked separately.
		delta.Maintenance = 1
	default:
		// PENDING folds into down.
		delta.Down = 1
	}

	if hb.Ping != nil {
		if hb.Status == models.StatusUp {
			delta.Ping = hb.Ping
		} else {
			// A ping attached to a non-UP heartbeat is anomalous; it must
			// never move the bucket's ping statistics.
			log.Printf("monitor %d: ignoring ping %dms on status %d heartbeat",
				hb.MonitorID, *hb.Ping, hb.Status)
		}
	}

	hb.Important = a.last == -1 || a.last != hb.Status

	if err := database.RecordHeartbeat(hb, delta); err != nil {
		return err
	}

	for _, r := range resolutions {
		key := r.BucketKey(hb.Time)
		w := a.windows[r]
		b, _ := w.Get(key, nil).(*models.StatBucket)
		if b == nil {
			b = &models.StatBucket{Timestamp: key}
		}
		b.Up += delta.Up
		b.Down += delta.Down
		b.Maintenance += delta.Maintenance
		if delta.Ping != nil {
			p := *delta.Ping
			if b.PingCount == 0 {
				b.AvgPing = float64(p)
				b.MinPing = p
				b.MaxPing = p
			} else {
				n := float64(b.PingCount)
				b.AvgPing = (b.AvgPing*n + float64(p)) / (n + 1)
				if p < b.MinPing {
					b.MinPing = p
				}
				if p > b.MaxPing {
					b.MaxPing = p
				}
			}
			b.PingCount++
		}
		w.Push(key, b)
	}

	a.last = hb.Status
	a.recent = append(a.recent, *hb)
	if len(a.recent) > recentKeep {
		a.recent = a.recent[1:]
	}
	return nil
}

// UptimeData is the summary over a trailing window of buckets.
type UptimeData struct {
	Uptime  float64 `json:"uptime"`
	AvgPing float64 `json:"avg_ping"`
}

// GetUptimeData sums counts and the ping-weighted average over numPeriods
// consecutive buckets ending at now. Zero samples in the window yields 100%
// uptime: no data is optimistic, not pessimistic.
func (a *Aggregator) GetUptimeData(numPeriods int, r models.Resolution) UptimeData {
	return a.getUptimeDataAt(numPeriods, r, time.Now())
}

func (a *Aggregator) getUptimeDataAt(numPeriods int, r models.Resolution, now time.Time) UptimeData {
	a.mu.Lock()
	defer a.mu.Unlock()

	if limit := r.Capacity(); numPeriods > limit {
		log.Printf("monitor %d: %d %s periods requested, capped to retention capacity %d",
			a.monitorID, numPeriods, r, limit)
		numPeriods = limit
	}
	if numPeriods < 1 {
		numPeriods = 1
	}

	period := r.PeriodSeconds()
	endKey := r.BucketKey(now)

	var up, down, maint, pingCount int
	var pingSum float64
	w := a.windows[r]
	for i := 0; i < numPeriods; i++ {
		b, _ := w.Get(endKey-int64(i)*period, nil).(*models.StatBucket)
		if b == nil {
			continue
		}
		up += b.Up
		down += b.Down
		maint += b.Maintenance
		pingSum += b.AvgPing * float64(b.PingCount)
		pingCount += b.PingCount
	}

	total := up + down + maint
	data := UptimeData{Uptime: 1.0}
	if total > 0 {
		data.Uptime = float64(up+maint) / float64(total)
	}
	if pingCount > 0 {
		data.AvgPing = pingSum / float64(pingCount)
	}
	return data
}

// GetStatsArray returns numPeriods consecutive buckets ending at now, oldest
// first. Periods with no data come back zero-valued with the timestamp set.
func (a *Aggregator) GetStatsArray(numPeriods int, r models.Resolution) []models.StatBucket {
	return a.getStatsArrayAt(numPeriods, r, time.Now())
}

func (a *Aggregator) getStatsArrayAt(numPeriods int, r models.Resolution, now time.Time) []models.StatBucket {
	a.mu.Lock()
	defer a.mu.Unlock()

	if limit := r.Capacity(); numPeriods > limit {
		log.Printf("monitor %d: %d %s periods requested, capped to retention capacity %d",
			a.monitorID, numPeriods, r, limit)
		numPeriods = limit
	}
	if numPeriods < 1 {
		numPeriods = 1
	}

	period := r.PeriodSeconds()
	endKey := r.BucketKey(now)

	out := make([]models.StatBucket, 0, numPeriods)
	for i := numPeriods - 1; i >= 0; i-- {
		key := endKey - int64(i)*period
		if b, _ := a.windows[r].Get(key, nil).(*models.StatBucket); b != nil {
			out = append(out, *b)
		} else {
			out = append(out, models.StatBucket{Timestamp: key})
		}
	}
	return out
}

// RecentHeartbeats returns up to count of the most recent heartbeats,
// newest first.
func (a *Aggregator) RecentHeartbeats(count int) []models.Heartbeat {
	a.mu.Lock()
	defer a.mu.Unlock()

	if count > len(a.recent) {
		count = len(a.recent)
	}
	out := make([]models.Heartbeat, count)
	for i := 0; i < count; i++ {
		out[i] = a.recent[len(a.recent)-1-i]
	}
	return out
}
