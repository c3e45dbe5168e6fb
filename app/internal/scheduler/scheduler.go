package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/imfelmardotdev/tasty-uptimefel-sub000/app/internal/alerts"
	"github.com/imfelmardotdev/tasty-uptimefel-sub000/app/internal/checker"
	"github.com/imfelmardotdev/tasty-uptimefel-sub000/app/internal/database"
	"github.com/imfelmardotdev/tasty-uptimefel-sub000/app/internal/models"
	"github.com/imfelmardotdev/tasty-uptimefel-sub000/app/internal/uptime"
)

// ErrInFlight is returned when a check is requested for a monitor that is
// already being probed.
var ErrInFlight = errors.New("check already in flight")

// Scheduler decides which monitors are due, probes them and feeds the results
// to the aggregator and the alert manager. A pass is stateless; all durable
// state lives in the database and the aggregator registry.
type Scheduler struct {
	registry *uptime.Registry
	alerts   *alerts.Manager

	// inFlight prevents two overlapping passes (or a pass and a manual
	// check) from probing the same monitor concurrently.
	mu       sync.Mutex
	inFlight map[int64]bool
}

// PassResult summarizes one scheduler pass.
type PassResult struct {
	Checked int `json:"checked"`
	Errors  int `json:"errors"`
}

// New creates a scheduler.
func New(registry *uptime.Registry, alertMgr *alerts.Manager) *Scheduler {
	return &Scheduler{
		registry: registry,
		alerts:   alertMgr,
		inFlight: make(map[int64]bool),
	}
}

// RunPass loads all active monitors and checks the due ones sequentially.
// Per-monitor failures are logged and counted, never fatal; a failure to load
// the monitor list aborts the whole pass.
func (s *Scheduler) RunPass(ctx context.Context) (PassResult, error) {
	var res PassResult

	monitors, err := database.ListActiveMonitors()
	if err != nil {
		return res, fmt.Errorf("list active monitors: %w", err)
	}

	now := time.Now().UTC()
	for _, m := range monitors {
		status, err := database.GetMonitorStatus(m.ID)
		if err != nil && !errors.Is(err, database.ErrNotFound) {
			log.Printf("pass: monitor %d: load status: %v", m.ID, err)
			res.Errors++
			continue
		}
		if !isDue(m, status, now) {
			continue
		}

		if _, err := s.check(ctx, m); err != nil {
			log.Printf("pass: monitor %d: %v", m.ID, err)
			res.Errors++
			continue
		}
		res.Checked++
	}
	return res, nil
}

// CheckNow probes a single monitor immediately, bypassing the interval check.
func (s *Scheduler) CheckNow(ctx context.Context, monitorID int64) (*checker.ProbeResult, error) {
	m, err := database.GetMonitor(monitorID)
	if err != nil {
		return nil, err
	}
	return s.check(ctx, m)
}

// isDue reports whether the monitor's check interval has elapsed. A monitor
// that was never checked is always due.
func isDue(m *models.Monitor, status *models.MonitorStatus, now time.Time) bool {
	if !m.Active {
		return false
	}
	if status == nil || status.LastCheckTime == nil {
		return true
	}
	elapsed := now.Sub(*status.LastCheckTime)
	return elapsed >= time.Duration(m.CheckIntervalSecs)*time.Second
}

// check probes one monitor and records the outcome: heartbeat plus stat
// buckets through the aggregator, the status projection, and an alert event
// when the up/down state flipped. Previous status is read before any write so
// the transition is detected against the pre-check state.
func (s *Scheduler) check(ctx context.Context, m *models.Monitor) (*checker.ProbeResult, error) {
	if !s.acquire(m.ID) {
		return nil, ErrInFlight
	}
	defer s.release(m.ID)

	prev, err := database.GetMonitorStatus(m.ID)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("load previous status: %w", err)
	}

	result := checker.Probe(ctx, m)
	now := time.Now().UTC()

	hb := &models.Heartbeat{
		MonitorID: m.ID,
		Status:    models.StatusDown,
		Time:      now,
		Msg:       result.Message,
	}
	if result.Up {
		hb.Status = models.StatusUp
		ping := result.DurationMS
		hb.Ping = &ping
	}

	if err := s.registry.For(m.ID).Update(hb); err != nil {
		return result, fmt.Errorf("record heartbeat: %w", err)
	}

	newStatus := &models.MonitorStatus{
		MonitorID:        m.ID,
		LastCheckTime:    &now,
		LastStatusCode:   result.StatusCode,
		LastResponseTime: result.DurationMS,
		IsUp:             result.Up,
		LastError:        result.Message,
	}
	if prev != nil {
		newStatus.TotalChecks = prev.TotalChecks
		newStatus.TotalSuccessful = prev.TotalSuccessful
	}
	newStatus.TotalChecks++
	if result.Up {
		newStatus.TotalSuccessful++
	}
	if err := database.UpsertMonitorStatus(newStatus); err != nil {
		return result, fmt.Errorf("update status row: %w", err)
	}

	if ev := s.alerts.Evaluate(m, result, prev); ev != nil {
		s.alerts.Send(ev)
	}
	return result, nil
}

func (s *Scheduler) acquire(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[id] {
		return false
	}
	s.inFlight[id] = true
	return true
}

func (s *Scheduler) release(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, id)
}
