package scheduler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/imfelmardotdev/tasty-uptimefel-sub000/app/internal/alerts"
	"github.com/imfelmardotdev/tasty-uptimefel-sub000/app/internal/config"
	"github.com/imfelmardotdev/tasty-uptimefel-sub000/app/internal/database"
	"github.com/imfelmardotdev/tasty-uptimefel-sub000/app/internal/models"
	"github.com/imfelmardotdev/tasty-uptimefel-sub000/app/internal/uptime"
)

func setupTestDB(t *testing.T) {
	t.Helper()
	if err := database.Init(":memory:"); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() {
		database.DB.Close()
	})
}

func newTestScheduler() *Scheduler {
	return New(uptime.NewRegistry(), alerts.NewManager(&config.Config{}))
}

func createMonitor(t *testing.T, url string, intervalSecs int) int64 {
	t.Helper()
	id, err := database.CreateMonitor(&models.Monitor{
		Name:              "test",
		URL:               url,
		Kind:              models.KindHTTP,
		Active:            true,
		CheckIntervalSecs: intervalSecs,
		TimeoutSecs:       5,
		RetryCount:        1,
	})
	if err != nil {
		t.Fatalf("CreateMonitor failed: %v", err)
	}
	return id
}

// --- isDue ---

func TestIsDue(t *testing.T) {
	now := time.Now().UTC()
	m := &models.Monitor{Active: true, CheckIntervalSecs: 300}
	past := func(d time.Duration) *models.MonitorStatus {
		ts := now.Add(-d)
		return &models.MonitorStatus{LastCheckTime: &ts}
	}

	if isDue(&models.Monitor{Active: false}, nil, now) {
		t.Error("inactive monitor should never be due")
	}
	if !isDue(m, nil, now) {
		t.Error("monitor with no status row should be due")
	}
	if !isDue(m, &models.MonitorStatus{}, now) {
		t.Error("never-checked monitor should be due")
	}
	if !isDue(m, past(400*time.Second), now) {
		t.Error("interval elapsed, should be due")
	}
	if isDue(m, past(100*time.Second), now) {
		t.Error("interval not elapsed, should not be due")
	}
	if !isDue(m, past(300*time.Second), now) {
		t.Error("exactly at the interval boundary, should be due")
	}
}

// --- RunPass ---

func TestRunPass_ChecksDueMonitorEndToEnd(t *testing.T) {
	setupTestDB(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	id := createMonitor(t, srv.URL, 60)
	s := newTestScheduler()

	res, err := s.RunPass(context.Background())
	if err != nil {
		t.Fatalf("RunPass failed: %v", err)
	}
	if res.Checked != 1 || res.Errors != 0 {
		t.Fatalf("result = %+v, want checked=1 errors=0", res)
	}

	// Status projection updated.
	status, err := database.GetMonitorStatus(id)
	if err != nil {
		t.Fatalf("GetMonitorStatus failed: %v", err)
	}
	if !status.IsUp || status.LastStatusCode != 200 ||
		status.TotalChecks != 1 || status.TotalSuccessful != 1 {
		t.Errorf("status = %+v", status)
	}
	if status.LastCheckTime == nil {
		t.Error("last check time should be set")
	}

	// Heartbeat persisted with a ping.
	hbs, err := database.QueryHeartbeats(id, 10)
	if err != nil {
		t.Fatalf("QueryHeartbeats failed: %v", err)
	}
	if len(hbs) != 1 || hbs[0].Status != models.StatusUp || hbs[0].Ping == nil {
		t.Errorf("heartbeats = %+v", hbs)
	}

	// All three bucket resolutions accumulated one up sample.
	for _, r := range []models.Resolution{models.ResolutionMinute, models.ResolutionHour, models.ResolutionDay} {
		buckets, err := database.QueryBuckets(r, id, 0)
		if err != nil {
			t.Fatalf("QueryBuckets(%s) failed: %v", r, err)
		}
		if len(buckets) != 1 || buckets[0].Up != 1 {
			t.Errorf("%s buckets = %+v", r, buckets)
		}
	}
}

func TestRunPass_SkipsNotDue(t *testing.T) {
	setupTestDB(t)
	id := createMonitor(t, "http://127.0.0.1:1", 3600)

	// Pretend it was just checked.
	now := time.Now().UTC()
	if err := database.UpsertMonitorStatus(&models.MonitorStatus{
		MonitorID:     id,
		LastCheckTime: &now,
		IsUp:          true,
		TotalChecks:   1,
	}); err != nil {
		t.Fatal(err)
	}

	res, err := newTestScheduler().RunPass(context.Background())
	if err != nil {
		t.Fatalf("RunPass failed: %v", err)
	}
	if res.Checked != 0 || res.Errors != 0 {
		t.Errorf("result = %+v, want nothing checked", res)
	}
}

func TestRunPass_DownMonitorRecordsFailure(t *testing.T) {
	setupTestDB(t)
	id := createMonitor(t, "http://127.0.0.1:1", 60)

	res, err := newTestScheduler().RunPass(context.Background())
	if err != nil {
		t.Fatalf("RunPass failed: %v", err)
	}
	// A down target is still a successful check from the pass's viewpoint.
	if res.Checked != 1 || res.Errors != 0 {
		t.Fatalf("result = %+v", res)
	}

	status, _ := database.GetMonitorStatus(id)
	if status.IsUp || status.LastError == "" || status.TotalSuccessful != 0 {
		t.Errorf("status = %+v", status)
	}

	hbs, _ := database.QueryHeartbeats(id, 10)
	if len(hbs) != 1 || hbs[0].Status != models.StatusDown || hbs[0].Ping != nil {
		t.Errorf("heartbeats = %+v", hbs)
	}
}

// --- CheckNow ---

func TestCheckNow_BypassesInterval(t *testing.T) {
	setupTestDB(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	id := createMonitor(t, srv.URL, 3600)
	s := newTestScheduler()

	// Two immediate checks despite the hour-long interval.
	for i := 0; i < 2; i++ {
		result, err := s.CheckNow(context.Background(), id)
		if err != nil {
			t.Fatalf("CheckNow %d failed: %v", i, err)
		}
		if !result.Up {
			t.Errorf("CheckNow %d: expected up", i)
		}
	}

	status, _ := database.GetMonitorStatus(id)
	if status.TotalChecks != 2 {
		t.Errorf("total checks = %d, want 2", status.TotalChecks)
	}
}

func TestCheckNow_UnknownMonitor(t *testing.T) {
	setupTestDB(t)
	if _, err := newTestScheduler().CheckNow(context.Background(), 12345); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

// --- in-flight guard ---

func TestCheck_InFlightGuard(t *testing.T) {
	setupTestDB(t)
	release := make(chan struct{})
	started := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	id := createMonitor(t, srv.URL, 60)
	s := newTestScheduler()

	done := make(chan error, 1)
	go func() {
		_, err := s.CheckNow(context.Background(), id)
		done <- err
	}()

	<-started
	if _, err := s.CheckNow(context.Background(), id); !errors.Is(err, ErrInFlight) {
		t.Errorf("overlapping check err = %v, want ErrInFlight", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first check failed: %v", err)
	}

	// Guard released; a fresh check goes through.
	if _, err := s.CheckNow(context.Background(), id); err != nil {
		t.Errorf("check after release failed: %v", err)
	}
}

// --- alerting on transitions ---

func TestPass_AlertsOnTransitionOnly(t *testing.T) {
	setupTestDB(t)

	hooks := make(chan struct{}, 10)
	hookSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hooks <- struct{}{}
	}))
	defer hookSrv.Close()

	var up atomic.Bool
	up.Store(true)
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if up.Load() {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer target.Close()

	id := createMonitor(t, target.URL, 60)
	s := New(uptime.NewRegistry(), alerts.NewManager(&config.Config{WebhookURL: hookSrv.URL}))

	// First check: no previous state, never alerts.
	if _, err := s.CheckNow(context.Background(), id); err != nil {
		t.Fatal(err)
	}
	// Second check, still up: no alert.
	if _, err := s.CheckNow(context.Background(), id); err != nil {
		t.Fatal(err)
	}
	select {
	case <-hooks:
		t.Fatal("no webhook expected while status is stable")
	case <-time.After(200 * time.Millisecond):
	}

	// Flip down: exactly one alert.
	up.Store(false)
	if _, err := s.CheckNow(context.Background(), id); err != nil {
		t.Fatal(err)
	}
	select {
	case <-hooks:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a webhook on the up -> down transition")
	}

	// Still down: no further alert.
	if _, err := s.CheckNow(context.Background(), id); err != nil {
		t.Fatal(err)
	}
	select {
	case <-hooks:
		t.Fatal("no webhook expected while down persists")
	case <-time.After(200 * time.Millisecond):
	}
}
