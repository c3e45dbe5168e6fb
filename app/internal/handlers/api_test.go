package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/imfelmardotdev/tasty-uptimefel-sub000/app/internal/alerts"
	"github.com/imfelmardotdev/tasty-uptimefel-sub000/app/internal/config"
	"github.com/imfelmardotdev/tasty-uptimefel-sub000/app/internal/database"
	"github.com/imfelmardotdev/tasty-uptimefel-sub000/app/internal/models"
	"github.com/imfelmardotdev/tasty-uptimefel-sub000/app/internal/scheduler"
	"github.com/imfelmardotdev/tasty-uptimefel-sub000/app/internal/uptime"
)

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	if err := database.Init(":memory:"); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() {
		database.DB.Close()
	})
	registry := uptime.NewRegistry()
	sched := scheduler.New(registry, alerts.NewManager(&config.Config{}))
	return SetupRouter(sched, registry)
}

func createMonitor(t *testing.T, url string) int64 {
	t.Helper()
	id, err := database.CreateMonitor(&models.Monitor{
		Name: "test", URL: url, Kind: models.KindHTTP,
		Active: true, CheckIntervalSecs: 60, TimeoutSecs: 5, RetryCount: 1,
	})
	if err != nil {
		t.Fatalf("CreateMonitor failed: %v", err)
	}
	return id
}

func doRequest(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	r := setupRouter(t)
	w := doRequest(r, http.MethodGet, "/healthz")
	if w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}
}

func TestGetSummary_UnknownMonitor(t *testing.T) {
	r := setupRouter(t)
	w := doRequest(r, http.MethodGet, "/api/monitors/999/summary")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestGetSummary_BadID(t *testing.T) {
	r := setupRouter(t)
	w := doRequest(r, http.MethodGet, "/api/monitors/abc/summary")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestGetSummary_EmptyMonitor(t *testing.T) {
	r := setupRouter(t)
	id := createMonitor(t, "http://example.com")

	w := doRequest(r, http.MethodGet, "/api/monitors/"+itoa(id)+"/summary")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var body map[string]float64
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	// No samples yet: full uptime across every horizon.
	for _, k := range []string{"uptime_24h", "uptime_30d", "uptime_1y"} {
		if body[k] != 1.0 {
			t.Errorf("%s = %v, want 1.0", k, body[k])
		}
	}
}

func TestGetStats_BadResolution(t *testing.T) {
	r := setupRouter(t)
	id := createMonitor(t, "http://example.com")

	w := doRequest(r, http.MethodGet, "/api/monitors/"+itoa(id)+"/stats?resolution=week")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestGetStats_DefaultsReturnSeries(t *testing.T) {
	r := setupRouter(t)
	id := createMonitor(t, "http://example.com")

	w := doRequest(r, http.MethodGet, "/api/monitors/"+itoa(id)+"/stats")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var buckets []models.StatBucket
	if err := json.Unmarshal(w.Body.Bytes(), &buckets); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if len(buckets) != 60 {
		t.Errorf("got %d buckets, want default 60", len(buckets))
	}
}

func TestGetHeartbeats_EmptyIsArray(t *testing.T) {
	r := setupRouter(t)
	id := createMonitor(t, "http://example.com")

	w := doRequest(r, http.MethodGet, "/api/monitors/"+itoa(id)+"/heartbeats")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if w.Body.String() != "[]" {
		t.Errorf("body = %q, want empty array", w.Body.String())
	}
}

func TestGetHeartbeats_UnknownMonitor(t *testing.T) {
	r := setupRouter(t)
	w := doRequest(r, http.MethodGet, "/api/monitors/999/heartbeats")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestGetHeartbeats_ServesPersistedRows(t *testing.T) {
	r := setupRouter(t)
	id := createMonitor(t, "http://example.com")

	// Rows written before the router's registry ever saw this monitor: the
	// aggregator warms its ring from the store on first use.
	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 3; i++ {
		ping := 100 + i
		hb := &models.Heartbeat{
			MonitorID: id,
			Status:    models.StatusUp,
			Time:      base.Add(time.Duration(i) * time.Second),
			Ping:      &ping,
		}
		if err := database.RecordHeartbeat(hb, database.BucketDelta{Up: 1, Ping: &ping}); err != nil {
			t.Fatal(err)
		}
	}

	w := doRequest(r, http.MethodGet, "/api/monitors/"+itoa(id)+"/heartbeats?limit=2")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var hbs []models.Heartbeat
	if err := json.Unmarshal(w.Body.Bytes(), &hbs); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if len(hbs) != 2 {
		t.Fatalf("got %d heartbeats, want limit 2", len(hbs))
	}
	if !hbs[0].Time.After(hbs[1].Time) {
		t.Error("heartbeats should be newest first")
	}
}

func TestCheckNow_EndToEnd(t *testing.T) {
	r := setupRouter(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	id := createMonitor(t, srv.URL)

	w := doRequest(r, http.MethodPost, "/api/monitors/"+itoa(id)+"/check")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var result struct {
		Up         bool `json:"up"`
		StatusCode int  `json:"status_code"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if !result.Up || result.StatusCode != 200 {
		t.Errorf("result = %+v", result)
	}
}

func TestCheckNow_UnknownMonitor(t *testing.T) {
	r := setupRouter(t)
	w := doRequest(r, http.MethodPost, "/api/monitors/999/check")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestRunPass_NoMonitors(t *testing.T) {
	r := setupRouter(t)
	w := doRequest(r, http.MethodPost, "/api/pass")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var res scheduler.PassResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if res.Checked != 0 || res.Errors != 0 {
		t.Errorf("result = %+v", res)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
