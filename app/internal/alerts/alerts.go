package alerts

import (
	"log"
	"net/http"
	"time"

	"github.com/imfelmardotdev/tasty-uptimefel-sub000/app/internal/checker"
	"github.com/imfelmardotdev/tasty-uptimefel-sub000/app/internal/config"
	"github.com/imfelmardotdev/tasty-uptimefel-sub000/app/internal/models"
)

// Manager evaluates status transitions and hands notification events to the
// configured delivery channels. Delivery is fire-and-forget: failures are
// logged and never block a scheduler pass.
type Manager struct {
	cfg    *config.Config
	client *http.Client
}

// NewManager creates an alert manager from the loaded configuration.
func NewManager(cfg *config.Config) *Manager {
	return &Manager{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate returns a notification event when the monitor's up/down state
// flipped, nil otherwise. The very first check for a monitor (no previous
// check recorded) never produces an event.
func (m *Manager) Evaluate(mon *models.Monitor, result *checker.ProbeResult, prev *models.MonitorStatus) *models.NotificationEvent {
	if prev == nil || prev.LastCheckTime == nil {
		return nil
	}
	if prev.IsUp == result.Up {
		return nil
	}
	return &models.NotificationEvent{
		MonitorID:    mon.ID,
		MonitorName:  mon.Name,
		PreviousUp:   prev.IsUp,
		NewUp:        result.Up,
		StatusCode:   result.StatusCode,
		ResponseTime: result.DurationMS,
		ErrorMessage: result.Message,
		Timestamp:    time.Now().UTC(),
	}
}

// Send dispatches an event to every configured channel asynchronously.
func (m *Manager) Send(ev *models.NotificationEvent) {
	if ev == nil {
		return
	}

	transition := "UP"
	if !ev.NewUp {
		transition = "DOWN"
	}
	log.Printf("alert: monitor=%d name=%q transition=%s code=%d", ev.MonitorID, ev.MonitorName, transition, ev.StatusCode)

	if m.cfg.WebhookURL != "" {
		go m.sendWebhook(ev)
	}
	if m.cfg.SendgridAPIKey != "" && m.cfg.AlertEmail != "" {
		go m.sendEmail(ev)
	}
}
