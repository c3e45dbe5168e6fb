package alerts

import (
	"fmt"
	"log"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/imfelmardotdev/tasty-uptimefel-sub000/app/internal/models"
)

// sendEmail delivers the event through SendGrid.
func (m *Manager) sendEmail(ev *models.NotificationEvent) {
	var subject, summary string
	if ev.NewUp {
		subject = fmt.Sprintf("✅ %s is back up", ev.MonitorName)
		summary = fmt.Sprintf("%s recovered and is responding again (status %d, %dms).",
			ev.MonitorName, ev.StatusCode, ev.ResponseTime)
	} else {
		subject = fmt.Sprintf("🔴 %s is down", ev.MonitorName)
		summary = fmt.Sprintf("%s stopped responding to health checks.", ev.MonitorName)
		if ev.ErrorMessage != "" {
			summary += "\nError: " + ev.ErrorMessage
		}
	}

	body := fmt.Sprintf(`%s

Monitor: %s (id %d)
Time: %s
Status code: %d
Response time: %dms`,
		summary,
		ev.MonitorName, ev.MonitorID,
		ev.Timestamp.Format(time.RFC3339),
		ev.StatusCode,
		ev.ResponseTime,
	)
	if m.cfg.StatusPageURL != "" {
		body += "\n\nStatus page: " + m.cfg.StatusPageURL
	}

	fromAddr := m.cfg.AlertFromEmail
	if fromAddr == "" {
		fromAddr = m.cfg.AlertEmail
	}
	from := mail.NewEmail("Uptimefel", fromAddr)
	to := mail.NewEmail("", m.cfg.AlertEmail)
	message := mail.NewSingleEmail(from, subject, to, body, body)

	client := sendgrid.NewSendClient(m.cfg.SendgridAPIKey)
	resp, err := client.Send(message)
	if err != nil {
		log.Printf("email: delivery failed for monitor %d: %v", ev.MonitorID, err)
		return
	}
	if resp.StatusCode >= 400 {
		log.Printf("email: delivery for monitor %d returned status %d", ev.MonitorID, resp.StatusCode)
	}
}
