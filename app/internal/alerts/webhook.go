package alerts

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"net/http"

	"github.com/imfelmardotdev/tasty-uptimefel-sub000/app/internal/models"
)

// sendWebhook posts the event as JSON to the configured webhook URL with an
// optional HMAC-SHA256 signature header.
func (m *Manager) sendWebhook(ev *models.NotificationEvent) {
	body, err := json.Marshal(ev)
	if err != nil {
		log.Printf("webhook: marshal event for monitor %d: %v", ev.MonitorID, err)
		return
	}

	req, err := http.NewRequest(http.MethodPost, m.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		log.Printf("webhook: build request: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "uptimefel/1.0")

	if m.cfg.WebhookSecret != "" {
		mac := hmac.New(sha256.New, []byte(m.cfg.WebhookSecret))
		mac.Write(body)
		req.Header.Set("X-Uptimefel-Signature", "sha256="+hex.EncodeToString(mac.Sum(nil)))
	}

	resp, err := m.client.Do(req)
	if err != nil {
		log.Printf("webhook: delivery failed for monitor %d: %v", ev.MonitorID, err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		log.Printf("webhook: delivery for monitor %d returned status %d", ev.MonitorID, resp.StatusCode)
	}
}
