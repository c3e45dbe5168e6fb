package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server
	Port   string
	DBPath string

	// Scheduler
	EnableScheduler   bool
	PassInterval      time.Duration
	RetentionInterval time.Duration

	// Notifications
	WebhookURL     string
	WebhookSecret  string
	SendgridAPIKey string
	AlertEmail     string
	AlertFromEmail string
	StatusPageURL  string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:              getenv("PORT", "4555"),
		DBPath:            getenv("DB_PATH", "./uptime.db"),
		EnableScheduler:   envBool("ENABLE_SCHEDULER", true),
		PassInterval:      envDurSecs("PASS_INTERVAL_SECONDS", 15),
		RetentionInterval: envDurSecs("RETENTION_INTERVAL_SECONDS", 3600),
		WebhookURL:        getenv("WEBHOOK_URL", ""),
		WebhookSecret:     getenv("WEBHOOK_SECRET", ""),
		SendgridAPIKey:    getenv("SENDGRID_API_KEY", ""),
		AlertEmail:        getenv("ALERT_EMAIL", ""),
		AlertFromEmail:    getenv("ALERT_FROM_EMAIL", ""),
		StatusPageURL:     strings.TrimSuffix(getenv("STATUS_PAGE_URL", ""), "/"),
	}

	return cfg, nil
}

// Helper functions
func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envBool(k string, def bool) bool {
	v := strings.ToLower(getenv(k, ""))
	if v == "" {
		return def
	}
	return v == "1" || v == "true" || v == "yes"
}

func envDurSecs(k string, def int) time.Duration {
	return time.Duration(envInt(k, def)) * time.Second
}
