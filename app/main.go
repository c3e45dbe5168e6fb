package main

import (
	"context"
	"log"
	"time"

	"github.com/imfelmardotdev/tasty-uptimefel-sub000/app/internal/alerts"
	"github.com/imfelmardotdev/tasty-uptimefel-sub000/app/internal/config"
	"github.com/imfelmardotdev/tasty-uptimefel-sub000/app/internal/database"
	"github.com/imfelmardotdev/tasty-uptimefel-sub000/app/internal/handlers"
	"github.com/imfelmardotdev/tasty-uptimefel-sub000/app/internal/scheduler"
	"github.com/imfelmardotdev/tasty-uptimefel-sub000/app/internal/uptime"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := database.Init(cfg.DBPath); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	registry := uptime.NewRegistry()
	alertMgr := alerts.NewManager(cfg)
	sched := scheduler.New(registry, alertMgr)

	if cfg.EnableScheduler {
		go runScheduler(sched, cfg.PassInterval)
		log.Printf("Scheduler started with %v pass interval", cfg.PassInterval)
	}
	go runRetention(cfg.RetentionInterval)

	r := handlers.SetupRouter(sched, registry)
	log.Printf("Server starting on port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// runScheduler triggers a pass on every tick. Passes are sequential; a slow
// pass simply delays the next tick's work, it is never run concurrently with
// itself from here.
func runScheduler(sched *scheduler.Scheduler, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		result, err := sched.RunPass(context.Background())
		if err != nil {
			log.Printf("Scheduler pass failed: %v", err)
			continue
		}
		if result.Checked > 0 || result.Errors > 0 {
			log.Printf("Pass complete: checked=%d errors=%d", result.Checked, result.Errors)
		}
	}
}

// runRetention prunes stat buckets and heartbeats that fell outside their
// retention horizons.
func runRetention(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now().UTC()
		database.PruneStats(now)
		database.PruneHeartbeats(now)
	}
}
