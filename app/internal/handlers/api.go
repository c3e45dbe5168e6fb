package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/imfelmardotdev/tasty-uptimefel-sub000/app/internal/database"
	"github.com/imfelmardotdev/tasty-uptimefel-sub000/app/internal/models"
	"github.com/imfelmardotdev/tasty-uptimefel-sub000/app/internal/scheduler"
	"github.com/imfelmardotdev/tasty-uptimefel-sub000/app/internal/uptime"
)

// API wires the engine's exposed surface: pass trigger, uptime summaries,
// time series and on-demand checks. Monitor CRUD and the dashboard live
// elsewhere.
type API struct {
	sched    *scheduler.Scheduler
	registry *uptime.Registry
}

// SetupRouter builds the gin engine with all API routes.
func SetupRouter(sched *scheduler.Scheduler, registry *uptime.Registry) *gin.Engine {
	api := &API{sched: sched, registry: registry}

	r := gin.Default()
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	g := r.Group("/api")
	{
		g.POST("/pass", api.runPass)
		g.GET("/monitors/:id/summary", api.getSummary)
		g.GET("/monitors/:id/stats", api.getStats)
		g.GET("/monitors/:id/heartbeats", api.getHeartbeats)
		g.POST("/monitors/:id/check", api.checkNow)
	}
	return r
}

// runPass triggers one scheduler pass. External timers/cron hit this.
func (a *API) runPass(c *gin.Context) {
	result, err := a.sched.RunPass(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func monitorID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid monitor id"})
		return 0, false
	}
	return id, true
}

// Summary period counts: 24h of minutes, 30d of hours, 1y of days.
type uptimeSummary struct {
	Uptime24h  float64 `json:"uptime_24h"`
	Uptime30d  float64 `json:"uptime_30d"`
	Uptime1y   float64 `json:"uptime_1y"`
	AvgPing24h float64 `json:"avg_ping_24h"`
}

func (a *API) getSummary(c *gin.Context) {
	id, ok := monitorID(c)
	if !ok {
		return
	}
	if _, err := database.GetMonitor(id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "monitor not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	agg := a.registry.For(id)
	day := agg.GetUptimeData(1440, models.ResolutionMinute)
	month := agg.GetUptimeData(720, models.ResolutionHour)
	year := agg.GetUptimeData(365, models.ResolutionDay)

	c.JSON(http.StatusOK, uptimeSummary{
		Uptime24h:  day.Uptime,
		Uptime30d:  month.Uptime,
		Uptime1y:   year.Uptime,
		AvgPing24h: day.AvgPing,
	})
}

func (a *API) getStats(c *gin.Context) {
	id, ok := monitorID(c)
	if !ok {
		return
	}
	if _, err := database.GetMonitor(id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "monitor not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	res := models.Resolution(c.DefaultQuery("resolution", "minute"))
	if !res.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "resolution must be minute, hour or day"})
		return
	}
	periods, err := strconv.Atoi(c.DefaultQuery("periods", "60"))
	if err != nil || periods < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid periods"})
		return
	}

	c.JSON(http.StatusOK, a.registry.For(id).GetStatsArray(periods, res))
}

// getHeartbeats serves from the aggregator's recent ring, which is warmed
// from the persisted heartbeats on first use.
func (a *API) getHeartbeats(c *gin.Context) {
	id, ok := monitorID(c)
	if !ok {
		return
	}
	if _, err := database.GetMonitor(id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "monitor not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}

	c.JSON(http.StatusOK, a.registry.For(id).RecentHeartbeats(limit))
}

func (a *API) checkNow(c *gin.Context) {
	id, ok := monitorID(c)
	if !ok {
		return
	}
	result, err := a.sched.CheckNow(c.Request.Context(), id)
	switch {
	case errors.Is(err, database.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "monitor not found"})
	case errors.Is(err, scheduler.ErrInFlight):
		c.JSON(http.StatusConflict, gin.H{"error": "check already in flight"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, result)
	}
}
