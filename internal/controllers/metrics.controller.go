package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nexamon/internal/services"
)

// MetricsController serves the pull side of the metrics pipeline.
type MetricsController struct {
	metrics *services.MetricsService
	logger  *zap.Logger
	started time.Time
}

func NewMetricsController(metrics *services.MetricsService, logger *zap.Logger) *MetricsController {
	return &MetricsController{
		metrics: metrics,
		logger:  logger,
		started: time.Now(),
	}
}

// GetSystem returns the current snapshot. It always answers 200; a degraded
// snapshot is still a snapshot.
func (mc *MetricsController) GetSystem(c *gin.Context) {
	snap := mc.metrics.GetCurrentMetrics(c.Request.Context())
	c.JSON(http.StatusOK, snap)
}

// GetHistory returns the last `days` day partitions, oldest first.
// Query params: days (default 1).
func (mc *MetricsController) GetHistory(c *gin.Context) {
	daysStr := c.DefaultQuery("days", "1")
	days, err := strconv.Atoi(daysStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid days parameter"})

		return
	}

	snaps, err := mc.metrics.GetHistoricalMetrics(c.Request.Context(), days)
	if err != nil {
		mc.logger.Error("history query failed", zap.Int("days", days), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "history unavailable"})

		return
	}

	c.JSON(http.StatusOK, gin.H{
		"days":  days,
		"count": len(snaps),
		"data":  snaps,
	})
}

type trackMetricRequest struct {
	Name  string      `json:"name" binding:"required"`
	Value interface{} `json:"value" binding:"required"`
}

// GetCustom returns the named-metric map.
func (mc *MetricsController) GetCustom(c *gin.Context) {
	c.JSON(http.StatusOK, mc.metrics.GetAllMetrics())
}

// PostCustom records one named metric, overwriting any previous value.
func (mc *MetricsController) PostCustom(c *gin.Context) {
	var req trackMetricRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	mc.metrics.TrackMetric(req.Name, req.Value)
	c.JSON(http.StatusOK, gin.H{"tracked": req.Name})
}

// DeleteCustom clears the named-metric map wholesale.
func (mc *MetricsController) DeleteCustom(c *gin.Context) {
	mc.metrics.ClearMetrics()
	c.JSON(http.StatusOK, gin.H{"cleared": true})
}

// GetHealth is a liveness probe.
func (mc *MetricsController) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(mc.started).Seconds()),
	})
}
