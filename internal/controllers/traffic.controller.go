package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nexamon/internal/services"
)

// TrafficController serves the traffic-analytics counters.
type TrafficController struct {
	tracker *services.TrafficTracker
}

func NewTrafficController(tracker *services.TrafficTracker) *TrafficController {
	return &TrafficController{tracker: tracker}
}

// GetTraffic returns all counters accumulated since process start.
func (tc *TrafficController) GetTraffic(c *gin.Context) {
	c.JSON(http.StatusOK, tc.tracker.Snapshot())
}
