package routes

import (
	"github.com/gin-gonic/gin"

	"nexamon/internal/controllers"
)

// RegisterMetricRoutes mounts the REST surface consumed by the dashboard.
func RegisterMetricRoutes(r *gin.Engine, mc *controllers.MetricsController, tc *controllers.TrafficController) {
	api := r.Group("/api")
	api.GET("/health", mc.GetHealth)

	metrics := api.Group("/metrics")
	{
		metrics.GET("/system", mc.GetSystem)
		metrics.GET("/history", mc.GetHistory)
		metrics.GET("/traffic", tc.GetTraffic)
		metrics.GET("/custom", mc.GetCustom)
		metrics.POST("/custom", mc.PostCustom)
		metrics.DELETE("/custom", mc.DeleteCustom)
	}
}
