package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"nexamon/internal/services"
)

// Traffic records request/response counters for every request passing
// through the server. Tracker updates are wrapped so that an internal
// failure can never interrupt the request being observed.
func Traffic(tracker *services.TrafficTracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		record(func() {
			tracker.RecordRequest(c.Request.URL.Path, c.Request.ContentLength, start.Hour())
		})

		c.Next()

		record(func() {
			tracker.RecordResponse(c.Writer.Status(), c.Writer.Size(), time.Since(start))
		})
	}
}

func record(fn func()) {
	defer func() {
		_ = recover()
	}()
	fn()
}
