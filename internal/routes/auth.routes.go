package routes

import (
	"github.com/gin-gonic/gin"

	"nexamon/internal/controllers"
	"nexamon/internal/middleware"
)

// RegisterAuthRoutes mounts the push channel and its token endpoint. The
// token endpoint carries a stricter per-IP rate limit than the rest of the
// API.
func RegisterAuthRoutes(r *gin.Engine, wc *controllers.WebSocketController, tokenLimiter *middleware.RateLimiter) {
	r.GET("/ws", wc.HandleWebSocket)
	r.GET("/api/auth/token", middleware.Limit(tokenLimiter), wc.HandleGetToken)
}
