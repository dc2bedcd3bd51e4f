package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"nexamon/internal/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The dashboard is served from arbitrary origins in development.
		return true
	},
}

// WebSocketController upgrades connections and runs the per-client pumps.
type WebSocketController struct {
	hub     *services.Hub
	metrics *services.MetricsService
	auth    *services.AuthService
	logger  *zap.Logger
}

func NewWebSocketController(hub *services.Hub, metrics *services.MetricsService, auth *services.AuthService, logger *zap.Logger) *WebSocketController {
	return &WebSocketController{
		hub:     hub,
		metrics: metrics,
		auth:    auth,
		logger:  logger,
	}
}

// HandleWebSocket handles incoming push-channel connections.
func (wc *WebSocketController) HandleWebSocket(c *gin.Context) {
	if wc.auth.Enabled() {
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})

			return
		}
		if _, err := wc.auth.ValidateToken(token); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})

			return
		}
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		wc.logger.Warn("websocket upgrade failed",
			zap.String("ip", c.ClientIP()), zap.Error(err))

		return
	}

	client := &services.ClientConnection{
		ID:    uuid.NewString(),
		Conn:  ws,
		Send:  make(chan services.WebSocketMessage, 256),
		Close: make(chan bool),
	}

	wc.hub.Register(client)

	go wc.readPump(client)
	go wc.writePump(client)
}

// readPump reads messages from the client until the connection breaks.
func (wc *WebSocketController) readPump(client *services.ClientConnection) {
	defer func() {
		wc.hub.Unregister(client.ID)
		client.Conn.Close()
	}()

	client.Conn.SetPongHandler(func(string) error {
		return nil
	})

	for {
		var msg services.WebSocketMessage
		if err := client.Conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				wc.logger.Warn("websocket read error",
					zap.String("client", client.ID), zap.Error(err))
			}

			return
		}

		switch msg.Type {
		case "get_metrics":
			// Explicit pull: answer this client only.
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			snap := wc.metrics.GetCurrentMetrics(ctx)
			cancel()
			select {
			case client.Send <- services.WebSocketMessage{
				Type:      "system_metrics",
				Timestamp: time.Now(),
				Data:      snap,
			}:
			case <-client.Close:
				return
			}

		case "ping":
			select {
			case client.Send <- services.WebSocketMessage{Type: "pong", Timestamp: time.Now()}:
			case <-client.Close:
				return
			default:
				return
			}

		case "unsubscribe":
			return

		default:
			wc.logger.Debug("unknown message type",
				zap.String("client", client.ID), zap.String("type", msg.Type))
		}
	}
}

// writePump writes queued messages to the client.
func (wc *WebSocketController) writePump(client *services.ClientConnection) {
	defer client.Conn.Close()

	for {
		select {
		case msg, ok := <-client.Send:
			if !ok {
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})

				return
			}
			if err := client.Conn.WriteJSON(msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					wc.logger.Warn("websocket write error",
						zap.String("client", client.ID), zap.Error(err))
				}

				return
			}

		case <-client.Close:
			client.Conn.WriteMessage(websocket.CloseMessage, []byte{})

			return
		}
	}
}

// HandleGetToken issues a push-channel token.
func (wc *WebSocketController) HandleGetToken(c *gin.Context) {
	if !wc.auth.Enabled() {
		c.JSON(http.StatusNotFound, gin.H{"error": "auth is disabled"})

		return
	}

	serverName := c.DefaultQuery("server_name", "nexamon-agent")
	token, err := wc.auth.GenerateToken(serverName)
	if err != nil {
		wc.logger.Error("token generation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})

		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":  token,
		"server": serverName,
		"expiry": wc.auth.TokenExpiry(),
	})
}
