package handlers

import (
	"log"
	"net/http"

	"quiz-room-service/config"
	ws "quiz-room-service/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"
	"golang.org/x/time/rate"
)

type WebSocketHandler struct {
	hub      *ws.Hub
	config   *config.Config
	upgrader websocket.Upgrader
}

func NewWebSocketHandler(hub *ws.Hub, cfg *config.Config) *WebSocketHandler {
	h := &WebSocketHandler{
		hub:    hub,
		config: cfg,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// checkOrigin accepts every origin unless ALLOWED_ORIGINS is set.
func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	allowed := h.config.Server.AllowedOrigins
	if len(allowed) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	return origin == "" || lo.Contains(allowed, origin)
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade connection: %v", err)
		return
	}

	client := ws.NewClient(h.hub, conn, uuid.NewString(), h.newLimiter())
	h.hub.RegisterClient(client)

	go client.WritePump()
	go client.ReadPump()
}

func (h *WebSocketHandler) newLimiter() *rate.Limiter {
	rl := h.config.RateLimit
	if rl.MessagesPerSecond <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(rl.MessagesPerSecond), max(rl.Burst, 1))
}
