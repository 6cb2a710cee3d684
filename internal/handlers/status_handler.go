package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"quiz-room-service/internal/game"
	"quiz-room-service/internal/models"
	ws "quiz-room-service/internal/websocket"

	"github.com/gin-gonic/gin"
)

const (
	requestTimeout     = 5 * time.Second
	defaultRecentLimit = 20
	maxRecentLimit     = 100
)

// GameDirectory is the read side of the hub.
type GameDirectory interface {
	ListGames(ctx context.Context) (ws.GamesListing, error)
	RoomStats(ctx context.Context, roomID string) (models.GameStats, bool, error)
}

type ResultCache interface {
	GetResult(ctx context.Context, roomID string) (models.GameSummary, bool, error)
}

type ResultLister interface {
	ListRecent(ctx context.Context, limit int) ([]models.GameSummary, error)
}

// Pinger is a backend checked by /ready.
type Pinger interface {
	Name() string
	Ping(ctx context.Context) error
}

type StatusHandler struct {
	games     GameDirectory
	cache     ResultCache
	results   ResultLister
	backends  []Pinger
	startedAt time.Time
	now       func() time.Time
}

type StatusOption func(*StatusHandler)

func WithResultCache(cache ResultCache) StatusOption {
	return func(h *StatusHandler) { h.cache = cache }
}

func WithResultLister(results ResultLister) StatusOption {
	return func(h *StatusHandler) { h.results = results }
}

func WithBackends(backends ...Pinger) StatusOption {
	return func(h *StatusHandler) { h.backends = append(h.backends, backends...) }
}

func NewStatusHandler(games GameDirectory, opts ...StatusOption) *StatusHandler {
	h := &StatusHandler{
		games:     games,
		startedAt: time.Now(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *StatusHandler) RegisterRoutes(router gin.IRouter) {
	api := router.Group("/api")
	api.GET("/health", h.Health)
	api.GET("/games", h.ListGames)
	api.GET("/games/:roomId", h.GetGame)
	api.GET("/results", h.ListResults)
	api.GET("/results/:roomId", h.GetResult)
	api.POST("/questions/validate", h.ValidateQuestions)

	router.GET("/ready", h.Ready)
}

func (h *StatusHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "Quiz server is running",
		"timestamp": h.now().UTC().Format(time.RFC3339),
		"uptime":    h.now().Sub(h.startedAt).Seconds(),
	})
}

func (h *StatusHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	failed := gin.H{}
	for _, backend := range h.backends {
		if err := backend.Ping(ctx); err != nil {
			log.Printf("Readiness check of %s failed: %v", backend.Name(), err)
			failed[backend.Name()] = err.Error()
		}
	}
	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"failed": failed,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (h *StatusHandler) ListGames(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	listing, err := h.games.ListGames(ctx)
	if err != nil {
		log.Printf("Failed to list games: %v", err)
		respondError(c, http.StatusServiceUnavailable, "Failed to list games")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    listing.Games,
		"stats": gin.H{
			"activeGames":  listing.ActiveGames,
			"totalPlayers": listing.TotalPlayers,
		},
	})
}

func (h *StatusHandler) GetGame(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	stats, found, err := h.games.RoomStats(ctx, c.Param("roomId"))
	if err != nil {
		log.Printf("Failed to get room %s: %v", c.Param("roomId"), err)
		respondError(c, http.StatusServiceUnavailable, "Failed to get game")
		return
	}
	if !found {
		respondError(c, http.StatusNotFound, "Game not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": stats})
}

func (h *StatusHandler) GetResult(c *gin.Context) {
	if h.cache == nil {
		respondError(c, http.StatusNotFound, "Results not found")
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	summary, found, err := h.cache.GetResult(ctx, c.Param("roomId"))
	if err != nil {
		log.Printf("Failed to read results of room %s: %v", c.Param("roomId"), err)
		respondError(c, http.StatusServiceUnavailable, "Failed to get results")
		return
	}
	if !found {
		respondError(c, http.StatusNotFound, "Results not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": summary})
}

func (h *StatusHandler) ListResults(c *gin.Context) {
	if h.results == nil {
		c.JSON(http.StatusOK, gin.H{"success": true, "data": []models.GameSummary{}})
		return
	}

	limit := defaultRecentLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(c, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxRecentLimit)
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	summaries, err := h.results.ListRecent(ctx, limit)
	if err != nil {
		log.Printf("Failed to list recent results: %v", err)
		respondError(c, http.StatusServiceUnavailable, "Failed to list results")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": summaries})
}

type validateQuestionsRequest struct {
	Questions []models.Question `json:"questions" binding:"required"`
}

func (h *StatusHandler) ValidateQuestions(c *gin.Context) {
	var req validateQuestionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := game.ValidateQuestions(req.Questions); err != nil {
		if errors.Is(err, game.ErrInvalidQuestions) {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "Internal server error")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"totalQuestions": len(req.Questions),
	})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "message": message})
}
