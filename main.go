package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quiz-room-service/config"
	"quiz-room-service/internal/archive"
	"quiz-room-service/internal/game"
	"quiz-room-service/internal/handlers"
	"quiz-room-service/internal/repository"
	ws "quiz-room-service/internal/websocket"
	"quiz-room-service/pkg/cache"
	"quiz-room-service/pkg/database"
	"quiz-room-service/pkg/messaging"

	ginGzip "github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	cachecontrol "go.eigsys.de/gin-cachecontrol/v2"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}
	cfg := config.Load()
	log.Println("Configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		sinks      []archive.Sink
		backends   []handlers.Pinger
		statusOpts []handlers.StatusOption
	)

	if cfg.DB.Enabled() {
		pgClient, err := database.NewPostgresClient(&cfg.DB)
		if err != nil {
			log.Printf("Warning: Failed to connect to PostgreSQL: %v", err)
		} else {
			log.Println("Connected to PostgreSQL")
			defer pgClient.Close()

			initCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			if err := pgClient.InitSchema(initCtx); err != nil {
				log.Printf("Warning: Failed to initialize PostgreSQL schema: %v", err)
			} else {
				log.Println("PostgreSQL schema initialized")
			}
			cancel()

			resultRepo := repository.NewResultRepository(pgClient.GetDB())
			sinks = append(sinks, resultRepo)
			backends = append(backends, pgClient)
			statusOpts = append(statusOpts, handlers.WithResultLister(resultRepo))
		}
	}

	if cfg.Redis.Enabled() {
		redisClient, err := cache.NewRedisClient(&cfg.Redis)
		if err != nil {
			log.Printf("Warning: Failed to connect to Redis: %v", err)
		} else {
			log.Println("Connected to Redis")
			defer redisClient.Close()

			sinks = append(sinks, redisClient)
			backends = append(backends, redisClient)
			statusOpts = append(statusOpts, handlers.WithResultCache(redisClient))
		}
	}

	if cfg.RabbitMQ.Enabled() {
		rabbitClient, err := messaging.NewRabbitMQClient(&cfg.RabbitMQ)
		if err != nil {
			log.Printf("Warning: Failed to connect to RabbitMQ: %v", err)
		} else {
			log.Println("Connected to RabbitMQ")
			defer rabbitClient.Close()

			sinks = append(sinks, rabbitClient)
			backends = append(backends, rabbitClient)
		}
	}

	archiver := archive.NewArchiver(0, 0, sinks...)
	archiveDone := make(chan struct{})
	go func() {
		defer close(archiveDone)
		archiver.Run(ctx)
	}()
	log.Printf("Archiver started with %d sinks", len(sinks))

	registry := game.NewRegistry(
		game.WithCodeGenerator(game.NewCodeGenerator(cfg.Game.RoomCodeMode)),
		game.WithQuestionTimeLimit(cfg.Game.QuestionTimeLimit),
	)
	hub := ws.NewHub(registry, ws.HubOptions{
		MinPlayers: cfg.Game.MinPlayers,
		Recorder:   archiver,
	})
	go hub.Run(ctx)
	go hub.RunCleanup(ctx, cfg.Cleanup.Interval, cfg.Cleanup.MaxAge)
	log.Println("WebSocket hub started")

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	wsHandler := handlers.NewWebSocketHandler(hub, cfg)
	router.GET("/ws", wsHandler.HandleWebSocket)

	statusOpts = append(statusOpts, handlers.WithBackends(backends...))
	statusHandler := handlers.NewStatusHandler(hub, statusOpts...)
	status := router.Group("",
		ginGzip.Gzip(ginGzip.DefaultCompression),
		cachecontrol.New(cachecontrol.Config{
			NoStore:        true,
			NoCache:        true,
			MustRevalidate: true,
		}),
	)
	statusHandler.RegisterRoutes(status)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Printf("Quiz room service HTTP server starting on port %s...", cfg.Server.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutdown signal received, shutting down server gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server Shutdown: %v", err)
	}

	select {
	case <-archiveDone:
	case <-shutdownCtx.Done():
		log.Println("Archiver did not flush before shutdown timeout")
	}

	log.Println("Quiz room service stopped")
}
