package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
)

type Config struct {
	Server    ServerConfig
	Game      GameConfig
	Cleanup   CleanupConfig
	RateLimit RateLimitConfig
	DB        DBConfig
	Redis     RedisConfig
	RabbitMQ  RabbitMQConfig
}

type ServerConfig struct {
	HTTPPort        string
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
}

type GameConfig struct {
	QuestionTimeLimit int // seconds
	MinPlayers        int
	RoomCodeMode      string // "random" or "sequential"
}

type CleanupConfig struct {
	Interval time.Duration
	MaxAge   time.Duration
}

type RateLimitConfig struct {
	MessagesPerSecond int
	Burst             int
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// Enabled reports whether a results database was configured.
func (c DBConfig) Enabled() bool {
	return c.Host != ""
}

type RedisConfig struct {
	Host       string
	Port       string
	Password   string
	DB         int
	ResultsTTL time.Duration
}

func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

type RabbitMQConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Queue    string
}

func (c RabbitMQConfig) Enabled() bool {
	return c.Host != ""
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:        getEnv("HTTP_PORT", "4000"),
			AllowedOrigins:  getEnvAsList("ALLOWED_ORIGINS"),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Game: GameConfig{
			QuestionTimeLimit: getEnvAsInt("QUESTION_TIME_LIMIT", 30),
			MinPlayers:        getEnvAsInt("MIN_PLAYERS", 2),
			RoomCodeMode:      getEnv("ROOM_CODE_MODE", "random"),
		},
		Cleanup: CleanupConfig{
			Interval: getEnvAsDuration("CLEANUP_INTERVAL", 30*time.Minute),
			MaxAge:   getEnvAsDuration("CLEANUP_MAX_AGE", time.Hour),
		},
		RateLimit: RateLimitConfig{
			MessagesPerSecond: getEnvAsInt("WS_RATE_LIMIT_RPS", 20),
			Burst:             getEnvAsInt("WS_RATE_LIMIT_BURST", 40),
		},
		DB: DBConfig{
			Host:     getEnv("DB_HOST", ""),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "quiz"),
			Password: getEnv("DB_PASSWORD", "quiz_password"),
			DBName:   getEnv("DB_NAME", "quiz"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:       getEnv("REDIS_HOST", ""),
			Port:       getEnv("REDIS_PORT", "6379"),
			Password:   getEnv("REDIS_PASSWORD", ""),
			DB:         getEnvAsInt("REDIS_DB", 0),
			ResultsTTL: getEnvAsDuration("REDIS_RESULTS_TTL", 24*time.Hour),
		},
		RabbitMQ: RabbitMQConfig{
			Host:     getEnv("RABBITMQ_HOST", ""),
			Port:     getEnv("RABBITMQ_PORT", "5672"),
			User:     getEnv("RABBITMQ_USER", "guest"),
			Password: getEnv("RABBITMQ_PASSWORD", "guest"),
			Queue:    getEnv("RABBITMQ_QUEUE", "quiz.game_ended"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Invalid duration for %s: %v, using default %v", key, err, defaultValue)
		return defaultValue
	}
	return d
}

func getEnvAsList(key string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return nil
	}
	items := lo.Map(strings.Split(valueStr, ","), func(item string, _ int) string {
		return strings.TrimSpace(item)
	})
	return lo.Compact(items)
}
