package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"quiz-room-service/config"
	"quiz-room-service/internal/models"

	"github.com/redis/go-redis/v9"
)

type RedisClient struct {
	client *redis.Client
	config *config.RedisConfig
}

func NewRedisClient(cfg *config.RedisConfig) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisClient{
		client: client,
		config: cfg,
	}, nil
}

func (c *RedisClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func (c *RedisClient) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisClient) Name() string {
	return "redis"
}

func resultKey(roomID string) string {
	return fmt.Sprintf("quiz:results:%s", roomID)
}

// SaveResult caches the summary of a finished game under its room code.
// A later game in a room with the same code overwrites it.
func (c *RedisClient) SaveResult(ctx context.Context, summary models.GameSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, resultKey(summary.RoomID), data, c.config.ResultsTTL).Err()
}

// GetResult returns the cached summary, reporting false when nothing is cached.
func (c *RedisClient) GetResult(ctx context.Context, roomID string) (models.GameSummary, bool, error) {
	var summary models.GameSummary
	data, err := c.client.Get(ctx, resultKey(roomID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return summary, false, nil
	}
	if err != nil {
		return summary, false, err
	}
	if err := json.Unmarshal(data, &summary); err != nil {
		return summary, false, err
	}
	return summary, true, nil
}
