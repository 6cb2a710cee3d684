package database

import (
	"context"
	"database/sql"
	"fmt"

	"quiz-room-service/config"

	_ "github.com/lib/pq"
)

type PostgresClient struct {
	db     *sql.DB
	config *config.DBConfig
}

func NewPostgresClient(cfg *config.DBConfig) (*PostgresClient, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresClient{
		db:     db,
		config: cfg,
	}, nil
}

func (c *PostgresClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

func (c *PostgresClient) GetDB() *sql.DB {
	return c.db
}

func (c *PostgresClient) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *PostgresClient) InitSchema(ctx context.Context) error {
	createGameResultsTable := `
		CREATE TABLE IF NOT EXISTS game_results (
			id BIGSERIAL PRIMARY KEY,
			room_id VARCHAR(32) NOT NULL,
			host_id VARCHAR(64) NOT NULL,
			player_count INTEGER NOT NULL,
			total_questions INTEGER NOT NULL,
			leaderboard JSONB NOT NULL DEFAULT '[]',
			created_at TIMESTAMP NOT NULL,
			ended_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_game_results_room_id ON game_results(room_id);
		CREATE INDEX IF NOT EXISTS idx_game_results_ended_at ON game_results(ended_at);
	`

	if _, err := c.db.ExecContext(ctx, createGameResultsTable); err != nil {
		return fmt.Errorf("failed to create game_results table: %w", err)
	}

	return nil
}

func (c *PostgresClient) Name() string {
	return "postgres"
}
