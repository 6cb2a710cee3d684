package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"quiz-room-service/internal/constants"
	"quiz-room-service/internal/models"
)

type ResultRepository struct {
	db *sql.DB
}

func NewResultRepository(db *sql.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

func (r *ResultRepository) Name() string {
	return "postgres"
}

func (r *ResultRepository) SaveResult(ctx context.Context, summary models.GameSummary) error {
	leaderboard, err := json.Marshal(summary.Leaderboard)
	if err != nil {
		return fmt.Errorf("failed to marshal leaderboard: %w", err)
	}

	query := `
		INSERT INTO game_results (room_id, host_id, player_count, total_questions, leaderboard, created_at, ended_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = r.db.ExecContext(ctx, query,
		summary.RoomID,
		summary.Stats.HostID,
		summary.Stats.PlayerCount,
		summary.Stats.TotalQuestions,
		string(leaderboard),
		summary.Stats.CreatedAt,
		summary.EndedAt,
	)
	return err
}

// ListRecent returns the latest archived games, newest first.
func (r *ResultRepository) ListRecent(ctx context.Context, limit int) ([]models.GameSummary, error) {
	query := `
		SELECT room_id, host_id, player_count, total_questions, leaderboard, created_at, ended_at
		FROM game_results
		ORDER BY ended_at DESC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := []models.GameSummary{}
	for rows.Next() {
		var (
			summary     models.GameSummary
			leaderboard string
		)
		err := rows.Scan(
			&summary.RoomID,
			&summary.Stats.HostID,
			&summary.Stats.PlayerCount,
			&summary.Stats.TotalQuestions,
			&leaderboard,
			&summary.Stats.CreatedAt,
			&summary.EndedAt,
		)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(leaderboard), &summary.Leaderboard); err != nil {
			return nil, fmt.Errorf("failed to parse leaderboard of room %s: %w", summary.RoomID, err)
		}
		summary.Stats.RoomID = summary.RoomID
		summary.Stats.GameState = constants.GameStateResults
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}
