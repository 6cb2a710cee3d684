package models

import (
	"encoding/json"
	"time"
)

type AnswerOption struct {
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

type Question struct {
	Type         string         `json:"type"`
	Text         string         `json:"text"`
	Answers      []AnswerOption `json:"answers"`
	CorrectOrder []int          `json:"correctOrder,omitempty"`
	CorrectText  string         `json:"correctText,omitempty"`
}

// AnswerRecord is one entry of a player's append-only answer log.
// Answer keeps the submitted payload as sent; its shape depends on the question type.
type AnswerRecord struct {
	QuestionIndex int             `json:"questionIndex"`
	Answer        json.RawMessage `json:"answer"`
	IsCorrect     bool            `json:"isCorrect"`
	TimeSpent     float64         `json:"timeSpent"`
	Timestamp     time.Time       `json:"timestamp"`
}

type Player struct {
	ID       string         `json:"id"`
	Username string         `json:"username"`
	Score    int            `json:"score"`
	Answers  []AnswerRecord `json:"answers"`
	IsReady  bool           `json:"isReady"`
	JoinedAt time.Time      `json:"joinedAt"`
}

type LeaderboardEntry struct {
	Player
	Rank int `json:"rank"`
}

type GameStats struct {
	RoomID          string    `json:"roomId"`
	HostID          string    `json:"hostId"`
	PlayerCount     int       `json:"playerCount"`
	GameState       string    `json:"gameState"`
	CurrentQuestion int       `json:"currentQuestion"`
	TotalQuestions  int       `json:"totalQuestions"`
	CreatedAt       time.Time `json:"createdAt"`
}

// GameSummary is the end-of-game record handed to the results archive.
type GameSummary struct {
	RoomID      string             `json:"roomId"`
	Stats       GameStats          `json:"gameStats"`
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
	EndedAt     time.Time          `json:"endedAt"`
}
