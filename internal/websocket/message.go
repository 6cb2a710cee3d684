package websocket

import (
	"encoding/json"

	"quiz-room-service/internal/models"
)

type MessageType string

const (
	// Client -> Server
	MessageTypeCreateRoom   MessageType = "create_room"
	MessageTypeJoinRoom     MessageType = "join_room"
	MessageTypeLeaveRoom    MessageType = "leave_room"
	MessageTypeStartGame    MessageType = "start_game"
	MessageTypeSubmitAnswer MessageType = "submit_answer"
	MessageTypeNextQuestion MessageType = "next_question"
	MessageTypeEndGame      MessageType = "end_game"
	MessageTypeResetGame    MessageType = "reset_game"
	MessageTypePing         MessageType = "ping"

	// Server -> Client
	MessageTypeConnected         MessageType = "connected"
	MessageTypeRoomCreated       MessageType = "room_created"
	MessageTypeJoinedRoom        MessageType = "joined_room"
	MessageTypePlayerJoined      MessageType = "player_joined"
	MessageTypePlayerLeft        MessageType = "player_left"
	MessageTypeLeftRoom          MessageType = "left_room"
	MessageTypeHostChanged       MessageType = "host_changed"
	MessageTypeGameStarted       MessageType = "game_started"
	MessageTypeQuestionStarted   MessageType = "question_started"
	MessageTypeQuestionTimeout   MessageType = "question_timeout"
	MessageTypeAnswerResult      MessageType = "answer_result"
	MessageTypeLeaderboardUpdate MessageType = "leaderboard_update"
	MessageTypeGameEnded         MessageType = "game_ended"
	MessageTypeGameReset         MessageType = "game_reset"
	MessageTypeError             MessageType = "error"
	MessageTypePong              MessageType = "pong"
)

// Message is an outbound frame.
type Message struct {
	Type    MessageType `json:"type"`
	Payload any         `json:"payload,omitempty"`
}

// InboundMessage is a client frame; the payload is decoded per event type.
type InboundMessage struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type CreateRoomPayload struct {
	Username string `json:"username,omitempty"`
}

type JoinRoomPayload struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
}

type RoomPayload struct {
	RoomID string `json:"roomId"`
}

type StartGamePayload struct {
	RoomID    string            `json:"roomId"`
	Questions []models.Question `json:"questions"`
	TimeLimit int               `json:"timeLimit,omitempty"`
}

type SubmitAnswerPayload struct {
	RoomID        string          `json:"roomId"`
	QuestionIndex int             `json:"questionIndex"`
	Answer        json.RawMessage `json:"answer"`
	QuestionType  string          `json:"questionType,omitempty"`
	TimeSpent     float64         `json:"timeSpent"`
}

type ConnectedPayload struct {
	PlayerID string `json:"playerId"`
}

type RoomCreatedPayload struct {
	RoomID string `json:"roomId"`
	HostID string `json:"hostId"`
}

type JoinedRoomPayload struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
}

type PlayerJoinedPayload struct {
	PlayerID string          `json:"playerId"`
	Username string          `json:"username"`
	Players  []models.Player `json:"players"`
}

type PlayerLeftPayload struct {
	PlayerID string          `json:"playerId"`
	Username string          `json:"username"`
	Players  []models.Player `json:"players"`
}

type LeftRoomPayload struct{}

type HostChangedPayload struct {
	NewHostID string `json:"newHostId"`
}

type GameStartedPayload struct {
	Questions      []models.Question `json:"questions"`
	TotalQuestions int               `json:"totalQuestions"`
}

type QuestionStartedPayload struct {
	Question      models.Question `json:"question"`
	QuestionIndex int             `json:"questionIndex"`
	TimeLimit     int             `json:"timeLimit"`
}

type QuestionTimeoutPayload struct {
	QuestionIndex int `json:"questionIndex"`
}

type AnswerResultPayload struct {
	IsCorrect  bool `json:"isCorrect"`
	Points     int  `json:"points"`
	TotalScore int  `json:"totalScore"`
}

type GameEndedPayload struct {
	Leaderboard []models.LeaderboardEntry `json:"leaderboard"`
	GameStats   models.GameStats          `json:"gameStats"`
}

type GameResetPayload struct {
	Players []models.Player `json:"players"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
