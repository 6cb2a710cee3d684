package websocket

import (
	"encoding/json"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"quiz-room-service/internal/constants"
	"quiz-room-service/internal/game"
	"quiz-room-service/internal/models"
)

func (h *Hub) handleCreateRoom(client *Client, raw json.RawMessage) error {
	var p CreateRoomPayload
	if err := decodePayload(raw, &p); err != nil {
		return err
	}
	if _, ok := h.registry.RoomOf(client.ID); ok {
		return game.ErrAlreadyInRoom
	}

	username := cleanUsername(p.Username)
	if username == "" {
		username = constants.DefaultHostUsername
	}

	session := h.registry.Create(client.ID)
	session.AddPlayer(client.ID, username)
	h.registry.Bind(client.ID, session.RoomID())

	client.SendMessage(MessageTypeRoomCreated, RoomCreatedPayload{
		RoomID: session.RoomID(),
		HostID: client.ID,
	})
	client.SendMessage(MessageTypePlayerJoined, PlayerJoinedPayload{
		PlayerID: client.ID,
		Username: username,
		Players:  session.Players(),
	})

	log.Printf("Room created: %s by %s", session.RoomID(), client.ID)
	return nil
}

func (h *Hub) handleJoinRoom(client *Client, raw json.RawMessage) error {
	var p JoinRoomPayload
	if err := decodePayload(raw, &p); err != nil {
		return err
	}
	username := cleanUsername(p.Username)
	if username == "" {
		return game.ErrInvalidUsername
	}

	session, err := h.lookup(strings.TrimSpace(p.RoomID))
	if err != nil {
		return err
	}
	if session.HasPlayer(client.ID) {
		return game.ErrAlreadyJoined
	}
	if _, ok := h.registry.RoomOf(client.ID); ok {
		return game.ErrAlreadyInRoom
	}
	if session.State() != constants.GameStateWaiting {
		return game.ErrGameAlreadyStarted
	}

	session.AddPlayer(client.ID, username)
	h.registry.Bind(client.ID, session.RoomID())

	client.SendMessage(MessageTypeJoinedRoom, JoinedRoomPayload{
		RoomID:   session.RoomID(),
		Username: username,
	})
	h.broadcast(session, MessageTypePlayerJoined, PlayerJoinedPayload{
		PlayerID: client.ID,
		Username: username,
		Players:  session.Players(),
	})

	log.Printf("Player %s (%s) joined room %s", client.ID, username, session.RoomID())
	return nil
}

func (h *Hub) handleLeaveRoom(client *Client, raw json.RawMessage) error {
	var p RoomPayload
	if err := decodePayload(raw, &p); err != nil {
		return err
	}
	session, err := h.lookup(p.RoomID)
	if err != nil {
		return err
	}
	if !session.HasPlayer(client.ID) {
		return game.ErrNotInRoom
	}

	h.removeFromRoom(session, client.ID)
	client.SendMessage(MessageTypeLeftRoom, LeftRoomPayload{})
	return nil
}

// removeFromRoom drops a player, deletes the room once it is empty and
// otherwise notifies the rest, handing host authority on when needed.
func (h *Hub) removeFromRoom(session *game.Session, playerID string) {
	player, _ := session.Player(playerID)
	session.RemovePlayer(playerID)
	h.registry.Unbind(playerID)

	if session.PlayerCount() == 0 {
		h.registry.Delete(session.RoomID())
		log.Printf("Room %s deleted, last player left", session.RoomID())
		return
	}

	h.broadcast(session, MessageTypePlayerLeft, PlayerLeftPayload{
		PlayerID: playerID,
		Username: player.Username,
		Players:  session.Players(),
	})

	if newHost, changed := session.HandOffHost(); changed {
		h.broadcast(session, MessageTypeHostChanged, HostChangedPayload{NewHostID: newHost})
		log.Printf("Host of room %s handed to %s", session.RoomID(), newHost)
	}
}

func (h *Hub) handleStartGame(client *Client, raw json.RawMessage) error {
	var p StartGamePayload
	if err := decodePayload(raw, &p); err != nil {
		return err
	}
	session, err := h.lookup(p.RoomID)
	if err != nil {
		return err
	}
	if !session.IsHost(client.ID) {
		return game.ErrNotHost
	}
	if session.State() != constants.GameStateWaiting {
		return game.ErrGameAlreadyStarted
	}
	if session.PlayerCount() < h.minPlayers {
		return game.ErrNotEnoughPlayers
	}
	if err := game.ValidateQuestions(p.Questions); err != nil {
		return err
	}
	if p.TimeLimit != 0 {
		if p.TimeLimit < constants.MinQuestionTimeLimit || p.TimeLimit > constants.MaxQuestionTimeLimit {
			return game.ErrInvalidTimeLimit
		}
		session.SetQuestionTimeLimit(p.TimeLimit)
	}

	questions := game.NormalizeQuestions(p.Questions)
	session.Start(questions)

	h.broadcast(session, MessageTypeGameStarted, GameStartedPayload{
		Questions:      session.Questions(),
		TotalQuestions: session.TotalQuestions(),
	})
	log.Printf("Game started in room %s with %d questions and %d players",
		session.RoomID(), session.TotalQuestions(), session.PlayerCount())

	h.startQuestion(session)
	return nil
}

// startQuestion announces the current question and arms its countdown,
// replacing whatever countdown was armed before.
func (h *Hub) startQuestion(session *game.Session) {
	question, ok := session.CurrentQuestion()
	if !ok {
		return
	}
	index := session.CurrentIndex()
	limit := session.QuestionTimeLimit()

	h.broadcast(session, MessageTypeQuestionStarted, QuestionStartedPayload{
		Question:      question,
		QuestionIndex: index,
		TimeLimit:     limit,
	})

	session.ArmTimer(func(token uint64) game.Stopper {
		return h.clock.AfterFunc(time.Duration(limit)*time.Second, func() {
			h.post(func() { h.handleQuestionTimeout(session, index, token) })
		})
	})
}

// handleQuestionTimeout only informs the room; late answers are still
// accepted until the host moves on.
func (h *Hub) handleQuestionTimeout(session *game.Session, questionIndex int, token uint64) {
	if current, ok := h.registry.Get(session.RoomID()); !ok || current != session {
		return
	}
	if !session.ClearTimer(token) {
		log.Printf("Dropped stale timeout for room %s question %d", session.RoomID(), questionIndex)
		return
	}

	h.broadcast(session, MessageTypeQuestionTimeout, QuestionTimeoutPayload{
		QuestionIndex: questionIndex,
	})
}

func (h *Hub) handleSubmitAnswer(client *Client, raw json.RawMessage) error {
	var p SubmitAnswerPayload
	if err := decodePayload(raw, &p); err != nil {
		return err
	}
	session, err := h.lookup(p.RoomID)
	if err != nil {
		return err
	}
	if !session.HasPlayer(client.ID) {
		return game.ErrNotInRoom
	}
	if err := h.requirePlaying(session); err != nil {
		return err
	}
	question, ok := session.QuestionAt(p.QuestionIndex)
	if !ok {
		return game.ErrQuestionNotFound
	}
	if session.HasAnswered(client.ID, p.QuestionIndex) {
		return game.ErrAlreadyAnswered
	}

	isCorrect := game.Grade(question, p.Answer)
	points := game.Points(isCorrect)

	session.ScoreAnswer(client.ID, points)
	session.RecordAnswer(client.ID, p.QuestionIndex, p.Answer, isCorrect, max(p.TimeSpent, 0))

	player, _ := session.Player(client.ID)
	client.SendMessage(MessageTypeAnswerResult, AnswerResultPayload{
		IsCorrect:  isCorrect,
		Points:     points,
		TotalScore: player.Score,
	})
	h.broadcast(session, MessageTypeLeaderboardUpdate, session.Leaderboard())
	return nil
}

func (h *Hub) handleNextQuestion(client *Client, raw json.RawMessage) error {
	session, err := h.lookupAsHost(client, raw)
	if err != nil {
		return err
	}
	if err := h.requirePlaying(session); err != nil {
		return err
	}

	if session.Advance() {
		h.startQuestion(session)
	} else {
		h.endGame(session)
	}
	return nil
}

func (h *Hub) handleEndGame(client *Client, raw json.RawMessage) error {
	session, err := h.lookupAsHost(client, raw)
	if err != nil {
		return err
	}
	if err := h.requirePlaying(session); err != nil {
		return err
	}

	h.endGame(session)
	return nil
}

func (h *Hub) endGame(session *game.Session) {
	session.End()

	leaderboard := session.Leaderboard()
	stats := session.Stats()
	h.broadcast(session, MessageTypeGameEnded, GameEndedPayload{
		Leaderboard: leaderboard,
		GameStats:   stats,
	})
	log.Printf("Game ended in room %s", session.RoomID())

	if h.recorder != nil {
		h.recorder.Record(models.GameSummary{
			RoomID:      session.RoomID(),
			Stats:       stats,
			Leaderboard: leaderboard,
			EndedAt:     h.now(),
		})
	}
}

func (h *Hub) handleResetGame(client *Client, raw json.RawMessage) error {
	session, err := h.lookupAsHost(client, raw)
	if err != nil {
		return err
	}

	session.Reset()
	h.broadcast(session, MessageTypeGameReset, GameResetPayload{
		Players: session.Players(),
	})
	log.Printf("Game reset in room %s", session.RoomID())
	return nil
}

func cleanUsername(name string) string {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) > constants.MaxUsernameLength {
		name = string([]rune(name)[:constants.MaxUsernameLength])
	}
	return name
}
