package game

import (
	"encoding/json"
	"slices"
	"time"

	"quiz-room-service/internal/constants"
	"quiz-room-service/internal/models"

	"github.com/samber/lo"
)

// Stopper is the handle of an armed countdown. *time.Timer satisfies it.
type Stopper interface {
	Stop() bool
}

// Session is the state machine of one room. It is not safe for concurrent
// use; the hub goroutine is its only caller.
type Session struct {
	roomID    string
	hostID    string
	players   map[string]*models.Player
	order     []string
	questions []models.Question

	currentQuestionIndex int
	gameState            string
	questionTimeLimit    int

	timer      Stopper
	timerToken uint64

	createdAt time.Time
	now       func() time.Time
}

func NewSession(roomID, hostID string, questionTimeLimit int, now func() time.Time) *Session {
	if now == nil {
		now = time.Now
	}
	if questionTimeLimit <= 0 {
		questionTimeLimit = constants.DefaultQuestionTimeLimit
	}
	return &Session{
		roomID:            roomID,
		hostID:            hostID,
		players:           make(map[string]*models.Player),
		gameState:         constants.GameStateWaiting,
		questionTimeLimit: questionTimeLimit,
		createdAt:         now(),
		now:               now,
	}
}

func (s *Session) RoomID() string { return s.roomID }
func (s *Session) HostID() string { return s.hostID }
func (s *Session) State() string { return s.gameState }
func (s *Session) CreatedAt() time.Time { return s.createdAt }
func (s *Session) QuestionTimeLimit() int { return s.questionTimeLimit }
func (s *Session) CurrentIndex() int { return s.currentQuestionIndex }
func (s *Session) TotalQuestions() int { return len(s.questions) }
func (s *Session) PlayerCount() int { return len(s.players) }
func (s *Session) IsHost(id string) bool { return id != "" && id == s.hostID }

func (s *Session) Questions() []models.Question {
	return slices.Clone(s.questions)
}

func (s *Session) SetQuestionTimeLimit(seconds int) {
	if seconds > 0 {
		s.questionTimeLimit = seconds
	}
}

// AddPlayer inserts a new player with a zero score. It returns false when the
// id is already on the roster.
func (s *Session) AddPlayer(id, username string) bool {
	if _, ok := s.players[id]; ok {
		return false
	}
	s.players[id] = &models.Player{
		ID:       id,
		Username: username,
		Answers:  []models.AnswerRecord{},
		JoinedAt: s.now(),
	}
	s.order = append(s.order, id)
	return true
}

// RemovePlayer deletes the player. Host handoff and deleting an empty session
// are left to the caller.
func (s *Session) RemovePlayer(id string) bool {
	if _, ok := s.players[id]; !ok {
		return false
	}
	delete(s.players, id)
	s.order = lo.Without(s.order, id)
	return true
}

func (s *Session) HasPlayer(id string) bool {
	_, ok := s.players[id]
	return ok
}

func (s *Session) Player(id string) (models.Player, bool) {
	p, ok := s.players[id]
	if !ok {
		return models.Player{}, false
	}
	return *p, true
}

// Players returns a snapshot of the roster in join order.
func (s *Session) Players() []models.Player {
	return lo.Map(s.order, func(id string, _ int) models.Player {
		return *s.players[id]
	})
}

// HandOffHost moves host authority to the oldest remaining player when the
// current host is no longer on the roster. It returns the new host id and
// whether a handoff happened.
func (s *Session) HandOffHost() (string, bool) {
	if s.HasPlayer(s.hostID) || len(s.players) == 0 {
		return "", false
	}
	oldest := lo.MinBy(s.Players(), func(a, b models.Player) bool {
		return a.JoinedAt.Before(b.JoinedAt)
	})
	s.hostID = oldest.ID
	return s.hostID, true
}

// SetQuestions replaces the question list and rewinds the pointer.
func (s *Session) SetQuestions(questions []models.Question) {
	s.questions = slices.Clone(questions)
	s.currentQuestionIndex = 0
}

// Start installs the question set and moves the session to playing.
func (s *Session) Start(questions []models.Question) {
	s.SetQuestions(questions)
	s.gameState = constants.GameStatePlaying
}

func (s *Session) CurrentQuestion() (models.Question, bool) {
	return s.QuestionAt(s.currentQuestionIndex)
}

func (s *Session) QuestionAt(index int) (models.Question, bool) {
	if index < 0 || index >= len(s.questions) {
		return models.Question{}, false
	}
	return s.questions[index], true
}

// Advance moves the pointer forward and reports whether it still addresses a
// question. It neither arms timers nor broadcasts.
func (s *Session) Advance() bool {
	s.currentQuestionIndex++
	return s.currentQuestionIndex < len(s.questions)
}

func (s *Session) ScoreAnswer(playerID string, points int) bool {
	p, ok := s.players[playerID]
	if !ok {
		return false
	}
	p.Score += points
	return true
}

func (s *Session) RecordAnswer(playerID string, questionIndex int, answer json.RawMessage, isCorrect bool, timeSpent float64) bool {
	p, ok := s.players[playerID]
	if !ok {
		return false
	}
	p.Answers = append(p.Answers, models.AnswerRecord{
		QuestionIndex: questionIndex,
		Answer:        slices.Clone(answer),
		IsCorrect:     isCorrect,
		TimeSpent:     timeSpent,
		Timestamp:     s.now(),
	})
	return true
}

func (s *Session) HasAnswered(playerID string, questionIndex int) bool {
	p, ok := s.players[playerID]
	if !ok {
		return false
	}
	return lo.ContainsBy(p.Answers, func(a models.AnswerRecord) bool {
		return a.QuestionIndex == questionIndex
	})
}

// Leaderboard ranks every player by score, highest first. Ties keep join
// order and ranks are 1..n without gaps.
func (s *Session) Leaderboard() []models.LeaderboardEntry {
	players := s.Players()
	slices.SortStableFunc(players, func(a, b models.Player) int {
		return b.Score - a.Score
	})
	return lo.Map(players, func(p models.Player, i int) models.LeaderboardEntry {
		return models.LeaderboardEntry{Player: p, Rank: i + 1}
	})
}

// End moves the session to results and cancels any armed countdown.
func (s *Session) End() {
	s.CancelTimer()
	s.gameState = constants.GameStateResults
}

// Reset returns the room to the lobby. Host and roster are preserved.
func (s *Session) Reset() {
	s.CancelTimer()
	s.currentQuestionIndex = 0
	s.gameState = constants.GameStateWaiting
	for _, p := range s.players {
		p.Score = 0
		p.Answers = []models.AnswerRecord{}
		p.IsReady = false
	}
}

func (s *Session) Stats() models.GameStats {
	return models.GameStats{
		RoomID:          s.roomID,
		HostID:          s.hostID,
		PlayerCount:     len(s.players),
		GameState:       s.gameState,
		CurrentQuestion: s.currentQuestionIndex + 1,
		TotalQuestions:  len(s.questions),
		CreatedAt:       s.createdAt,
	}
}

// ArmTimer cancels the current countdown and installs the one returned by
// start. Every armed countdown gets a fresh token; an expiry carrying an old
// token belongs to a superseded question and must be ignored.
func (s *Session) ArmTimer(start func(token uint64) Stopper) uint64 {
	s.CancelTimer()
	s.timerToken++
	s.timer = start(s.timerToken)
	return s.timerToken
}

// CancelTimer stops the armed countdown, if any, and invalidates its token.
func (s *Session) CancelTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.timerToken++
}

func (s *Session) TimerLive(token uint64) bool {
	return s.timer != nil && token == s.timerToken
}

// ClearTimer drops the handle of a countdown that has fired. It reports false
// when token no longer names the armed countdown.
func (s *Session) ClearTimer(token uint64) bool {
	if !s.TimerLive(token) {
		return false
	}
	s.timer = nil
	return true
}
