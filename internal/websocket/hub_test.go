package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"quiz-room-service/internal/constants"
	"quiz-room-service/internal/game"
	"quiz-room-service/internal/models"
)

type fakeStopper struct {
	stopped bool
}

func (s *fakeStopper) Stop() bool {
	s.stopped = true
	return true
}

type pendingTimer struct {
	d       time.Duration
	f       func()
	stopper *fakeStopper
}

// fakeClock captures countdowns so a test decides when they fire.
type fakeClock struct {
	timers []*pendingTimer
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) game.Stopper {
	t := &pendingTimer{d: d, f: f, stopper: &fakeStopper{}}
	c.timers = append(c.timers, t)
	return t.stopper
}

type fakeRecorder struct {
	summaries []models.GameSummary
}

func (r *fakeRecorder) Record(summary models.GameSummary) {
	r.summaries = append(r.summaries, summary)
}

type frame struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type testHub struct {
	*Hub
	clock    *fakeClock
	recorder *fakeRecorder
}

func newTestHub(t *testing.T) *testHub {
	t.Helper()
	clock := &fakeClock{}
	recorder := &fakeRecorder{}
	registry := game.NewRegistry(game.WithCodeGenerator(game.NewSequentialCodes()))
	h := NewHub(registry, HubOptions{
		MinPlayers: 2,
		Clock:      clock,
		Recorder:   recorder,
	})
	return &testHub{Hub: h, clock: clock, recorder: recorder}
}

func (th *testHub) connect(t *testing.T, id string) *Client {
	t.Helper()
	c := NewClient(th.Hub, nil, id, nil)
	th.registerClient(c)
	f := expect(t, c, MessageTypeConnected)
	var p ConnectedPayload
	decode(t, f, &p)
	if p.PlayerID != id {
		t.Fatalf("connected playerId = %q, want %q", p.PlayerID, id)
	}
	return c
}

func (th *testHub) send(t *testing.T, c *Client, msgType MessageType, payload any) {
	t.Helper()
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		raw = data
	}
	th.handleClientMessage(&ClientMessage{
		Client:  c,
		Message: InboundMessage{Type: msgType, Payload: raw},
	})
}

// runTasks executes whatever timer expiries have posted onto the loop.
func (th *testHub) runTasks() {
	for {
		select {
		case task := <-th.tasks:
			th.runTask(task)
		default:
			return
		}
	}
}

func (th *testHub) fire(t *testing.T, i int) {
	t.Helper()
	if i >= len(th.clock.timers) {
		t.Fatalf("timer %d was never armed", i)
	}
	th.clock.timers[i].f()
	th.runTasks()
}

func drain(c *Client) []frame {
	var frames []frame
	for {
		select {
		case data, ok := <-c.Send:
			if !ok {
				return frames
			}
			var f frame
			if err := json.Unmarshal(data, &f); err == nil {
				frames = append(frames, f)
			}
		default:
			return frames
		}
	}
}

// expect drains c and returns the first frame of the given type.
func expect(t *testing.T, c *Client, msgType MessageType) frame {
	t.Helper()
	frames := drain(c)
	for _, f := range frames {
		if f.Type == msgType {
			return f
		}
	}
	t.Fatalf("client %s: no %s frame among %v", c.ID, msgType, types(frames))
	return frame{}
}

func expectError(t *testing.T, c *Client, want string) {
	t.Helper()
	f := expect(t, c, MessageTypeError)
	var p ErrorPayload
	decode(t, f, &p)
	if p.Message != want {
		t.Errorf("error message = %q, want %q", p.Message, want)
	}
}

func decode(t *testing.T, f frame, v any) {
	t.Helper()
	if err := json.Unmarshal(f.Payload, v); err != nil {
		t.Fatalf("decode %s payload: %v", f.Type, err)
	}
}

func types(frames []frame) []MessageType {
	out := make([]MessageType, len(frames))
	for i, f := range frames {
		out[i] = f.Type
	}
	return out
}

func quiz() []models.Question {
	return []models.Question{
		{
			Text:    "2+2?",
			Answers: []models.AnswerOption{{Text: "3"}, {Text: "4", Correct: true}},
		},
		{
			Type:        constants.QuestionTypeFill,
			Text:        "Capital of Vietnam",
			CorrectText: "Hà Nội",
		},
	}
}

// setupRoom creates room 100000 hosted by "host" with "p2" joined.
func setupRoom(t *testing.T, th *testHub) (host, p2 *Client) {
	t.Helper()
	host = th.connect(t, "host")
	p2 = th.connect(t, "p2")

	th.send(t, host, MessageTypeCreateRoom, CreateRoomPayload{Username: "Alice"})
	var created RoomCreatedPayload
	decode(t, expect(t, host, MessageTypeRoomCreated), &created)
	if created.RoomID != "100000" || created.HostID != "host" {
		t.Fatalf("room_created = %+v", created)
	}

	th.send(t, p2, MessageTypeJoinRoom, JoinRoomPayload{RoomID: "100000", Username: "Bob"})
	expect(t, p2, MessageTypeJoinedRoom)
	drain(host)
	return host, p2
}

func TestCreateRoomDefaultsHostUsername(t *testing.T) {
	th := newTestHub(t)
	host := th.connect(t, "host")

	th.send(t, host, MessageTypeCreateRoom, nil)
	frames := drain(host)
	if len(frames) != 2 || frames[0].Type != MessageTypeRoomCreated || frames[1].Type != MessageTypePlayerJoined {
		t.Fatalf("frames = %v, want room_created then player_joined", types(frames))
	}
	var joined PlayerJoinedPayload
	decode(t, frames[1], &joined)
	if joined.Username != constants.DefaultHostUsername || len(joined.Players) != 1 {
		t.Errorf("player_joined = %+v", joined)
	}

	th.send(t, host, MessageTypeCreateRoom, nil)
	expectError(t, host, game.ErrAlreadyInRoom.Error())
}

func TestJoinRoomRejections(t *testing.T) {
	th := newTestHub(t)
	host, p2 := setupRoom(t, th)

	outsider := th.connect(t, "p3")

	th.send(t, outsider, MessageTypeJoinRoom, JoinRoomPayload{RoomID: "999999", Username: "Eve"})
	expectError(t, outsider, game.ErrRoomNotFound.Error())

	th.send(t, outsider, MessageTypeJoinRoom, JoinRoomPayload{RoomID: "100000", Username: "   "})
	expectError(t, outsider, game.ErrInvalidUsername.Error())

	th.send(t, p2, MessageTypeJoinRoom, JoinRoomPayload{RoomID: "100000", Username: "Bob"})
	expectError(t, p2, game.ErrAlreadyJoined.Error())

	th.send(t, host, MessageTypeStartGame, StartGamePayload{RoomID: "100000", Questions: quiz()})
	drain(host)
	drain(p2)

	th.send(t, outsider, MessageTypeJoinRoom, JoinRoomPayload{RoomID: "100000", Username: "Eve"})
	expectError(t, outsider, game.ErrGameAlreadyStarted.Error())
}

func TestStartGameRejections(t *testing.T) {
	th := newTestHub(t)
	host := th.connect(t, "host")
	th.send(t, host, MessageTypeCreateRoom, CreateRoomPayload{Username: "Alice"})
	drain(host)

	th.send(t, host, MessageTypeStartGame, StartGamePayload{RoomID: "100000", Questions: quiz()})
	expectError(t, host, game.ErrNotEnoughPlayers.Error())

	p2 := th.connect(t, "p2")
	th.send(t, p2, MessageTypeJoinRoom, JoinRoomPayload{RoomID: "100000", Username: "Bob"})
	drain(p2)
	drain(host)

	th.send(t, p2, MessageTypeStartGame, StartGamePayload{RoomID: "100000", Questions: quiz()})
	expectError(t, p2, game.ErrNotHost.Error())
	if frames := drain(host); len(frames) != 0 {
		t.Errorf("host received %v after a rejected start", types(frames))
	}

	th.send(t, host, MessageTypeStartGame, StartGamePayload{RoomID: "100000"})
	f := expect(t, host, MessageTypeError)
	var p ErrorPayload
	decode(t, f, &p)
	if p.Message == "" {
		t.Error("empty question set rejected without a message")
	}

	th.send(t, host, MessageTypeStartGame, StartGamePayload{RoomID: "100000", Questions: quiz(), TimeLimit: 1})
	expectError(t, host, game.ErrInvalidTimeLimit.Error())

	if len(th.clock.timers) != 0 {
		t.Errorf("%d countdowns armed by rejected starts", len(th.clock.timers))
	}
}

func TestFullGameFlow(t *testing.T) {
	th := newTestHub(t)
	host, p2 := setupRoom(t, th)

	th.send(t, host, MessageTypeStartGame, StartGamePayload{RoomID: "100000", Questions: quiz(), TimeLimit: 20})
	for _, c := range []*Client{host, p2} {
		frames := drain(c)
		if len(frames) != 2 || frames[0].Type != MessageTypeGameStarted || frames[1].Type != MessageTypeQuestionStarted {
			t.Fatalf("client %s frames = %v, want game_started then question_started", c.ID, types(frames))
		}
		var q QuestionStartedPayload
		decode(t, frames[1], &q)
		if q.QuestionIndex != 0 || q.TimeLimit != 20 {
			t.Errorf("question_started = %+v", q)
		}
	}
	if len(th.clock.timers) != 1 || th.clock.timers[0].d != 20*time.Second {
		t.Fatalf("armed timers = %+v", th.clock.timers)
	}

	th.send(t, p2, MessageTypeSubmitAnswer, SubmitAnswerPayload{
		RoomID: "100000", QuestionIndex: 0, Answer: json.RawMessage(`1`), TimeSpent: 3.2,
	})
	var result AnswerResultPayload
	decode(t, expect(t, p2, MessageTypeAnswerResult), &result)
	if !result.IsCorrect || result.Points != 10 || result.TotalScore != 10 {
		t.Errorf("answer_result = %+v", result)
	}
	var board []models.LeaderboardEntry
	decode(t, expect(t, host, MessageTypeLeaderboardUpdate), &board)
	if len(board) != 2 || board[0].ID != "p2" || board[0].Rank != 1 {
		t.Errorf("leaderboard = %+v", board)
	}

	th.send(t, p2, MessageTypeSubmitAnswer, SubmitAnswerPayload{
		RoomID: "100000", QuestionIndex: 0, Answer: json.RawMessage(`1`),
	})
	expectError(t, p2, game.ErrAlreadyAnswered.Error())

	th.send(t, p2, MessageTypeNextQuestion, RoomPayload{RoomID: "100000"})
	expectError(t, p2, game.ErrNotHost.Error())

	th.send(t, host, MessageTypeNextQuestion, RoomPayload{RoomID: "100000"})
	var q QuestionStartedPayload
	decode(t, expect(t, p2, MessageTypeQuestionStarted), &q)
	if q.QuestionIndex != 1 {
		t.Errorf("question_started index = %d, want 1", q.QuestionIndex)
	}
	drain(host)
	if !th.clock.timers[0].stopper.stopped {
		t.Error("first countdown not cancelled on next_question")
	}

	th.send(t, host, MessageTypeSubmitAnswer, SubmitAnswerPayload{
		RoomID: "100000", QuestionIndex: 1, Answer: json.RawMessage(`"  hà nội "`),
	})
	decode(t, expect(t, host, MessageTypeAnswerResult), &result)
	if !result.IsCorrect {
		t.Error("normalized fill answer graded wrong")
	}
	drain(p2)

	th.send(t, host, MessageTypeNextQuestion, RoomPayload{RoomID: "100000"})
	var ended GameEndedPayload
	decode(t, expect(t, p2, MessageTypeGameEnded), &ended)
	drain(host)
	if ended.GameStats.GameState != constants.GameStateResults || len(ended.Leaderboard) != 2 {
		t.Errorf("game_ended = %+v", ended)
	}
	if len(th.recorder.summaries) != 1 || th.recorder.summaries[0].RoomID != "100000" {
		t.Fatalf("recorded summaries = %+v", th.recorder.summaries)
	}

	th.send(t, host, MessageTypeEndGame, RoomPayload{RoomID: "100000"})
	expectError(t, host, game.ErrGameNotPlaying.Error())
	if len(th.recorder.summaries) != 1 {
		t.Error("game ended twice")
	}

	th.send(t, host, MessageTypeResetGame, RoomPayload{RoomID: "100000"})
	var reset GameResetPayload
	decode(t, expect(t, p2, MessageTypeGameReset), &reset)
	for _, p := range reset.Players {
		if p.Score != 0 || len(p.Answers) != 0 {
			t.Errorf("player %s not reset: %+v", p.ID, p)
		}
	}
}

func TestQuestionTimeout(t *testing.T) {
	th := newTestHub(t)
	host, p2 := setupRoom(t, th)

	th.send(t, host, MessageTypeStartGame, StartGamePayload{RoomID: "100000", Questions: quiz()})
	drain(host)
	drain(p2)

	th.fire(t, 0)
	var timeout QuestionTimeoutPayload
	decode(t, expect(t, p2, MessageTypeQuestionTimeout), &timeout)
	if timeout.QuestionIndex != 0 {
		t.Errorf("question_timeout index = %d, want 0", timeout.QuestionIndex)
	}
	drain(host)

	// Answers after the timeout are still accepted.
	th.send(t, p2, MessageTypeSubmitAnswer, SubmitAnswerPayload{
		RoomID: "100000", QuestionIndex: 0, Answer: json.RawMessage(`1`),
	})
	expect(t, p2, MessageTypeAnswerResult)
}

func TestStaleTimeoutIsDropped(t *testing.T) {
	th := newTestHub(t)
	host, p2 := setupRoom(t, th)

	th.send(t, host, MessageTypeStartGame, StartGamePayload{RoomID: "100000", Questions: quiz()})
	th.send(t, host, MessageTypeNextQuestion, RoomPayload{RoomID: "100000"})
	drain(host)
	drain(p2)

	// The first countdown fires late, after the host already moved on.
	th.fire(t, 0)
	for _, f := range drain(p2) {
		if f.Type == MessageTypeQuestionTimeout {
			t.Fatal("stale countdown produced question_timeout")
		}
	}

	th.fire(t, 1)
	var timeout QuestionTimeoutPayload
	decode(t, expect(t, p2, MessageTypeQuestionTimeout), &timeout)
	if timeout.QuestionIndex != 1 {
		t.Errorf("question_timeout index = %d, want 1", timeout.QuestionIndex)
	}
}

func TestTimeoutAfterRoomDeleted(t *testing.T) {
	th := newTestHub(t)
	host, p2 := setupRoom(t, th)

	th.send(t, host, MessageTypeStartGame, StartGamePayload{RoomID: "100000", Questions: quiz()})
	th.unregisterClient(host)
	th.unregisterClient(p2)

	if th.registry.ActiveCount() != 0 {
		t.Fatal("room survived its last player")
	}
	th.fire(t, 0)
}

func TestHostLeavesHandsOff(t *testing.T) {
	th := newTestHub(t)
	host, p2 := setupRoom(t, th)
	p3 := th.connect(t, "p3")
	th.send(t, p3, MessageTypeJoinRoom, JoinRoomPayload{RoomID: "100000", Username: "Carol"})
	drain(host)
	drain(p2)
	drain(p3)

	th.send(t, host, MessageTypeLeaveRoom, RoomPayload{RoomID: "100000"})
	expect(t, host, MessageTypeLeftRoom)

	frames := drain(p3)
	if len(frames) != 2 || frames[0].Type != MessageTypePlayerLeft || frames[1].Type != MessageTypeHostChanged {
		t.Fatalf("frames = %v, want player_left then host_changed", types(frames))
	}
	var changed HostChangedPayload
	decode(t, frames[1], &changed)
	if changed.NewHostID != "p2" {
		t.Errorf("newHostId = %q, want p2", changed.NewHostID)
	}
	drain(p2)

	th.send(t, p2, MessageTypeResetGame, RoomPayload{RoomID: "100000"})
	expect(t, p3, MessageTypeGameReset)

	th.send(t, host, MessageTypeLeaveRoom, RoomPayload{RoomID: "100000"})
	expectError(t, host, game.ErrNotInRoom.Error())
}

func TestDisconnectLeavesRoom(t *testing.T) {
	th := newTestHub(t)
	host, p2 := setupRoom(t, th)

	th.unregisterClient(p2)
	var left PlayerLeftPayload
	decode(t, expect(t, host, MessageTypePlayerLeft), &left)
	if left.PlayerID != "p2" || len(left.Players) != 1 {
		t.Errorf("player_left = %+v", left)
	}
	if _, ok := <-p2.Send; ok {
		t.Error("send channel of disconnected client still open")
	}

	th.unregisterClient(host)
	if th.registry.ActiveCount() != 0 {
		t.Error("empty room was not deleted")
	}
	if _, ok := th.registry.RoomOf("host"); ok {
		t.Error("connection index still holds the host")
	}

	// A second unregister of the same client is a no-op.
	th.unregisterClient(host)
}

func TestProtocolErrors(t *testing.T) {
	th := newTestHub(t)
	c := th.connect(t, "c1")

	th.send(t, c, "dance", nil)
	expectError(t, c, "Unknown message type: dance")

	th.handleClientMessage(&ClientMessage{
		Client:  c,
		Message: InboundMessage{Type: MessageTypeJoinRoom, Payload: json.RawMessage(`"not an object"`)},
	})
	f := expect(t, c, MessageTypeError)
	var p ErrorPayload
	decode(t, f, &p)
	if p.Message == "" || p.Message == "Internal server error" {
		t.Errorf("malformed payload reported as %q", p.Message)
	}

	th.handleClientMessage(&ClientMessage{Client: c, Reject: "Invalid message format"})
	expectError(t, c, "Invalid message format")

	th.send(t, c, MessageTypePing, nil)
	expect(t, c, MessageTypePong)

	th.send(t, c, MessageTypeSubmitAnswer, SubmitAnswerPayload{RoomID: "100000"})
	expectError(t, c, game.ErrRoomNotFound.Error())
}

func TestListGamesAndRoomStats(t *testing.T) {
	th := newTestHub(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go th.Run(ctx)

	host := NewClient(th.Hub, nil, "host", nil)
	th.RegisterClient(host)
	th.deliver(&ClientMessage{Client: host, Message: InboundMessage{Type: MessageTypeCreateRoom}})

	listing, err := th.ListGames(ctx)
	if err != nil {
		t.Fatalf("ListGames() error = %v", err)
	}
	if listing.ActiveGames != 1 || listing.TotalPlayers != 1 || len(listing.Games) != 1 {
		t.Errorf("listing = %+v", listing)
	}

	stats, found, err := th.RoomStats(ctx, "100000")
	if err != nil || !found || stats.HostID != "host" {
		t.Errorf("RoomStats() = %+v, %v, %v", stats, found, err)
	}
	if _, found, _ := th.RoomStats(ctx, "999999"); found {
		t.Error("RoomStats() found a missing room")
	}

	cancel()
	<-th.done
	if err := th.Do(context.Background(), func() {}); err == nil {
		t.Error("Do() on a stopped hub returned nil")
	}
}
