package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"quiz-room-service/internal/constants"
	"quiz-room-service/internal/game"
	"quiz-room-service/internal/models"
)

// ClientMessage is an inbound frame tagged with its connection. Reject carries
// a transport-level complaint (bad JSON, rate limit) to report instead.
type ClientMessage struct {
	Client  *Client
	Message InboundMessage
	Reject  string
}

// Clock schedules countdown callbacks.
type Clock interface {
	AfterFunc(d time.Duration, f func()) game.Stopper
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) game.Stopper {
	return time.AfterFunc(d, f)
}

// Recorder receives the summary of every finished game.
type Recorder interface {
	Record(summary models.GameSummary)
}

type HubOptions struct {
	MinPlayers int
	Clock      Clock
	Recorder   Recorder
	Now        func() time.Time
}

// Hub is the session controller. Run owns the registry, every session and
// every client's Send channel; everything else reaches them by posting onto
// the loop.
type Hub struct {
	clients       map[string]*Client
	Register      chan *Client
	Unregister    chan *Client
	HandleMessage chan *ClientMessage

	tasks chan func()
	done  chan struct{}

	registry   *game.Registry
	recorder   Recorder
	clock      Clock
	minPlayers int
	now        func() time.Time
}

func NewHub(registry *game.Registry, opts HubOptions) *Hub {
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}
	if opts.MinPlayers <= 0 {
		opts.MinPlayers = 2
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Hub{
		clients:       make(map[string]*Client),
		Register:      make(chan *Client),
		Unregister:    make(chan *Client),
		HandleMessage: make(chan *ClientMessage),
		tasks:         make(chan func(), 256),
		done:          make(chan struct{}),
		registry:      registry,
		recorder:      opts.Recorder,
		clock:         opts.Clock,
		minPlayers:    opts.MinPlayers,
		now:           opts.Now,
	}
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.Unregister:
			h.unregisterClient(client)

		case clientMsg := <-h.HandleMessage:
			h.handleClientMessage(clientMsg)

		case task := <-h.tasks:
			h.runTask(task)
		}
	}
}

// RegisterClient hands a freshly upgraded connection to the loop.
func (h *Hub) RegisterClient(client *Client) {
	select {
	case h.Register <- client:
	case <-h.done:
	}
}

func (h *Hub) unregister(client *Client) {
	select {
	case h.Unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) deliver(msg *ClientMessage) {
	select {
	case h.HandleMessage <- msg:
	case <-h.done:
	}
}

func (h *Hub) post(task func()) {
	select {
	case h.tasks <- task:
	case <-h.done:
	}
}

// dropLater disconnects a client from outside the current handler.
func (h *Hub) dropLater(client *Client) {
	go h.unregister(client)
}

// Do runs fn on the hub goroutine and waits for it to finish.
func (h *Hub) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	task := func() {
		defer close(finished)
		fn()
	}
	select {
	case h.tasks <- task:
	case <-h.done:
		return errors.New("hub stopped")
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-finished:
		return nil
	case <-h.done:
		return errors.New("hub stopped")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) runTask(task func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Panic recovered in hub task: %v", r)
		}
	}()
	task()
}

func (h *Hub) registerClient(client *Client) {
	h.clients[client.ID] = client
	log.Printf("Client registered: %s (total %d)", client.ID, len(h.clients))
	client.SendMessage(MessageTypeConnected, ConnectedPayload{PlayerID: client.ID})
}

// unregisterClient treats a disconnect as an unconditional leave.
func (h *Hub) unregisterClient(client *Client) {
	if current, ok := h.clients[client.ID]; !ok || current != client {
		return
	}
	delete(h.clients, client.ID)

	if roomID, ok := h.registry.RoomOf(client.ID); ok {
		if session, ok := h.registry.Get(roomID); ok && session.HasPlayer(client.ID) {
			h.removeFromRoom(session, client.ID)
		} else {
			h.registry.Unbind(client.ID)
		}
	}

	client.close()
	log.Printf("Client unregistered: %s (total %d)", client.ID, len(h.clients))
}

func (h *Hub) handleClientMessage(clientMsg *ClientMessage) {
	client := clientMsg.Client
	msg := clientMsg.Message

	defer func() {
		if r := recover(); r != nil {
			log.Printf("Panic recovered handling %s from %s: %v", msg.Type, client.ID, r)
			client.SendError("Internal server error")
		}
	}()

	if clientMsg.Reject != "" {
		client.SendError(clientMsg.Reject)
		return
	}

	var err error
	switch msg.Type {
	case MessageTypeCreateRoom:
		err = h.handleCreateRoom(client, msg.Payload)
	case MessageTypeJoinRoom:
		err = h.handleJoinRoom(client, msg.Payload)
	case MessageTypeLeaveRoom:
		err = h.handleLeaveRoom(client, msg.Payload)
	case MessageTypeStartGame:
		err = h.handleStartGame(client, msg.Payload)
	case MessageTypeSubmitAnswer:
		err = h.handleSubmitAnswer(client, msg.Payload)
	case MessageTypeNextQuestion:
		err = h.handleNextQuestion(client, msg.Payload)
	case MessageTypeEndGame:
		err = h.handleEndGame(client, msg.Payload)
	case MessageTypeResetGame:
		err = h.handleResetGame(client, msg.Payload)
	case MessageTypePing:
		client.SendMessage(MessageTypePong, nil)
	default:
		client.SendError(fmt.Sprintf("Unknown message type: %s", msg.Type))
	}

	if err != nil {
		h.reject(client, msg.Type, err)
	}
}

func (h *Hub) reject(client *Client, msgType MessageType, err error) {
	if game.IsRejection(err) {
		log.Printf("Rejected %s from %s: %v", msgType, client.ID, err)
		client.SendError(err.Error())
		return
	}
	log.Printf("Failed to handle %s from %s: %v", msgType, client.ID, err)
	client.SendError("Internal server error")
}

// broadcast sends to every connected player of the session.
func (h *Hub) broadcast(session *game.Session, msgType MessageType, payload any) {
	for _, p := range session.Players() {
		if c, ok := h.clients[p.ID]; ok {
			c.SendMessage(msgType, payload)
		}
	}
}

// GamesListing is the public view of the registry.
type GamesListing struct {
	Games        []models.GameStats `json:"data"`
	ActiveGames  int                `json:"activeGames"`
	TotalPlayers int                `json:"totalPlayers"`
}

func (h *Hub) ListGames(ctx context.Context) (GamesListing, error) {
	var listing GamesListing
	err := h.Do(ctx, func() {
		listing = GamesListing{
			Games:        h.registry.Stats(),
			ActiveGames:  h.registry.ActiveCount(),
			TotalPlayers: h.registry.TotalPlayers(),
		}
	})
	return listing, err
}

func (h *Hub) RoomStats(ctx context.Context, roomID string) (models.GameStats, bool, error) {
	var (
		stats models.GameStats
		found bool
	)
	err := h.Do(ctx, func() {
		if session, ok := h.registry.Get(roomID); ok {
			stats, found = session.Stats(), true
		}
	})
	return stats, found, err
}

// RunCleanup periodically deletes empty rooms older than maxAge.
func (h *Hub) RunCleanup(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.post(func() {
				if cleaned := h.registry.CleanupInactive(maxAge, h.now()); cleaned > 0 {
					log.Printf("Cleaned up %d inactive games", cleaned)
				}
			})
		}
	}
}

func (h *Hub) shutdown() {
	for _, stats := range h.registry.Stats() {
		h.registry.Delete(stats.RoomID)
	}
	for id, client := range h.clients {
		client.close()
		delete(h.clients, id)
	}
	log.Println("Hub stopped")
}

func decodePayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", game.ErrInvalidPayload, err)
	}
	return nil
}

func (h *Hub) lookup(roomID string) (*game.Session, error) {
	session, ok := h.registry.Get(roomID)
	if !ok {
		return nil, game.ErrRoomNotFound
	}
	return session, nil
}

// lookupAsHost resolves the room and checks host authority for the issuer.
func (h *Hub) lookupAsHost(client *Client, raw json.RawMessage) (*game.Session, error) {
	var p RoomPayload
	if err := decodePayload(raw, &p); err != nil {
		return nil, err
	}
	session, err := h.lookup(p.RoomID)
	if err != nil {
		return nil, err
	}
	if !session.IsHost(client.ID) {
		return nil, game.ErrNotHost
	}
	return session, nil
}

func (h *Hub) requirePlaying(session *game.Session) error {
	if session.State() != constants.GameStatePlaying {
		return game.ErrGameNotPlaying
	}
	return nil
}
