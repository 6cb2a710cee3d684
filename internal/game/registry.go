package game

import (
	"cmp"
	"slices"
	"time"

	"quiz-room-service/internal/models"

	"github.com/samber/lo"
)

// Registry maps room codes to sessions and connections to the room they are
// in. Like Session it belongs to a single goroutine.
type Registry struct {
	sessions          map[string]*Session
	connRooms         map[string]string
	codes             CodeGenerator
	questionTimeLimit int
	now               func() time.Time
}

type RegistryOption func(*Registry)

func WithCodeGenerator(g CodeGenerator) RegistryOption {
	return func(r *Registry) { r.codes = g }
}

func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) { r.now = now }
}

// WithQuestionTimeLimit sets the countdown length, in seconds, of new sessions.
func WithQuestionTimeLimit(seconds int) RegistryOption {
	return func(r *Registry) { r.questionTimeLimit = seconds }
}

func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		sessions:  make(map[string]*Session),
		connRooms: make(map[string]string),
		codes:     NewRandomCodes(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create registers an empty waiting session under a fresh room code.
func (r *Registry) Create(hostID string) *Session {
	code := r.codes.Next(func(code string) bool {
		_, exists := r.sessions[code]
		return exists
	})
	session := NewSession(code, hostID, r.questionTimeLimit, r.now)
	r.sessions[code] = session
	return session
}

func (r *Registry) Get(roomID string) (*Session, bool) {
	s, ok := r.sessions[roomID]
	return s, ok
}

// Delete removes the session, cancels its countdown and drops every
// connection still indexed to it.
func (r *Registry) Delete(roomID string) bool {
	s, ok := r.sessions[roomID]
	if !ok {
		return false
	}
	s.CancelTimer()
	delete(r.sessions, roomID)
	for conn, room := range r.connRooms {
		if room == roomID {
			delete(r.connRooms, conn)
		}
	}
	return true
}

// CleanupInactive deletes sessions created before now-maxAge that have no
// players left. It returns how many were removed.
func (r *Registry) CleanupInactive(maxAge time.Duration, now time.Time) int {
	cutoff := now.Add(-maxAge)
	stale := lo.Filter(lo.Values(r.sessions), func(s *Session, _ int) bool {
		return s.CreatedAt().Before(cutoff) && s.PlayerCount() == 0
	})
	for _, s := range stale {
		r.Delete(s.RoomID())
	}
	return len(stale)
}

func (r *Registry) Bind(connID, roomID string) {
	r.connRooms[connID] = roomID
}

func (r *Registry) Unbind(connID string) {
	delete(r.connRooms, connID)
}

// RoomOf returns the room the connection currently plays in.
func (r *Registry) RoomOf(connID string) (string, bool) {
	room, ok := r.connRooms[connID]
	return room, ok
}

// Stats lists every live session, oldest first.
func (r *Registry) Stats() []models.GameStats {
	stats := lo.Map(lo.Values(r.sessions), func(s *Session, _ int) models.GameStats {
		return s.Stats()
	})
	slices.SortFunc(stats, func(a, b models.GameStats) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.RoomID, b.RoomID))
	})
	return stats
}

func (r *Registry) ActiveCount() int {
	return len(r.sessions)
}

func (r *Registry) TotalPlayers() int {
	return lo.SumBy(lo.Values(r.sessions), func(s *Session) int {
		return s.PlayerCount()
	})
}
