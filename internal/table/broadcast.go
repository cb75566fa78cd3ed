package table

import (
	"sync"
	"time"
)

// roomLogSize bounds the rolling message log kept for admin debugging.
const roomLogSize = 200

// LoggedMessage is one entry in a room's bounded message log.
type LoggedMessage struct {
	At      time.Time
	Event   string
	Unicast bool
}

// Room fans table events out to every joined session and unicasts to
// individual seats. It never inspects payloads; per-sender ordering is
// whatever the session's Send preserves.
type Room struct {
	mu       sync.Mutex
	sessions map[Session]struct{}
	log      []LoggedMessage
	now      func() time.Time
}

func NewRoom(now func() time.Time) *Room {
	if now == nil {
		now = time.Now
	}
	return &Room{
		sessions: make(map[Session]struct{}),
		now:      now,
	}
}

func (r *Room) Join(s Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s] = struct{}{}
}

func (r *Room) Leave(s Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, s)
}

// Sessions returns the currently joined sessions. Disconnected sessions
// are purged lazily here rather than on disconnect.
func (r *Room) Sessions() []Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Session, 0, len(r.sessions))
	for s := range r.sessions {
		if !s.Connected() {
			delete(r.sessions, s)
			continue
		}
		out = append(out, s)
	}
	return out
}

// EmitToRoom fans an event out to every joined session.
func (r *Room) EmitToRoom(event string, payload any) {
	for _, s := range r.Sessions() {
		s.Send(event, payload)
	}
	r.record(event, false)
}

// EmitToSession unicasts, used for hole cards and action prompts.
func (r *Room) EmitToSession(s Session, event string, payload any) {
	if s == nil || !s.Connected() {
		return
	}
	s.Send(event, payload)
	r.record(event, true)
}

func (r *Room) record(event string, unicast bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.log = append(r.log, LoggedMessage{At: r.now(), Event: event, Unicast: unicast})
	if len(r.log) > roomLogSize {
		r.log = r.log[len(r.log)-roomLogSize:]
	}
}

// RecentMessages returns a copy of the bounded message log.
func (r *Room) RecentMessages() []LoggedMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]LoggedMessage(nil), r.log...)
}
