package chat

import (
	"sync"
	"time"

	"github.com/warelinehq/wareline/internal/store"
)

// Stage is the dialog stage of one user's conversation.
type Stage int

const (
	StageIdle Stage = iota
	StageCollecting
)

// Session is the per-user conversation state. It is a plain record with no
// locking of its own; Sessions.Do serializes all access to it.
type Session struct {
	Stage       Stage
	WarehouseID string
	SectorID    string
	Pending     []store.Column
	Cursor      int
	Record      map[string]any
}

func newSession() *Session {
	s := &Session{}
	s.Reset()
	return s
}

// BeginCollection arms the column-by-column sub-dialog. The pending list is
// fixed here; the record already carries the day timestamp.
func (s *Session) BeginCollection(warehouseID, sectorID string, columns []store.Column) {
	s.Stage = StageCollecting
	s.WarehouseID = warehouseID
	s.SectorID = sectorID
	s.Pending = columns
	s.Cursor = 0
}

// CurrentColumn returns the column awaiting a value.
func (s *Session) CurrentColumn() store.Column {
	return s.Pending[s.Cursor]
}

// Reset returns the session to its idle defaults and reseeds the record with
// a fresh day timestamp for the next collection.
func (s *Session) Reset() {
	s.Stage = StageIdle
	s.WarehouseID = ""
	s.SectorID = ""
	s.Pending = nil
	s.Cursor = 0
	s.Record = map[string]any{store.DayIndex: time.Now().Format(time.RFC3339)}
}

type userSession struct {
	mu      sync.Mutex
	session *Session
}

// Sessions is the per-user session store. Sessions are created lazily on
// first contact and live for the process lifetime.
type Sessions struct {
	mu    sync.Mutex
	users map[string]*userSession
}

func NewSessions() *Sessions {
	return &Sessions{users: make(map[string]*userSession)}
}

// Do runs fn with the user's session under that user's exclusive lock. Turns
// for different users proceed concurrently; turns for the same user are
// serialized for the full read-modify-write of a turn, including the store
// operations it triggers.
func (s *Sessions) Do(userID string, fn func(*Session)) {
	s.mu.Lock()
	us, ok := s.users[userID]
	if !ok {
		us = &userSession{session: newSession()}
		s.users[userID] = us
	}
	s.mu.Unlock()

	us.mu.Lock()
	defer us.mu.Unlock()
	fn(us.session)
}

// Evict drops a user's session, if any.
func (s *Sessions) Evict(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, userID)
}
