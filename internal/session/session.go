// Package session keeps per-user conversation state. A user has at most one
// active session; starting another while one is live is an explicit decision
// made by the caller, never a silent overwrite.
package session

import (
	"context"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/campusgate/campusbot/core/logger"
	"github.com/campusgate/campusbot/internal/domain"
)

// Session is one user's position inside a flow plus the answers collected
// so far.
type Session struct {
	UserID  int64
	Flow    string
	State   string
	Data    map[string]string
	Touched time.Time
}

// Store is the session keeper contract. Implementations must serialize
// access per user.
type Store interface {
	// Begin opens a session. Returns domain.ErrAlreadyActive when the user
	// already has one.
	Begin(userID int64, flow, state string) error
	// Get returns a copy of the active session, or ok=false.
	Get(userID int64) (Session, bool)
	// Advance moves the session to the next state, merging collected data.
	// Returns domain.ErrNoActiveSession when there is none.
	Advance(userID int64, state string, data map[string]string) error
	// End closes the session if one exists.
	End(userID int64)
}

// MemoryStore is the in-process Store. Sessions idle past the TTL are
// reaped by the sweeper; a zero TTL disables reaping.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
	ttl      time.Duration
	log      *slog.Logger
}

// NewMemoryStore constructs a MemoryStore with the given idle TTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[int64]*Session),
		ttl:      ttl,
		log:      logger.Component("session"),
	}
}

func (m *MemoryStore) Begin(userID int64, flow, state string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[userID]; ok {
		return domain.ErrAlreadyActive
	}
	m.sessions[userID] = &Session{
		UserID:  userID,
		Flow:    flow,
		State:   state,
		Data:    make(map[string]string),
		Touched: time.Now(),
	}
	m.log.Debug("session opened",
		slog.String("event", "session.begin"),
		slog.Int64("user_id", userID),
		slog.String("flow", flow),
		slog.String("state", state),
	)
	return nil
}

func (m *MemoryStore) Get(userID int64) (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[userID]
	if !ok {
		return Session{}, false
	}
	cp := *s
	cp.Data = maps.Clone(s.Data)
	return cp, true
}

func (m *MemoryStore) Advance(userID int64, state string, data map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if !ok {
		return domain.ErrNoActiveSession
	}
	s.State = state
	s.Touched = time.Now()
	maps.Copy(s.Data, data)
	m.log.Debug("session advanced",
		slog.String("event", "session.advance"),
		slog.Int64("user_id", userID),
		slog.String("flow", s.Flow),
		slog.String("state", state),
	)
	return nil
}

func (m *MemoryStore) End(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[userID]; !ok {
		return
	}
	delete(m.sessions, userID)
	m.log.Debug("session closed",
		slog.String("event", "session.end"),
		slog.Int64("user_id", userID),
	)
}

// Len returns the number of live sessions.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep removes sessions idle past the TTL and returns how many it reaped.
func (m *MemoryStore) Sweep(now time.Time) int {
	if m.ttl <= 0 {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	reaped := 0
	for id, s := range m.sessions {
		if now.Sub(s.Touched) > m.ttl {
			delete(m.sessions, id)
			reaped++
		}
	}
	if reaped > 0 {
		m.log.Info("stale sessions reaped",
			slog.String("event", "session.sweep"),
			slog.Int("count", reaped),
		)
	}
	return reaped
}

// RunSweeper blocks, sweeping at the given interval until the context is
// cancelled. When the TTL is zero the sweeper exits immediately.
func (m *MemoryStore) RunSweeper(ctx context.Context, interval time.Duration) {
	if m.ttl <= 0 || interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			m.Sweep(now)
		}
	}
}
