package services

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// SessionManager hands out one ConversationEngine per session. Engines for
// different sessions share no history and run concurrently.
type SessionManager struct {
	newEngine func(sessionID string) *ConversationEngine

	mu       sync.Mutex
	sessions map[string]*ConversationEngine
}

func NewSessionManager(newEngine func(sessionID string) *ConversationEngine) *SessionManager {
	return &SessionManager{
		newEngine: newEngine,
		sessions:  make(map[string]*ConversationEngine),
	}
}

// NewSession starts a session under a fresh random ID.
func (m *SessionManager) NewSession() *ConversationEngine {
	engine := m.newEngine(uuid.NewString())

	m.mu.Lock()
	m.sessions[engine.SessionID()] = engine
	m.mu.Unlock()

	return engine
}

// Session returns the engine for id, creating it and restoring any persisted
// history on first use. The restore runs without holding the manager lock;
// if two callers race on a new id, the first engine stored wins.
func (m *SessionManager) Session(ctx context.Context, id string) (*ConversationEngine, error) {
	m.mu.Lock()
	engine, ok := m.sessions[id]
	m.mu.Unlock()
	if ok {
		return engine, nil
	}

	engine = m.newEngine(id)
	if err := engine.Restore(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[id]; ok {
		return existing, nil
	}
	m.sessions[id] = engine
	return engine, nil
}

// Clear wipes the history of id if the session is known.
func (m *SessionManager) Clear(ctx context.Context, id string) error {
	m.mu.Lock()
	engine, ok := m.sessions[id]
	m.mu.Unlock()

	if !ok {
		return nil
	}
	return engine.ClearHistory(ctx)
}

// Close forgets the in-memory engine for id. Persisted turns are kept.
func (m *SessionManager) Close(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
