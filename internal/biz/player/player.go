// Package player tracks which game and slot each live websocket session is
// bound to. The authoritative slot state (tokens, offline grace, robot
// takeover) lives inside the game actor; this index only routes inbound
// frames to the right game without touching any actor loop.
package player

import (
	"sync"
)

// Binding is the session to slot association.
type Binding struct {
	SessionID string
	GameID    string
	PlayerID  int32
}

type Manager struct {
	mu       sync.RWMutex
	bindings map[string]*Binding // sessionID -> binding
}

func NewManager() *Manager {
	return &Manager{bindings: make(map[string]*Binding)}
}

// Bind associates a session with a player slot, replacing any previous
// binding of the same session.
func (m *Manager) Bind(sessionID, gameID string, playerID int32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bindings[sessionID] = &Binding{SessionID: sessionID, GameID: gameID, PlayerID: playerID}
}

// Drop removes the session's binding, if any.
func (m *Manager) Drop(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.bindings, sessionID)
}

// Unbind drops the session's binding and returns it, or nil if unbound.
func (m *Manager) Unbind(sessionID string) *Binding {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.bindings[sessionID]
	delete(m.bindings, sessionID)
	return b
}

func (m *Manager) Get(sessionID string) *Binding {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bindings[sessionID]
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.bindings)
}
