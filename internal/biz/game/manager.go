package game

import (
	"sync"

	"github.com/yola1107/kratos/v2/log"

	"github.com/gamehall/monopoly/internal/conf"
)

// Manager owns the live game actors, creating them on first reference and
// forgetting them after eviction. Lookup is lock-free on the hot path.
type Manager struct {
	repo     Repo
	binder   Binder
	gc       *conf.Game
	logger   log.Logger
	games    sync.Map // gameID -> *Game
	createMu sync.Mutex
}

func NewManager(repo Repo, binder Binder, gc *conf.Game, logger log.Logger) (*Manager, func()) {
	m := &Manager{repo: repo, binder: binder, gc: gc, logger: logger}
	return m, m.Close
}

func (m *Manager) Get(id string) *Game {
	if v, ok := m.games.Load(id); ok {
		return v.(*Game)
	}
	return nil
}

// GetOrCreate returns the actor for id, spinning one up (and restoring its
// snapshot) on first reference. Creation is serialized so two concurrent
// joins never race two actors for one game.
func (m *Manager) GetOrCreate(id string) *Game {
	if g := m.Get(id); g != nil {
		return g
	}
	m.createMu.Lock()
	defer m.createMu.Unlock()
	if g := m.Get(id); g != nil {
		return g
	}
	g := NewGame(id, m.repo, m.binder, m.gc, m.logger, m.remove)
	m.games.Store(id, g)
	return g
}

// remove forgets a self-evicted actor. A later reference re-creates it from
// its snapshot.
func (m *Manager) remove(id string) {
	m.games.Delete(id)
}

func (m *Manager) Len() int {
	n := 0
	m.games.Range(func(_, _ any) bool { n++; return true })
	return n
}

// Close evicts every live game with a final snapshot, for graceful shutdown.
func (m *Manager) Close() {
	m.games.Range(func(_, v any) bool {
		v.(*Game).Shutdown(true)
		return true
	})
}
