package sync

import (
	"log/slog"
	stdsync "sync"

	"timebank-backend/internal/balance"
	"timebank-backend/internal/store"
)

// Manager hands out one engine per identity scope and keeps it alive for the
// life of the process. Guest and anonymous scopes get a nil remote and never
// sync.
type Manager struct {
	local         *store.Store
	remote        RemoteStore
	balance       balance.Engine
	retentionDays int
	logger        *slog.Logger

	mu      stdsync.Mutex
	engines map[string]*Engine
}

// NewManager wires the shared dependencies. remote may be nil, in which case
// every scope runs local-only.
func NewManager(local *store.Store, remote RemoteStore, bal balance.Engine, retentionDays int, logger *slog.Logger) *Manager {
	return &Manager{
		local:         local,
		remote:        remote,
		balance:       bal,
		retentionDays: retentionDays,
		logger:        logger,
		engines:       make(map[string]*Engine),
	}
}

// ForScope returns the engine for the scope, creating and loading it on first
// use.
func (m *Manager) ForScope(scope store.Scope) *Engine {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.engines[scope.ID()]; ok {
		return e
	}
	remote := m.remote
	if scope.UserID == "" {
		remote = nil
	}
	e := NewEngine(scope, m.local, remote, m.balance, m.retentionDays, m.logger)
	m.engines[scope.ID()] = e
	return e
}

// Drop evicts a scope's engine, forcing a reload from the local store on next
// use. Called when an identity signs out.
func (m *Manager) Drop(scope store.Scope) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.engines, scope.ID())
}
