// Package store is the local persistence layer: a small key-value table in an
// embedded sqlite database, namespaced per identity scope. It is deliberately
// failure-swallowing: a corrupt payload reads as empty and an unavailable
// database degrades to process memory, because for authenticated users the
// remote store is the ultimate source of truth.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"timebank-backend/internal/domain"
)

const (
	keyPrefix     = "timebank"
	schemaVersion = "v1"
)

// Kind names a persisted slot within a scope.
type Kind string

const (
	KindPunches              Kind = "punches"
	KindAdjustments          Kind = "adjustments"
	KindSettings             Kind = "settings"
	KindPendingOps           Kind = "pendingOps"
	KindPendingAdjustmentOps Kind = "pendingAdjustmentOps"
)

// Scope is the identity namespace for all local keys: an authenticated user,
// the local-only guest, or the pre-login anonymous slot.
type Scope struct {
	UserID string
	Guest  bool
}

// ID returns the scope segment used in storage keys.
func (s Scope) ID() string {
	if s.Guest {
		return "guest"
	}
	if s.UserID != "" {
		return "user_" + url.QueryEscape(s.UserID)
	}
	return "anonymous"
}

func scopedKey(kind Kind, scope Scope) string {
	return keyPrefix + "." + string(kind) + "." + scope.ID() + "." + schemaVersion
}

// legacyKey is the pre-scoping layout, kept readable for one-time migration.
func legacyKey(kind Kind) string {
	return keyPrefix + "." + string(kind) + "." + schemaVersion
}

// Store is a scoped key-value store. All methods are synchronous and never
// return errors to callers; failures are logged and absorbed.
type Store struct {
	mu     sync.Mutex
	db     *sql.DB // nil when degraded to memory only
	mem    map[string]string
	logger *slog.Logger
}

// Open opens (or creates) the local database at path. Open never fails: if
// sqlite is unavailable the store runs on process memory alone.
func Open(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{mem: make(map[string]string), logger: logger}

	if dir := filepath.Dir(path); dir != "." {
		_ = os.MkdirAll(dir, 0o755)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		logger.Warn("local store unavailable, using memory only", "err", err)
		return s
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS kv (key TEXT PRIMARY KEY, value TEXT NOT NULL)`); err != nil {
		logger.Warn("local store migrate failed, using memory only", "err", err)
		_ = db.Close()
		return s
	}
	s.db = db
	return s
}

// Close releases the underlying database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Health reports whether durable storage is actually backing the store.
func (s *Store) Health(ctx context.Context) error {
	s.mu.Lock()
	db := s.db
	s.mu.Unlock()
	if db == nil {
		return errors.New("local store degraded to memory")
	}
	return db.PingContext(ctx)
}

// get returns the raw value for key, preferring the database and falling back
// to the memory overlay. Callers hold s.mu.
func (s *Store) get(key string) (string, bool) {
	if s.db != nil {
		var value string
		err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
		switch {
		case err == nil:
			return value, true
		case errors.Is(err, sql.ErrNoRows):
		default:
			s.logger.Warn("local store read failed", "key", key, "err", err)
		}
	}
	value, ok := s.mem[key]
	return value, ok
}

// set writes the raw value for key. A failed database write lands in the
// memory overlay so the running process keeps its state.
func (s *Store) set(key, value string) {
	if s.db != nil {
		_, err := s.db.Exec(`INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
		if err == nil {
			delete(s.mem, key)
			return
		}
		s.logger.Warn("local store write failed, keeping in memory", "key", key, "err", err)
	}
	s.mem[key] = value
}

func (s *Store) hasKey(key string) bool {
	_, ok := s.get(key)
	return ok
}

// hasAnyUserScopedKey reports whether any user-scoped slot exists for kind.
func (s *Store) hasAnyUserScopedKey(kind Kind) bool {
	prefix := keyPrefix + "." + string(kind) + ".user_"
	if s.db != nil {
		var n int
		if err := s.db.QueryRow(`SELECT COUNT(*) FROM kv WHERE key LIKE ? || '%'`, prefix).Scan(&n); err == nil && n > 0 {
			return true
		}
	}
	for k := range s.mem {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}

// migrateLegacy copies a pre-scoping value into the scoped slot, once. It is
// skipped when the scoped slot already has data, and never runs for a user
// scope when any other user scope already claimed data of that kind, so one
// user's legacy data cannot bleed into another's namespace.
func (s *Store) migrateLegacy(kind Kind, scope Scope) {
	target := scopedKey(kind, scope)
	if s.hasKey(target) {
		return
	}
	legacy, ok := s.get(legacyKey(kind))
	if !ok {
		return
	}
	if !scope.Guest && s.hasAnyUserScopedKey(kind) {
		return
	}
	s.set(target, legacy)
}

// loadList decodes a JSON list slot; malformed data reads as empty.
func loadList[T any](s *Store, scope Scope, kind Kind) []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.migrateLegacy(kind, scope)
	raw, ok := s.get(scopedKey(kind, scope))
	if !ok || raw == "" {
		return nil
	}
	var out []T
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		s.logger.Warn("discarding malformed local payload", "kind", string(kind), "scope", scope.ID(), "err", err)
		return nil
	}
	return out
}

// saveList overwrites a JSON list slot, last write wins.
func saveList[T any](s *Store, scope Scope, kind Kind, items []T) {
	raw, err := json.Marshal(items)
	if err != nil {
		s.logger.Warn("local store encode failed", "kind", string(kind), "err", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set(scopedKey(kind, scope), string(raw))
}

func (s *Store) LoadPunches(scope Scope) []domain.Punch {
	return loadList[domain.Punch](s, scope, KindPunches)
}

func (s *Store) SavePunches(scope Scope, punches []domain.Punch) {
	saveList(s, scope, KindPunches, punches)
}

func (s *Store) LoadAdjustments(scope Scope) []domain.Adjustment {
	return loadList[domain.Adjustment](s, scope, KindAdjustments)
}

func (s *Store) SaveAdjustments(scope Scope, adjustments []domain.Adjustment) {
	saveList(s, scope, KindAdjustments, adjustments)
}

func (s *Store) LoadPendingOps(scope Scope) []domain.PendingOp {
	return loadList[domain.PendingOp](s, scope, KindPendingOps)
}

func (s *Store) SavePendingOps(scope Scope, ops []domain.PendingOp) {
	saveList(s, scope, KindPendingOps, ops)
}

func (s *Store) LoadPendingAdjustmentOps(scope Scope) []domain.PendingAdjustmentOp {
	return loadList[domain.PendingAdjustmentOp](s, scope, KindPendingAdjustmentOps)
}

func (s *Store) SavePendingAdjustmentOps(scope Scope, ops []domain.PendingAdjustmentOp) {
	saveList(s, scope, KindPendingAdjustmentOps, ops)
}

// LoadSettings returns the scope's settings, normalized, or the defaults when
// the slot is absent or malformed.
func (s *Store) LoadSettings(scope Scope) domain.Settings {
	s.mu.Lock()
	s.migrateLegacy(KindSettings, scope)
	raw, ok := s.get(scopedKey(KindSettings, scope))
	s.mu.Unlock()
	if !ok || raw == "" {
		return domain.DefaultSettings()
	}
	var out domain.Settings
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		s.logger.Warn("discarding malformed settings payload", "scope", scope.ID(), "err", err)
		return domain.DefaultSettings()
	}
	return domain.NormalizeSettings(out)
}

func (s *Store) SaveSettings(scope Scope, settings domain.Settings) {
	raw, err := json.Marshal(settings)
	if err != nil {
		s.logger.Warn("local store encode failed", "kind", string(KindSettings), "err", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set(scopedKey(KindSettings, scope), string(raw))
}
