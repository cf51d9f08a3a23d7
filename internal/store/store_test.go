package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timebank-backend/internal/domain"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "timebank.db")
	s := Open(path, nil)
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func somePunch(id string) domain.Punch {
	return domain.Punch{
		ID:   id,
		At:   time.Date(2026, 3, 2, 9, 0, 0, 0, time.Local),
		Kind: domain.PunchClockIn,
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s, _ := openTestStore(t)
	scope := Scope{UserID: "u1"}

	s.SavePunches(scope, []domain.Punch{somePunch("a"), somePunch("b")})
	punches := s.LoadPunches(scope)
	require.Len(t, punches, 2)
	assert.Equal(t, "a", punches[0].ID)

	require.NoError(t, s.Health(context.Background()))
}

func TestScopesAreIsolated(t *testing.T) {
	s, _ := openTestStore(t)

	s.SavePunches(Scope{UserID: "u1"}, []domain.Punch{somePunch("a")})
	s.SavePunches(Scope{Guest: true}, []domain.Punch{somePunch("g")})

	assert.Len(t, s.LoadPunches(Scope{UserID: "u1"}), 1)
	require.Len(t, s.LoadPunches(Scope{Guest: true}), 1)
	assert.Equal(t, "g", s.LoadPunches(Scope{Guest: true})[0].ID)
	assert.Empty(t, s.LoadPunches(Scope{UserID: "u2"}))
}

func TestScopeID(t *testing.T) {
	assert.Equal(t, "guest", Scope{Guest: true}.ID())
	assert.Equal(t, "user_u1", Scope{UserID: "u1"}.ID())
	assert.Equal(t, "anonymous", Scope{}.ID())
	// Hostile ids cannot break the key layout.
	assert.Equal(t, "user_a.b%2Fc", Scope{UserID: "a.b/c"}.ID())
}

func TestMalformedPayloadReadsAsEmpty(t *testing.T) {
	s, path := openTestStore(t)
	scope := Scope{UserID: "u1"}
	s.SavePunches(scope, []domain.Punch{somePunch("a")})
	require.NoError(t, s.Close())

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`UPDATE kv SET value = '{broken' WHERE key = ?`, scopedKey(KindPunches, scope))
	require.NoError(t, err)
	require.NoError(t, db.Close())

	reopened := Open(path, nil)
	defer reopened.Close()
	assert.Empty(t, reopened.LoadPunches(scope))
	// Settings fall back to defaults rather than nothing.
	assert.Equal(t, domain.DefaultSettings().ThemeID, reopened.LoadSettings(scope).ThemeID)
}

func TestLegacyMigration(t *testing.T) {
	s, path := openTestStore(t)
	raw := `[{"id":"legacy","at":"2026-03-02T09:00:00Z","kind":"CLOCK_IN"}]`
	require.NoError(t, s.Close())

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO kv (key, value) VALUES (?, ?)`, legacyKey(KindPunches), raw)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	reopened := Open(path, nil)
	defer reopened.Close()

	punches := reopened.LoadPunches(Scope{UserID: "u1"})
	require.Len(t, punches, 1)
	assert.Equal(t, "legacy", punches[0].ID)
}

func TestLegacyMigrationSkippedWhenAnotherUserClaimedIt(t *testing.T) {
	s, path := openTestStore(t)
	s.SavePunches(Scope{UserID: "first"}, []domain.Punch{somePunch("owned")})
	require.NoError(t, s.Close())

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO kv (key, value) VALUES (?, ?)`,
		legacyKey(KindPunches), `[{"id":"legacy","at":"2026-03-02T09:00:00Z","kind":"CLOCK_IN"}]`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	reopened := Open(path, nil)
	defer reopened.Close()

	assert.Empty(t, reopened.LoadPunches(Scope{UserID: "second"}))
	// The guest scope still migrates; the guard only protects user namespaces.
	assert.Len(t, reopened.LoadPunches(Scope{Guest: true}), 1)
}

func TestLegacyMigrationDoesNotOverwriteScopedData(t *testing.T) {
	s, path := openTestStore(t)
	s.SavePunches(Scope{Guest: true}, []domain.Punch{somePunch("scoped")})
	require.NoError(t, s.Close())

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO kv (key, value) VALUES (?, ?)`,
		legacyKey(KindPunches), `[{"id":"legacy","at":"2026-03-02T09:00:00Z","kind":"CLOCK_IN"}]`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	reopened := Open(path, nil)
	defer reopened.Close()

	punches := reopened.LoadPunches(Scope{Guest: true})
	require.Len(t, punches, 1)
	assert.Equal(t, "scoped", punches[0].ID)
}

func TestSettingsRoundTripNormalizes(t *testing.T) {
	s, _ := openTestStore(t)
	scope := Scope{Guest: true}

	in := domain.Settings{DailyTargets: domain.DailyTargets{Mon: -10, Tue: 480}}
	s.SaveSettings(scope, in)

	out := s.LoadSettings(scope)
	assert.Zero(t, out.DailyTargets.Mon)
	assert.Equal(t, 480, out.WeeklyTargetMinutes)
}

func TestPendingOpsRoundTrip(t *testing.T) {
	s, _ := openTestStore(t)
	scope := Scope{UserID: "u1"}
	p := somePunch("a")

	s.SavePendingOps(scope, []domain.PendingOp{
		{UserID: "u1", Type: domain.OpInsert, Punch: &p},
		{UserID: "u1", Type: domain.OpDelete, ID: "gone"},
	})

	ops := s.LoadPendingOps(scope)
	require.Len(t, ops, 2)
	assert.Equal(t, "a", ops[0].TargetID())
	assert.Equal(t, "gone", ops[1].TargetID())
}
