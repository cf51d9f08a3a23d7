package sync

import (
	"context"
	"errors"
	"path/filepath"
	stdsync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timebank-backend/internal/balance"
	"timebank-backend/internal/domain"
	"timebank-backend/internal/store"
)

var errRemoteDown = errors.New("remote down")

// fakeRemote is an in-memory RemoteStore. Set failing to make every call
// error, as a dropped connection would.
type fakeRemote struct {
	mu          stdsync.Mutex
	punches     map[string]domain.Punch
	adjustments map[string]domain.Adjustment
	settings    *domain.SettingsRecord
	failing     bool
	punchWrites int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		punches:     make(map[string]domain.Punch),
		adjustments: make(map[string]domain.Adjustment),
	}
}

func (f *fakeRemote) fail() error {
	if f.failing {
		return errRemoteDown
	}
	return nil
}

func (f *fakeRemote) SelectPunches(ctx context.Context, userID string) ([]domain.Punch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return nil, err
	}
	out := make([]domain.Punch, 0, len(f.punches))
	for _, p := range f.punches {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeRemote) InsertPunch(ctx context.Context, userID string, p domain.Punch) error {
	return f.UpsertPunch(ctx, userID, p)
}

func (f *fakeRemote) InsertPunches(ctx context.Context, userID string, punches []domain.Punch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return err
	}
	for _, p := range punches {
		f.punches[p.ID] = p
		f.punchWrites++
	}
	return nil
}

func (f *fakeRemote) UpdatePunch(ctx context.Context, userID string, p domain.Punch) error {
	return f.UpsertPunch(ctx, userID, p)
}

func (f *fakeRemote) UpsertPunch(ctx context.Context, userID string, p domain.Punch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return err
	}
	f.punches[p.ID] = p
	f.punchWrites++
	return nil
}

func (f *fakeRemote) DeletePunch(ctx context.Context, userID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return err
	}
	delete(f.punches, id)
	return nil
}

func (f *fakeRemote) SelectAdjustments(ctx context.Context, userID string) ([]domain.Adjustment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return nil, err
	}
	out := make([]domain.Adjustment, 0, len(f.adjustments))
	for _, a := range f.adjustments {
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeRemote) InsertAdjustment(ctx context.Context, userID string, a domain.Adjustment) error {
	return f.UpsertAdjustment(ctx, userID, a)
}

func (f *fakeRemote) UpdateAdjustment(ctx context.Context, userID string, a domain.Adjustment) error {
	return f.UpsertAdjustment(ctx, userID, a)
}

func (f *fakeRemote) UpsertAdjustment(ctx context.Context, userID string, a domain.Adjustment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return err
	}
	f.adjustments[a.ID] = a
	return nil
}

func (f *fakeRemote) DeleteAdjustment(ctx context.Context, userID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return err
	}
	delete(f.adjustments, id)
	return nil
}

func (f *fakeRemote) GetSettings(ctx context.Context, userID string) (*domain.SettingsRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return nil, err
	}
	if f.settings == nil {
		return nil, nil
	}
	rec := *f.settings
	return &rec, nil
}

func (f *fakeRemote) UpsertSettings(ctx context.Context, userID string, s domain.Settings, updatedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return err
	}
	f.settings = &domain.SettingsRecord{Settings: s, UpdatedAt: updatedAt}
	return nil
}

func (f *fakeRemote) punchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.punches)
}

func (f *fakeRemote) setFailing(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing = v
}

var testNow = time.Date(2026, 3, 5, 10, 0, 0, 0, time.Local)

func newTestEngine(t *testing.T, remote RemoteStore) (*Engine, *store.Store) {
	t.Helper()
	local := store.Open(filepath.Join(t.TempDir(), "timebank.db"), nil)
	t.Cleanup(func() { _ = local.Close() })
	e := NewEngine(store.Scope{UserID: "u1"}, local, remote, balance.Engine{}, 0, nil)
	e.Now = func() time.Time { return testNow }
	return e, local
}

func testPunch(id string, offset time.Duration) domain.Punch {
	return domain.Punch{ID: id, At: testNow.Add(offset), Kind: domain.PunchClockIn}
}

func TestOfflineQueueFlushesOnReconnect(t *testing.T) {
	remote := newFakeRemote()
	e, _ := newTestEngine(t, remote)
	ctx := context.Background()

	require.NoError(t, e.SetOnline(ctx, false))
	e.AddPunch(ctx, testPunch("a", 0))
	e.AddPunch(ctx, testPunch("b", time.Minute))
	e.AddPunch(ctx, testPunch("c", 2*time.Minute))

	assert.Equal(t, 3, e.PendingCount())
	assert.Zero(t, remote.punchCount())

	require.NoError(t, e.SetOnline(ctx, true))
	assert.Equal(t, 3, remote.punchCount())
	assert.Zero(t, e.PendingCount())
	assert.Equal(t, StatusSuccess, e.Status())
}

func TestFailedWriteQueuesThenDelivers(t *testing.T) {
	remote := newFakeRemote()
	e, _ := newTestEngine(t, remote)
	ctx := context.Background()

	remote.setFailing(true)
	e.AddPunch(ctx, testPunch("a", 0))
	assert.Equal(t, 1, e.PendingCount())

	remote.setFailing(false)
	require.NoError(t, e.Sync(ctx))
	assert.Equal(t, 1, remote.punchCount())
	assert.Zero(t, e.PendingCount())

	// A second pass must not duplicate anything.
	require.NoError(t, e.Sync(ctx))
	assert.Equal(t, 1, remote.punchCount())
}

func TestFlushKeepsFailedOps(t *testing.T) {
	remote := newFakeRemote()
	e, _ := newTestEngine(t, remote)
	ctx := context.Background()

	require.NoError(t, e.SetOnline(ctx, false))
	e.AddPunch(ctx, testPunch("a", 0))
	e.online.Store(true)

	remote.setFailing(true)
	require.Error(t, e.Flush(ctx))
	assert.Equal(t, 1, e.PendingCount())

	remote.setFailing(false)
	require.NoError(t, e.Flush(ctx))
	assert.Zero(t, e.PendingCount())
}

func TestSyncPushesLocalRowsRemoteNeverSaw(t *testing.T) {
	remote := newFakeRemote()
	remote.punches["remote-1"] = testPunch("remote-1", -time.Hour)

	local := store.Open(filepath.Join(t.TempDir(), "timebank.db"), nil)
	defer local.Close()
	scope := store.Scope{UserID: "u1"}
	local.SavePunches(scope, []domain.Punch{testPunch("local-1", -2*time.Hour)})

	e := NewEngine(scope, local, remote, balance.Engine{}, 0, nil)
	e.Now = func() time.Time { return testNow }

	require.NoError(t, e.Sync(context.Background()))

	assert.Equal(t, 2, remote.punchCount())
	punches := e.Punches()
	require.Len(t, punches, 2)
	assert.Len(t, local.LoadPunches(scope), 2)
}

func TestSyncDoesNotResurrectPendingDelete(t *testing.T) {
	remote := newFakeRemote()
	remote.punches["x"] = testPunch("x", -time.Hour)

	local := store.Open(filepath.Join(t.TempDir(), "timebank.db"), nil)
	defer local.Close()
	scope := store.Scope{UserID: "u1"}
	local.SavePunches(scope, []domain.Punch{testPunch("x", -time.Hour)})

	e := NewEngine(scope, local, remote, balance.Engine{}, 0, nil)
	e.Now = func() time.Time { return testNow }
	ctx := context.Background()

	require.NoError(t, e.SetOnline(ctx, false))
	e.DeletePunch(ctx, "x")
	require.NoError(t, e.SetOnline(ctx, true))

	assert.Zero(t, remote.punchCount())
	assert.Empty(t, e.Punches())
	assert.Zero(t, e.PendingCount())
}

func TestSyncAdjustmentQueue(t *testing.T) {
	remote := newFakeRemote()
	e, _ := newTestEngine(t, remote)
	ctx := context.Background()

	require.NoError(t, e.SetOnline(ctx, false))
	e.AddAdjustment(ctx, domain.Adjustment{
		ID: "adj-1", At: testNow, Kind: domain.AdjustmentCredit, Minutes: 30,
	})
	assert.Equal(t, 1, e.PendingCount())

	require.NoError(t, e.SetOnline(ctx, true))
	assert.Zero(t, e.PendingCount())
	remote.mu.Lock()
	assert.Len(t, remote.adjustments, 1)
	remote.mu.Unlock()
}

func TestSettingsNewerRemoteWins(t *testing.T) {
	remote := newFakeRemote()
	e, _ := newTestEngine(t, remote)
	ctx := context.Background()

	e.UpdateSettings(ctx, domain.Settings{ThemeID: "obsidian"})

	remoteSettings := domain.NormalizeSettings(domain.Settings{ThemeID: "paper"})
	remote.settings = &domain.SettingsRecord{
		Settings:  remoteSettings,
		UpdatedAt: testNow.Add(time.Hour).UTC(),
	}

	require.NoError(t, e.Sync(ctx))
	assert.Equal(t, "paper", e.Settings().ThemeID)
}

func TestSettingsNewerLocalWinsAndPushes(t *testing.T) {
	remote := newFakeRemote()
	remoteSettings := domain.NormalizeSettings(domain.Settings{ThemeID: "paper"})
	remote.settings = &domain.SettingsRecord{
		Settings:  remoteSettings,
		UpdatedAt: testNow.Add(-time.Hour).UTC(),
	}

	e, _ := newTestEngine(t, remote)
	ctx := context.Background()
	e.UpdateSettings(ctx, domain.Settings{ThemeID: "obsidian"})

	require.NoError(t, e.Sync(ctx))
	assert.Equal(t, "obsidian", e.Settings().ThemeID)

	remote.mu.Lock()
	pushed := remote.settings.Settings.ThemeID
	remote.mu.Unlock()
	assert.Equal(t, "obsidian", pushed)
}

func TestGuestScopeNeverQueues(t *testing.T) {
	local := store.Open(filepath.Join(t.TempDir(), "timebank.db"), nil)
	defer local.Close()
	e := NewEngine(store.Scope{Guest: true}, local, nil, balance.Engine{}, 0, nil)
	e.Now = func() time.Time { return testNow }
	ctx := context.Background()

	require.NoError(t, e.SetOnline(ctx, false))
	e.AddPunch(ctx, testPunch("a", 0))

	assert.Zero(t, e.PendingCount())
	assert.Len(t, e.Punches(), 1)
	require.NoError(t, e.Sync(ctx))
	assert.Equal(t, StatusIdle, e.Status())
}

func TestSyncErrorSurfacesAndSetsStatus(t *testing.T) {
	remote := newFakeRemote()
	e, _ := newTestEngine(t, remote)
	remote.setFailing(true)

	err := e.Sync(context.Background())
	require.Error(t, err)
	assert.Equal(t, StatusError, e.Status())
}

func TestCompactionRunsAfterSuccessfulSync(t *testing.T) {
	remote := newFakeRemote()
	local := store.Open(filepath.Join(t.TempDir(), "timebank.db"), nil)
	defer local.Close()
	scope := store.Scope{UserID: "u1"}

	old := domain.Punch{
		ID:   "old",
		At:   testNow.AddDate(0, 0, -10),
		Kind: domain.PunchClockIn,
	}
	local.SavePunches(scope, []domain.Punch{old})

	e := NewEngine(scope, local, remote, balance.Engine{}, 5, nil)
	e.Now = func() time.Time { return testNow }

	require.NoError(t, e.Sync(context.Background()))

	settings := e.Settings()
	require.NotNil(t, settings.Checkpoint)
	assert.Empty(t, e.Punches())
	// The folded checkpoint travels to the remote store too.
	remote.mu.Lock()
	require.NotNil(t, remote.settings)
	assert.NotNil(t, remote.settings.Settings.Checkpoint)
	remote.mu.Unlock()
}

func TestEngineStatePersistsAcrossRestart(t *testing.T) {
	remote := newFakeRemote()
	local := store.Open(filepath.Join(t.TempDir(), "timebank.db"), nil)
	defer local.Close()
	scope := store.Scope{UserID: "u1"}

	e := NewEngine(scope, local, remote, balance.Engine{}, 0, nil)
	e.Now = func() time.Time { return testNow }
	ctx := context.Background()
	require.NoError(t, e.SetOnline(ctx, false))
	e.AddPunch(ctx, testPunch("a", 0))

	restarted := NewEngine(scope, local, remote, balance.Engine{}, 0, nil)
	restarted.Now = func() time.Time { return testNow }
	assert.Len(t, restarted.Punches(), 1)
	assert.Equal(t, 1, restarted.PendingCount())

	require.NoError(t, restarted.Sync(ctx))
	assert.Equal(t, 1, remote.punchCount())
	assert.Zero(t, restarted.PendingCount())
}
