// Package sync reconciles the local store with the remote store. Local writes
// are optimistic: state mutates and persists locally first, the remote write
// follows, and a failed or offline write lands in a pending queue that a later
// flush replays. Replays are safe because remote writes are upserts keyed by
// (user, id).
package sync

import (
	"context"
	"errors"
	"log/slog"
	stdsync "sync"
	"sync/atomic"
	"time"

	"timebank-backend/internal/balance"
	"timebank-backend/internal/compact"
	"timebank-backend/internal/dates"
	"timebank-backend/internal/domain"
	"timebank-backend/internal/store"
)

// Engine owns the working state of one identity scope. All exported methods
// are safe for concurrent use; a single reconciliation pass runs at a time and
// overlapping triggers collapse into a no-op.
type Engine struct {
	scope         store.Scope
	local         *store.Store
	remote        RemoteStore // nil for guest / local-only scopes
	logger        *slog.Logger
	balance       balance.Engine
	retentionDays int

	// Now is the clock used for update stamps and the today rule. Tests
	// substitute it.
	Now func() time.Time

	mu          stdsync.Mutex
	punches     []domain.Punch
	adjustments []domain.Adjustment
	settings    domain.Settings
	pending     []domain.PendingOp
	pendingAdj  []domain.PendingAdjustmentOp

	online  atomic.Bool
	syncing atomic.Bool
	status  atomic.Int32
}

// NewEngine loads the scope's state from the local store. Pass a nil remote
// for scopes that never sync.
func NewEngine(scope store.Scope, local *store.Store, remote RemoteStore, bal balance.Engine, retentionDays int, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		scope:         scope,
		local:         local,
		remote:        remote,
		logger:        logger.With("scope", scope.ID()),
		balance:       bal,
		retentionDays: retentionDays,
		Now:           time.Now,
		punches:       local.LoadPunches(scope),
		adjustments:   local.LoadAdjustments(scope),
		settings:      local.LoadSettings(scope),
		pending:       local.LoadPendingOps(scope),
		pendingAdj:    local.LoadPendingAdjustmentOps(scope),
	}
	e.online.Store(true)
	return e
}

// Scope returns the identity scope the engine serves.
func (e *Engine) Scope() store.Scope { return e.scope }

// Balance returns the calculation engine sharing this scope's holiday calendar.
func (e *Engine) Balance() balance.Engine { return e.balance }

// Status returns the transient sync status.
func (e *Engine) Status() Status { return Status(e.status.Load()) }

// Online reports the connectivity flag consulted before remote calls.
func (e *Engine) Online() bool { return e.online.Load() }

// Punches returns a copy sorted newest first.
func (e *Engine) Punches() []domain.Punch {
	e.mu.Lock()
	defer e.mu.Unlock()
	return domain.SortPunchesDesc(e.punches)
}

// Adjustments returns a copy sorted newest first.
func (e *Engine) Adjustments() []domain.Adjustment {
	e.mu.Lock()
	defer e.mu.Unlock()
	return domain.SortAdjustmentsDesc(e.adjustments)
}

// Settings returns the current settings.
func (e *Engine) Settings() domain.Settings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings
}

// PendingCount is the number of queued mutations awaiting delivery.
func (e *Engine) PendingCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending) + len(e.pendingAdj)
}

// canReachRemote reports whether a remote call should even be attempted.
func (e *Engine) canReachRemote() bool {
	return e.remote != nil && e.online.Load()
}

func (e *Engine) queueOp(op domain.PendingOp) {
	e.pending = append(e.pending, op)
	e.local.SavePendingOps(e.scope, e.pending)
	opsQueued.Inc()
}

func (e *Engine) queueAdjOp(op domain.PendingAdjustmentOp) {
	e.pendingAdj = append(e.pendingAdj, op)
	e.local.SavePendingAdjustmentOps(e.scope, e.pendingAdj)
	opsQueued.Inc()
}

// AddPunch applies the punch locally and attempts immediate remote delivery;
// failure or offline queues an insert.
func (e *Engine) AddPunch(ctx context.Context, p domain.Punch) {
	e.mu.Lock()
	e.punches = domain.SortPunchesDesc(append(e.punches, p))
	e.local.SavePunches(e.scope, e.punches)

	if e.remote == nil {
		e.mu.Unlock()
		return
	}
	if !e.online.Load() {
		e.queueOp(domain.PendingOp{UserID: e.scope.UserID, Type: domain.OpInsert, Punch: &p})
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()

	if err := e.remote.InsertPunch(ctx, e.scope.UserID, p); err != nil {
		e.logger.Warn("punch insert failed, queueing", "id", p.ID, "err", err)
		e.mu.Lock()
		e.queueOp(domain.PendingOp{UserID: e.scope.UserID, Type: domain.OpInsert, Punch: &p})
		e.mu.Unlock()
	}
}

// UpdatePunch replaces the punch locally and mirrors the change remotely,
// queueing an update on failure.
func (e *Engine) UpdatePunch(ctx context.Context, p domain.Punch) {
	e.mu.Lock()
	for i := range e.punches {
		if e.punches[i].ID == p.ID {
			e.punches[i] = p
			break
		}
	}
	e.punches = domain.SortPunchesDesc(e.punches)
	e.local.SavePunches(e.scope, e.punches)

	if e.remote == nil {
		e.mu.Unlock()
		return
	}
	if !e.online.Load() {
		e.queueOp(domain.PendingOp{UserID: e.scope.UserID, Type: domain.OpUpdate, Punch: &p})
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()

	if err := e.remote.UpdatePunch(ctx, e.scope.UserID, p); err != nil {
		e.logger.Warn("punch update failed, queueing", "id", p.ID, "err", err)
		e.mu.Lock()
		e.queueOp(domain.PendingOp{UserID: e.scope.UserID, Type: domain.OpUpdate, Punch: &p})
		e.mu.Unlock()
	}
}

// DeletePunch removes the punch locally and remotely, queueing a delete on
// failure.
func (e *Engine) DeletePunch(ctx context.Context, id string) {
	e.mu.Lock()
	kept := e.punches[:0]
	for _, p := range e.punches {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	e.punches = kept
	e.local.SavePunches(e.scope, e.punches)

	if e.remote == nil {
		e.mu.Unlock()
		return
	}
	if !e.online.Load() {
		e.queueOp(domain.PendingOp{UserID: e.scope.UserID, Type: domain.OpDelete, ID: id})
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()

	if err := e.remote.DeletePunch(ctx, e.scope.UserID, id); err != nil {
		e.logger.Warn("punch delete failed, queueing", "id", id, "err", err)
		e.mu.Lock()
		e.queueOp(domain.PendingOp{UserID: e.scope.UserID, Type: domain.OpDelete, ID: id})
		e.mu.Unlock()
	}
}

// ReplaceDayPunches swaps one day's punches for an edited set, dispatching
// only the rows that actually changed.
func (e *Engine) ReplaceDayPunches(ctx context.Context, dateKey string, next []domain.Punch) {
	current := balance.DayPunches(e.Punches(), dateKey)
	diff := domain.DiffPunches(current, next)
	for _, p := range diff.ToAdd {
		e.AddPunch(ctx, p)
	}
	for _, p := range diff.ToUpdate {
		e.UpdatePunch(ctx, p)
	}
	for _, id := range diff.ToDelete {
		e.DeletePunch(ctx, id)
	}
}

// AddAdjustment mirrors AddPunch for adjustments.
func (e *Engine) AddAdjustment(ctx context.Context, a domain.Adjustment) {
	e.mu.Lock()
	e.adjustments = domain.SortAdjustmentsDesc(append(e.adjustments, a))
	e.local.SaveAdjustments(e.scope, e.adjustments)

	if e.remote == nil {
		e.mu.Unlock()
		return
	}
	if !e.online.Load() {
		e.queueAdjOp(domain.PendingAdjustmentOp{UserID: e.scope.UserID, Type: domain.OpInsert, Adjustment: &a})
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()

	if err := e.remote.InsertAdjustment(ctx, e.scope.UserID, a); err != nil {
		e.logger.Warn("adjustment insert failed, queueing", "id", a.ID, "err", err)
		e.mu.Lock()
		e.queueAdjOp(domain.PendingAdjustmentOp{UserID: e.scope.UserID, Type: domain.OpInsert, Adjustment: &a})
		e.mu.Unlock()
	}
}

// UpdateAdjustment mirrors UpdatePunch for adjustments.
func (e *Engine) UpdateAdjustment(ctx context.Context, a domain.Adjustment) {
	e.mu.Lock()
	for i := range e.adjustments {
		if e.adjustments[i].ID == a.ID {
			e.adjustments[i] = a
			break
		}
	}
	e.adjustments = domain.SortAdjustmentsDesc(e.adjustments)
	e.local.SaveAdjustments(e.scope, e.adjustments)

	if e.remote == nil {
		e.mu.Unlock()
		return
	}
	if !e.online.Load() {
		e.queueAdjOp(domain.PendingAdjustmentOp{UserID: e.scope.UserID, Type: domain.OpUpdate, Adjustment: &a})
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()

	if err := e.remote.UpdateAdjustment(ctx, e.scope.UserID, a); err != nil {
		e.logger.Warn("adjustment update failed, queueing", "id", a.ID, "err", err)
		e.mu.Lock()
		e.queueAdjOp(domain.PendingAdjustmentOp{UserID: e.scope.UserID, Type: domain.OpUpdate, Adjustment: &a})
		e.mu.Unlock()
	}
}

// DeleteAdjustment mirrors DeletePunch for adjustments.
func (e *Engine) DeleteAdjustment(ctx context.Context, id string) {
	e.mu.Lock()
	kept := e.adjustments[:0]
	for _, a := range e.adjustments {
		if a.ID != id {
			kept = append(kept, a)
		}
	}
	e.adjustments = kept
	e.local.SaveAdjustments(e.scope, e.adjustments)

	if e.remote == nil {
		e.mu.Unlock()
		return
	}
	if !e.online.Load() {
		e.queueAdjOp(domain.PendingAdjustmentOp{UserID: e.scope.UserID, Type: domain.OpDelete, ID: id})
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()

	if err := e.remote.DeleteAdjustment(ctx, e.scope.UserID, id); err != nil {
		e.logger.Warn("adjustment delete failed, queueing", "id", id, "err", err)
		e.mu.Lock()
		e.queueAdjOp(domain.PendingAdjustmentOp{UserID: e.scope.UserID, Type: domain.OpDelete, ID: id})
		e.mu.Unlock()
	}
}

// UpdateSettings stamps the settings with a fresh UpdatedAt, persists them
// locally, and pushes them remotely best-effort. Settings have no pending
// queue; reconciliation resolves any missed push by timestamp.
func (e *Engine) UpdateSettings(ctx context.Context, s domain.Settings) domain.Settings {
	now := e.Now().UTC()
	s = domain.NormalizeSettings(s)
	s.UpdatedAt = now.Format(time.RFC3339Nano)

	e.mu.Lock()
	e.settings = s
	e.local.SaveSettings(e.scope, s)
	e.mu.Unlock()

	if e.canReachRemote() {
		if err := e.remote.UpsertSettings(ctx, e.scope.UserID, s, now); err != nil {
			e.logger.Warn("settings push failed", "err", err)
		}
	}
	return s
}

// RestoreSnapshot replaces the scope's whole working set, as a validated
// backup import does. Pending queues are cleared: the snapshot supersedes any
// in-flight mutation, and the next reconciliation pushes the restored rows.
func (e *Engine) RestoreSnapshot(ctx context.Context, punches []domain.Punch, adjustments []domain.Adjustment, settings domain.Settings) {
	now := e.Now().UTC()
	settings = domain.NormalizeSettings(settings)
	settings.UpdatedAt = now.Format(time.RFC3339Nano)

	e.mu.Lock()
	e.punches = domain.SortPunchesDesc(punches)
	e.adjustments = domain.SortAdjustmentsDesc(adjustments)
	e.settings = settings
	e.pending = nil
	e.pendingAdj = nil
	e.local.SavePunches(e.scope, e.punches)
	e.local.SaveAdjustments(e.scope, e.adjustments)
	e.local.SaveSettings(e.scope, settings)
	e.local.SavePendingOps(e.scope, nil)
	e.local.SavePendingAdjustmentOps(e.scope, nil)
	e.mu.Unlock()

	if e.canReachRemote() {
		if err := e.remote.UpsertSettings(ctx, e.scope.UserID, settings, now); err != nil {
			e.logger.Warn("settings push failed", "err", err)
		}
	}
}

// SetOnline flips the connectivity flag. A transition to online triggers a
// reconciliation pass.
func (e *Engine) SetOnline(ctx context.Context, online bool) error {
	was := e.online.Swap(online)
	if online && !was && e.remote != nil {
		return e.Sync(ctx)
	}
	return nil
}

// Flush replays the pending queues in order. Operations that still fail stay
// queued in their original relative order; successes are dropped. Replay is
// idempotent because delivery uses upserts.
func (e *Engine) Flush(ctx context.Context) error {
	if !e.canReachRemote() {
		return nil
	}

	e.mu.Lock()
	ops := append([]domain.PendingOp(nil), e.pending...)
	adjOps := append([]domain.PendingAdjustmentOp(nil), e.pendingAdj...)
	e.mu.Unlock()

	var firstErr error

	var remaining []domain.PendingOp
	for _, op := range ops {
		if op.UserID != e.scope.UserID {
			remaining = append(remaining, op)
			continue
		}
		var err error
		switch op.Type {
		case domain.OpDelete:
			err = e.remote.DeletePunch(ctx, e.scope.UserID, op.TargetID())
		default:
			err = e.remote.UpsertPunch(ctx, e.scope.UserID, *op.Punch)
		}
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			remaining = append(remaining, op)
			continue
		}
		opsFlushed.Inc()
	}

	var remainingAdj []domain.PendingAdjustmentOp
	for _, op := range adjOps {
		if op.UserID != e.scope.UserID {
			remainingAdj = append(remainingAdj, op)
			continue
		}
		var err error
		switch op.Type {
		case domain.OpDelete:
			err = e.remote.DeleteAdjustment(ctx, e.scope.UserID, op.TargetID())
		default:
			err = e.remote.UpsertAdjustment(ctx, e.scope.UserID, *op.Adjustment)
		}
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			remainingAdj = append(remainingAdj, op)
			continue
		}
		opsFlushed.Inc()
	}

	e.mu.Lock()
	e.pending = remaining
	e.pendingAdj = remainingAdj
	e.local.SavePendingOps(e.scope, e.pending)
	e.local.SavePendingAdjustmentOps(e.scope, e.pendingAdj)
	e.mu.Unlock()

	return firstErr
}

// Sync runs the full reconciliation pass: flush the queues, fetch the remote
// snapshot, push local rows the remote has never seen, merge with remote
// authoritative except for in-flight local edits, and resolve the settings
// conflict by last writer wins (whole document, not field-merged; a concurrent
// edit on the losing side is dropped). Partial failures do not roll back
// progress already merged.
func (e *Engine) Sync(ctx context.Context) error {
	if e.remote == nil || !e.online.Load() {
		return nil
	}
	if !e.syncing.CompareAndSwap(false, true) {
		// A pass is already running; overlapping triggers are a no-op.
		return nil
	}
	defer e.syncing.Store(false)

	e.status.Store(int32(StatusSyncing))

	var errs []error
	if err := e.Flush(ctx); err != nil {
		e.logger.Warn("pending flush incomplete", "err", err)
		errs = append(errs, err)
	}

	e.mu.Lock()
	pendingInsertIDs := make(map[string]struct{})
	preferLocalIDs := make(map[string]struct{})
	pendingDeleteIDs := make(map[string]struct{})
	for _, op := range e.pending {
		switch op.Type {
		case domain.OpInsert:
			pendingInsertIDs[op.TargetID()] = struct{}{}
			preferLocalIDs[op.TargetID()] = struct{}{}
		case domain.OpUpdate:
			preferLocalIDs[op.TargetID()] = struct{}{}
		case domain.OpDelete:
			pendingDeleteIDs[op.TargetID()] = struct{}{}
		}
	}
	preferLocalAdjIDs := make(map[string]struct{})
	pendingDeleteAdjIDs := make(map[string]struct{})
	for _, op := range e.pendingAdj {
		if op.Type == domain.OpDelete {
			pendingDeleteAdjIDs[op.TargetID()] = struct{}{}
		} else {
			preferLocalAdjIDs[op.TargetID()] = struct{}{}
		}
	}
	e.mu.Unlock()

	var (
		wg               stdsync.WaitGroup
		remotePunches    []domain.Punch
		remoteAdjs       []domain.Adjustment
		remoteSettings   *domain.SettingsRecord
		punchErr, adjErr, settingsErr error
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		remotePunches, punchErr = e.remote.SelectPunches(ctx, e.scope.UserID)
	}()
	go func() {
		defer wg.Done()
		remoteAdjs, adjErr = e.remote.SelectAdjustments(ctx, e.scope.UserID)
	}()
	go func() {
		defer wg.Done()
		remoteSettings, settingsErr = e.remote.GetSettings(ctx, e.scope.UserID)
	}()
	wg.Wait()

	if punchErr != nil {
		e.logger.Error("fetch remote punches failed", "err", punchErr)
		errs = append(errs, punchErr)
	}
	if adjErr != nil {
		e.logger.Error("fetch remote adjustments failed", "err", adjErr)
		errs = append(errs, adjErr)
	}
	if settingsErr != nil {
		e.logger.Error("fetch remote settings failed", "err", settingsErr)
		errs = append(errs, settingsErr)
	}

	// Push local punches the remote has never seen and no queue entry covers:
	// rows created fully offline before queueing, or recovered after a crash.
	remoteByID := make(map[string]domain.Punch, len(remotePunches))
	for _, p := range remotePunches {
		remoteByID[p.ID] = p
	}
	e.mu.Lock()
	localPunches := append([]domain.Punch(nil), e.punches...)
	e.mu.Unlock()

	var neverSent []domain.Punch
	for _, p := range localPunches {
		if _, onRemote := remoteByID[p.ID]; onRemote {
			continue
		}
		if _, queued := pendingInsertIDs[p.ID]; queued {
			continue
		}
		neverSent = append(neverSent, p)
	}
	if len(neverSent) > 0 {
		if err := e.remote.InsertPunches(ctx, e.scope.UserID, neverSent); err != nil {
			e.logger.Error("push of unsent local punches failed", "count", len(neverSent), "err", err)
			errs = append(errs, err)
		}
	}

	// Merge: remote is authoritative except for ids with an unconfirmed local
	// change in flight.
	merged := make(map[string]domain.Punch, len(remotePunches)+len(localPunches))
	for _, p := range remotePunches {
		if _, deleted := pendingDeleteIDs[p.ID]; deleted {
			continue
		}
		if _, local := preferLocalIDs[p.ID]; local {
			continue
		}
		merged[p.ID] = p
	}
	for _, p := range localPunches {
		_, local := preferLocalIDs[p.ID]
		if _, exists := merged[p.ID]; local || !exists {
			merged[p.ID] = p
		}
	}
	mergedList := make([]domain.Punch, 0, len(merged))
	for _, p := range merged {
		mergedList = append(mergedList, p)
	}
	mergedList = domain.SortPunchesDesc(mergedList)

	e.mu.Lock()
	e.punches = mergedList
	e.local.SavePunches(e.scope, mergedList)
	localAdjs := append([]domain.Adjustment(nil), e.adjustments...)
	e.mu.Unlock()

	if adjErr == nil {
		mergedAdj := make(map[string]domain.Adjustment, len(remoteAdjs)+len(localAdjs))
		for _, a := range remoteAdjs {
			if _, deleted := pendingDeleteAdjIDs[a.ID]; deleted {
				continue
			}
			if _, local := preferLocalAdjIDs[a.ID]; local {
				continue
			}
			mergedAdj[a.ID] = a
		}
		for _, a := range localAdjs {
			_, local := preferLocalAdjIDs[a.ID]
			if _, exists := mergedAdj[a.ID]; local || !exists {
				mergedAdj[a.ID] = a
			}
		}
		mergedAdjList := make([]domain.Adjustment, 0, len(mergedAdj))
		for _, a := range mergedAdj {
			mergedAdjList = append(mergedAdjList, a)
		}
		mergedAdjList = domain.SortAdjustmentsDesc(mergedAdjList)

		e.mu.Lock()
		e.adjustments = mergedAdjList
		e.local.SaveAdjustments(e.scope, mergedAdjList)
		e.mu.Unlock()
	}

	e.reconcileSettings(ctx, remoteSettings, &errs)

	if len(errs) > 0 {
		e.status.Store(int32(StatusError))
		syncTotal.WithLabelValues("error").Inc()
		return errors.Join(errs...)
	}

	e.status.Store(int32(StatusSuccess))
	syncTotal.WithLabelValues("success").Inc()

	e.CompactHistory(ctx)
	return nil
}

// reconcileSettings applies last-writer-wins between the local and remote
// settings documents. When local wins (or remote has none), the local copy is
// pushed back immediately.
func (e *Engine) reconcileSettings(ctx context.Context, remote *domain.SettingsRecord, errs *[]error) {
	e.mu.Lock()
	local := domain.NormalizeSettings(e.settings)
	e.mu.Unlock()

	localTS := parseStamp(local.UpdatedAt)
	var remoteTS time.Time
	if remote != nil {
		remoteTS = remote.UpdatedAt
		if remoteTS.IsZero() {
			remoteTS = parseStamp(remote.Settings.UpdatedAt)
		}
	}

	if remote != nil && remoteTS.After(localTS) {
		winner := remote.Settings
		if winner.UpdatedAt == "" {
			winner.UpdatedAt = remoteTS.UTC().Format(time.RFC3339Nano)
		}
		e.mu.Lock()
		e.settings = winner
		e.local.SaveSettings(e.scope, winner)
		e.mu.Unlock()
		return
	}

	stamp := localTS
	if stamp.IsZero() {
		stamp = e.Now().UTC()
		local.UpdatedAt = stamp.Format(time.RFC3339Nano)
	}
	e.mu.Lock()
	e.settings = local
	e.local.SaveSettings(e.scope, local)
	e.mu.Unlock()

	if err := e.remote.UpsertSettings(ctx, e.scope.UserID, local, stamp); err != nil {
		e.logger.Error("settings upsert failed", "err", err)
		*errs = append(*errs, err)
	}
}

// CompactHistory folds records older than the retention window into the
// settings checkpoint. Returns whether anything changed.
func (e *Engine) CompactHistory(ctx context.Context) bool {
	e.mu.Lock()
	in := compact.Input{
		Punches:       e.punches,
		Adjustments:   e.adjustments,
		Settings:      e.settings,
		RetentionDays: e.retentionDays,
		Today:         dates.Key(e.Now()),
	}
	e.mu.Unlock()

	result := compact.Run(e.balance, in)
	if !result.Changed {
		return false
	}

	now := e.Now().UTC()
	next := result.Settings
	next.UpdatedAt = now.Format(time.RFC3339Nano)

	e.mu.Lock()
	e.punches = result.Punches
	e.adjustments = result.Adjustments
	e.settings = next
	e.local.SavePunches(e.scope, e.punches)
	e.local.SaveAdjustments(e.scope, e.adjustments)
	e.local.SaveSettings(e.scope, next)
	e.mu.Unlock()

	compactionRuns.Inc()
	e.logger.Info("history compacted", "checkpoint", next.Checkpoint.Date, "balance", next.Checkpoint.BalanceMinutes)

	if e.canReachRemote() {
		if err := e.remote.UpsertSettings(ctx, e.scope.UserID, next, now); err != nil {
			e.logger.Warn("checkpoint push failed", "err", err)
		}
	}
	return true
}

func parseStamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
