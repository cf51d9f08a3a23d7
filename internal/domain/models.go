package domain

import (
	"time"

	"github.com/google/uuid"
)

// Enumerations
const (
	PunchClockIn    PunchKind = "CLOCK_IN"
	PunchLunchStart PunchKind = "LUNCH_START"
	PunchLunchEnd   PunchKind = "LUNCH_END"
	PunchClockOut   PunchKind = "CLOCK_OUT"
	PunchOther      PunchKind = "OTHER"

	AdjustmentCredit       AdjustmentKind = "CREDIT"
	AdjustmentDebit        AdjustmentKind = "DEBIT"
	AdjustmentMedicalLeave AdjustmentKind = "MEDICAL_LEAVE"

	OpInsert OpType = "insert"
	OpUpdate OpType = "update"
	OpDelete OpType = "delete"

	RoleAdmin UserRole = "admin"
	RoleUser  UserRole = "user"
)

type PunchKind string
type AdjustmentKind string
type OpType string
type UserRole string

// Overtime policy carried over from the journey rules: at most two extra hours
// per day, with a warning raised twenty minutes before the cap.
const (
	OvertimeDailyCapMinutes   = 120
	OvertimeWarnBeforeMinutes = 20
	DefaultRetentionDays      = 120
)

// ValidPunchKind reports whether k is one of the recognized punch kinds.
func ValidPunchKind(k PunchKind) bool {
	switch k {
	case PunchClockIn, PunchLunchStart, PunchLunchEnd, PunchClockOut, PunchOther:
		return true
	}
	return false
}

// ValidAdjustmentKind reports whether k is one of the recognized adjustment kinds.
func ValidAdjustmentKind(k AdjustmentKind) bool {
	switch k {
	case AdjustmentCredit, AdjustmentDebit, AdjustmentMedicalLeave:
		return true
	}
	return false
}

// Punch is a single clock event. IDs are client-generated and stable across sync.
type Punch struct {
	ID   string    `json:"id"`
	At   time.Time `json:"at"`
	Kind PunchKind `json:"kind"`
	Note string    `json:"note,omitempty"`
}

// Adjustment is a manual time-bank correction independent of punches. At is the
// day the adjustment applies to, anchored at noon so a timezone shift cannot
// move it across a day boundary. Minutes is a non-negative magnitude; the sign
// is implied by Kind. Medical leave always carries zero minutes and instead
// marks the day as excused.
type Adjustment struct {
	ID            string         `json:"id"`
	At            time.Time      `json:"at"`
	Kind          AdjustmentKind `json:"kind"`
	Minutes       int            `json:"minutes"`
	Justification string         `json:"justification,omitempty"`
}

// SignedMinutes returns the balance contribution of the adjustment. Medical
// leave contributes nothing directly; its effect is the excused-absence
// exemption during the daily walk.
func (a Adjustment) SignedMinutes() int {
	switch a.Kind {
	case AdjustmentCredit:
		return a.Minutes
	case AdjustmentDebit:
		return -a.Minutes
	default:
		return 0
	}
}

// DailyTargets holds required minutes per weekday. Saturday and Sunday only
// take effect when Settings.WeekendEnabled is set.
type DailyTargets struct {
	Mon int `json:"mon"`
	Tue int `json:"tue"`
	Wed int `json:"wed"`
	Thu int `json:"thu"`
	Fri int `json:"fri"`
	Sat int `json:"sat"`
	Sun int `json:"sun"`
}

// Weekday returns the configured minutes for a weekday, ignoring the weekend
// toggle.
func (t DailyTargets) Weekday(d time.Weekday) int {
	switch d {
	case time.Monday:
		return t.Mon
	case time.Tuesday:
		return t.Tue
	case time.Wednesday:
		return t.Wed
	case time.Thursday:
		return t.Thu
	case time.Friday:
		return t.Fri
	case time.Saturday:
		return t.Sat
	case time.Sunday:
		return t.Sun
	}
	return 0
}

// Checkpoint anchors the balance computation: everything before Date is folded
// into BalanceMinutes and the daily walk starts at Date.
type Checkpoint struct {
	Date           string `json:"date"`
	BalanceMinutes int    `json:"balanceMinutes"`
}

// Settings is the per-user singleton configuration. UpdatedAt is an RFC3339
// instant used for last-writer-wins conflict resolution against the remote
// copy; it must advance on every local mutation before a sync is attempted.
type Settings struct {
	ThemeID             string       `json:"themeId"`
	Notifications       bool         `json:"notifications"`
	LunchAlert          bool         `json:"lunchAlert"`
	OvertimeAlert       bool         `json:"overtimeAlert"`
	AlarmsEnabled       bool         `json:"alarmsEnabled"`
	Prefer24h           bool         `json:"prefer24h"`
	WeekStartsOnMonday  bool         `json:"weekStartsOnMonday"`
	WeeklyTargetMinutes int          `json:"weeklyTargetMinutes"`
	DailyTargets        DailyTargets `json:"dailyTargets"`
	WeekendEnabled      bool         `json:"weekendEnabled"`
	JourneyConfigured   bool         `json:"journeyConfigured"`
	UpdatedAt           string       `json:"updatedAt,omitempty"`
	Checkpoint          *Checkpoint  `json:"checkpoint,omitempty"`
}

// SettingsRecord is a settings document paired with its remote write instant,
// the comparand for last-writer-wins conflict resolution.
type SettingsRecord struct {
	Settings  Settings
	UpdatedAt time.Time
}

// PendingOp is a queued punch mutation awaiting remote delivery. Insert and
// update carry the full punch; delete carries only the id.
type PendingOp struct {
	UserID string `json:"userId"`
	Type   OpType `json:"type"`
	Punch  *Punch `json:"punch,omitempty"`
	ID     string `json:"id,omitempty"`
}

// TargetID returns the punch id the operation refers to.
func (op PendingOp) TargetID() string {
	if op.Punch != nil {
		return op.Punch.ID
	}
	return op.ID
}

// PendingAdjustmentOp mirrors PendingOp for adjustments.
type PendingAdjustmentOp struct {
	UserID     string      `json:"userId"`
	Type       OpType      `json:"type"`
	Adjustment *Adjustment `json:"adjustment,omitempty"`
	ID         string      `json:"id,omitempty"`
}

func (op PendingAdjustmentOp) TargetID() string {
	if op.Adjustment != nil {
		return op.Adjustment.ID
	}
	return op.ID
}

// User is an authenticated account. The id is a UUID so punch rows can be
// scoped by (user_id, id) with client-generated ids on both sides.
type User struct {
	ID           string
	Name         string
	Email        string
	Role         UserRole
	IsGoogle     bool
	PasswordHash *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewID generates a client-stable unique identifier.
func NewID() string {
	return uuid.NewString()
}
