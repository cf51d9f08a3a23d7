package sync

// Status is the transient sync state surfaced to clients. It is never
// persisted.
type Status int32

const (
	StatusIdle Status = iota
	StatusSyncing
	StatusError
	StatusSuccess
)

func (s Status) String() string {
	switch s {
	case StatusSyncing:
		return "syncing"
	case StatusError:
		return "error"
	case StatusSuccess:
		return "success"
	default:
		return "idle"
	}
}
