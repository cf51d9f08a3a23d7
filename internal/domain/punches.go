package domain

import "slices"

// SortPunchesAsc returns a copy sorted oldest first. The sort is stable so
// punches sharing a timestamp keep their relative order.
func SortPunchesAsc(punches []Punch) []Punch {
	out := slices.Clone(punches)
	slices.SortStableFunc(out, func(a, b Punch) int {
		return a.At.Compare(b.At)
	})
	return out
}

// SortPunchesDesc returns a copy sorted newest first, the display order.
func SortPunchesDesc(punches []Punch) []Punch {
	out := slices.Clone(punches)
	slices.SortStableFunc(out, func(a, b Punch) int {
		return b.At.Compare(a.At)
	})
	return out
}

// SortAdjustmentsDesc returns a copy sorted newest first.
func SortAdjustmentsDesc(adjustments []Adjustment) []Adjustment {
	out := slices.Clone(adjustments)
	slices.SortStableFunc(out, func(a, b Adjustment) int {
		return b.At.Compare(a.At)
	})
	return out
}

// PunchesEqual compares the user-visible fields, ignoring the id.
func PunchesEqual(a, b Punch) bool {
	return a.At.Equal(b.At) && a.Kind == b.Kind && a.Note == b.Note
}

// PunchDiff is the result of comparing a current punch set against an edited one.
type PunchDiff struct {
	ToAdd    []Punch
	ToUpdate []Punch
	ToDelete []string
}

// DiffPunches computes the mutations needed to turn current into next, keyed by
// punch id. Used by bulk day edits so only changed rows travel to the remote.
func DiffPunches(current, next []Punch) PunchDiff {
	currentMap := make(map[string]Punch, len(current))
	for _, p := range current {
		currentMap[p.ID] = p
	}
	nextMap := make(map[string]Punch, len(next))
	for _, p := range next {
		nextMap[p.ID] = p
	}

	var diff PunchDiff
	for _, p := range next {
		cur, ok := currentMap[p.ID]
		if !ok {
			diff.ToAdd = append(diff.ToAdd, p)
			continue
		}
		if !PunchesEqual(cur, p) {
			diff.ToUpdate = append(diff.ToUpdate, p)
		}
	}
	for _, p := range current {
		if _, ok := nextMap[p.ID]; !ok {
			diff.ToDelete = append(diff.ToDelete, p.ID)
		}
	}
	return diff
}
