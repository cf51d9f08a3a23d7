// Package backup serializes one scope's full working set to a portable JSON
// document and restores it. Restore is all-or-nothing: the payload is fully
// validated before any state changes.
package backup

import (
	"encoding/json"
	"fmt"
	"time"

	"timebank-backend/internal/domain"
)

// Version is the payload schema version. Importers reject anything else.
const Version = 1

// Payload is the exported document.
type Payload struct {
	Version     int                 `json:"version"`
	ExportedAt  time.Time           `json:"exportedAt"`
	Scope       string              `json:"scope"`
	Punches     []domain.Punch      `json:"punches"`
	Adjustments []domain.Adjustment `json:"adjustments"`
	Settings    domain.Settings     `json:"settings"`
}

// Create builds a payload from the current working set.
func Create(scope string, punches []domain.Punch, adjustments []domain.Adjustment, settings domain.Settings, now time.Time) Payload {
	return Payload{
		Version:     Version,
		ExportedAt:  now.UTC(),
		Scope:       scope,
		Punches:     domain.SortPunchesDesc(punches),
		Adjustments: domain.SortAdjustmentsDesc(adjustments),
		Settings:    settings,
	}
}

// Parse decodes and validates a payload. The first problem found is returned
// and nothing is accepted.
func Parse(data []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Payload{}, fmt.Errorf("malformed backup: %w", err)
	}
	if err := p.validate(); err != nil {
		return Payload{}, err
	}
	return p, nil
}

func (p Payload) validate() error {
	if p.Version != Version {
		return fmt.Errorf("unsupported backup version %d", p.Version)
	}
	seen := make(map[string]struct{}, len(p.Punches))
	for i, punch := range p.Punches {
		if punch.ID == "" {
			return fmt.Errorf("punch %d: missing id", i)
		}
		if _, dup := seen[punch.ID]; dup {
			return fmt.Errorf("punch %d: duplicate id %q", i, punch.ID)
		}
		seen[punch.ID] = struct{}{}
		if punch.At.IsZero() {
			return fmt.Errorf("punch %s: missing timestamp", punch.ID)
		}
		if !domain.ValidPunchKind(punch.Kind) {
			return fmt.Errorf("punch %s: unknown kind %q", punch.ID, punch.Kind)
		}
	}
	seenAdj := make(map[string]struct{}, len(p.Adjustments))
	for i, adj := range p.Adjustments {
		if adj.ID == "" {
			return fmt.Errorf("adjustment %d: missing id", i)
		}
		if _, dup := seenAdj[adj.ID]; dup {
			return fmt.Errorf("adjustment %d: duplicate id %q", i, adj.ID)
		}
		seenAdj[adj.ID] = struct{}{}
		if adj.At.IsZero() {
			return fmt.Errorf("adjustment %s: missing date", adj.ID)
		}
		if !domain.ValidAdjustmentKind(adj.Kind) {
			return fmt.Errorf("adjustment %s: unknown kind %q", adj.ID, adj.Kind)
		}
		if adj.Minutes < 0 {
			return fmt.Errorf("adjustment %s: negative minutes", adj.ID)
		}
	}
	return nil
}

// Encode renders the payload as indented JSON, the on-disk export format.
func Encode(p Payload) ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}
