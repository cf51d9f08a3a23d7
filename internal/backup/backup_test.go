package backup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timebank-backend/internal/domain"
)

func samplePayload() Payload {
	now := time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)
	punches := []domain.Punch{
		{ID: "p1", At: now.Add(-2 * time.Hour), Kind: domain.PunchClockIn},
		{ID: "p2", At: now.Add(-time.Hour), Kind: domain.PunchClockOut},
	}
	adjustments := []domain.Adjustment{
		{ID: "a1", At: now.Add(-24 * time.Hour), Kind: domain.AdjustmentCredit, Minutes: 30},
	}
	return Create("guest", punches, adjustments, domain.DefaultSettings(), now)
}

func TestRoundTrip(t *testing.T) {
	payload := samplePayload()
	data, err := Encode(payload)
	require.NoError(t, err)

	parsed, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, Version, parsed.Version)
	assert.Equal(t, "guest", parsed.Scope)
	require.Len(t, parsed.Punches, 2)
	require.Len(t, parsed.Adjustments, 1)
	assert.Equal(t, payload.Punches[0].ID, parsed.Punches[0].ID)
}

func TestParseRejectsMalformedJSON(t *testing.T) {
	_, err := Parse([]byte(`{broken`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed backup")
}

func TestParseRejectsWrongVersion(t *testing.T) {
	payload := samplePayload()
	payload.Version = 2
	data, err := Encode(payload)
	require.NoError(t, err)

	_, err = Parse(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported backup version")
}

func TestParseRejectsUnknownPunchKind(t *testing.T) {
	payload := samplePayload()
	payload.Punches[0].Kind = "TELEPORT"
	data, err := Encode(payload)
	require.NoError(t, err)

	_, err = Parse(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown kind")
}

func TestParseRejectsMissingTimestamp(t *testing.T) {
	payload := samplePayload()
	payload.Punches[1].At = time.Time{}
	data, err := Encode(payload)
	require.NoError(t, err)

	_, err = Parse(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing timestamp")
}

func TestParseRejectsDuplicateIDs(t *testing.T) {
	payload := samplePayload()
	payload.Punches[1].ID = payload.Punches[0].ID
	data, err := Encode(payload)
	require.NoError(t, err)

	_, err = Parse(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate id")
}

func TestParseRejectsNegativeMinutes(t *testing.T) {
	payload := samplePayload()
	payload.Adjustments[0].Minutes = -5
	data, err := Encode(payload)
	require.NoError(t, err)

	_, err = Parse(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "negative minutes")
}
