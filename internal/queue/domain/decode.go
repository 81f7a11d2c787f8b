package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// rawSnapshot keeps the loosely-typed fields as raw JSON so a bot pushing
// a sloppy payload is coerced once here instead of defensively re-checked
// by every consumer downstream.
type rawSnapshot struct {
	TenantID   string          `json:"tenantId"`
	NowPlaying json.RawMessage `json:"nowPlaying"`
	Queue      json.RawMessage `json:"queue"`
	Paused     json.RawMessage `json:"paused"`
	Volume     json.RawMessage `json:"volume"`
	UpdatedAt  json.RawMessage `json:"updatedAt"`
	Reason     json.RawMessage `json:"reason"`
}

// DecodeSnapshot parses an untrusted ingestion body into a QueueSnapshot.
//
// Coercion rules: a missing or non-array queue becomes an empty slice, a
// non-boolean paused becomes false, a non-numeric volume is dropped, and a
// missing or unparsable updatedAt defaults to now. Only a malformed JSON
// document or a missing tenantId is an error.
func DecodeSnapshot(body []byte, now time.Time) (QueueSnapshot, error) {
	var raw rawSnapshot
	if err := json.Unmarshal(body, &raw); err != nil {
		return QueueSnapshot{}, ErrInvalidPayload
	}

	tenantID := strings.TrimSpace(raw.TenantID)
	if tenantID == "" {
		return QueueSnapshot{}, ErrInvalidTenant
	}

	snapshot := QueueSnapshot{
		TenantID:  tenantID,
		UpdatedAt: coerceTimestamp(raw.UpdatedAt, now),
		Queue:     coerceQueue(raw.Queue),
		Paused:    coerceBool(raw.Paused),
		Volume:    coerceNumber(raw.Volume),
		Reason:    coerceString(raw.Reason),
	}

	if len(raw.NowPlaying) > 0 && !isJSONNull(raw.NowPlaying) {
		var track TrackSummary
		if err := json.Unmarshal(raw.NowPlaying, &track); err == nil {
			snapshot.NowPlaying = &track
		}
	}

	return snapshot, nil
}

func coerceQueue(raw json.RawMessage) []TrackSummary {
	if len(raw) == 0 || isJSONNull(raw) {
		return []TrackSummary{}
	}
	var tracks []TrackSummary
	if err := json.Unmarshal(raw, &tracks); err != nil || tracks == nil {
		return []TrackSummary{}
	}
	return tracks
}

func coerceBool(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var value bool
	if err := json.Unmarshal(raw, &value); err != nil {
		return false
	}
	return value
}

func coerceNumber(raw json.RawMessage) *float64 {
	if len(raw) == 0 || isJSONNull(raw) {
		return nil
	}
	var value float64
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil
	}
	return &value
}

func coerceString(raw json.RawMessage) string {
	if len(raw) == 0 || isJSONNull(raw) {
		return ""
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return ""
	}
	return strings.TrimSpace(value)
}

func coerceTimestamp(raw json.RawMessage, now time.Time) time.Time {
	value := coerceString(raw)
	if value == "" {
		return now
	}
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		if parsed, err = time.Parse(time.RFC3339, value); err != nil {
			return now
		}
	}
	return parsed.UTC()
}

func isJSONNull(raw json.RawMessage) bool {
	return string(raw) == "null"
}
