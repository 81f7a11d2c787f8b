package domain

import (
	"time"

	plandomain "github.com/tunedeck/tunedeck/internal/plan/domain"
)

// TrackSummary describes one track as shown on the dashboard.
type TrackSummary struct {
	Title      string  `json:"title"`
	Author     string  `json:"author"`
	DurationMS int64   `json:"duration"`
	URI        *string `json:"uri,omitempty"`
	ArtworkURL *string `json:"artworkUrl,omitempty"`
	Source     *string `json:"source,omitempty"`
	Requester  *string `json:"requester,omitempty"`
}

// QueueSnapshot is the complete playback state for one tenant (guild) at
// one instant. UpdatedAt is supplied by the writer and is the ordering key
// for conflict resolution; it is not assumed monotonic with arrival order.
type QueueSnapshot struct {
	TenantID   string         `json:"tenantId"`
	UpdatedAt  time.Time      `json:"updatedAt"`
	NowPlaying *TrackSummary  `json:"nowPlaying,omitempty"`
	Queue      []TrackSummary `json:"queue"`
	Paused     bool           `json:"paused"`
	Volume     *float64       `json:"volume,omitempty"`
	Reason     string         `json:"reason,omitempty"`
}

// StoredRecord wraps a snapshot with the tier observed at write time and
// the absolute expiry instant derived from that tier's retention policy.
type StoredRecord struct {
	Snapshot  QueueSnapshot
	Tier      plandomain.Tier
	ExpiresAt time.Time
}

// Expired reports whether the record is past its retention deadline.
func (r StoredRecord) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}
