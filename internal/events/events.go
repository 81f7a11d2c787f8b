package events

// Queue event types recorded for the dashboard activity feed.
const (
	EventSnapshotIngested   = "queue.snapshot_ingested"
	EventSnapshotSuperseded = "queue.snapshot_superseded"
)

// SnapshotIngestedPayload captures the minimal data needed to audit one
// snapshot push.
type SnapshotIngestedPayload struct {
	TenantID   string `json:"tenant_id"`
	Tier       string `json:"tier"`
	Reason     string `json:"reason,omitempty"`
	QueueSize  int    `json:"queue_size"`
	NowPlaying string `json:"now_playing,omitempty"`
	UpdatedAt  string `json:"updated_at"`
}

// ToMap converts a payload into an outbox-friendly map.
func (p SnapshotIngestedPayload) ToMap() map[string]any {
	payload := map[string]any{
		"tenant_id":  p.TenantID,
		"tier":       p.Tier,
		"queue_size": p.QueueSize,
		"updated_at": p.UpdatedAt,
	}
	if p.Reason != "" {
		payload["reason"] = p.Reason
	}
	if p.NowPlaying != "" {
		payload["now_playing"] = p.NowPlaying
	}
	return payload
}
