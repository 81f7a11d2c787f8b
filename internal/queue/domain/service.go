package domain

import "context"

// Service is the ingestion and read surface over the snapshot store.
type Service interface {
	// Ingest stores a validated snapshot and fans it out. The returned
	// flag is false when the write was superseded by a newer snapshot;
	// that is still a success from the writer's point of view.
	Ingest(ctx context.Context, snapshot QueueSnapshot) (accepted bool, err error)

	// Latest returns the newest non-expired snapshot for a tenant, or
	// ErrSnapshotNotFound when none exists.
	Latest(ctx context.Context, tenantID string) (QueueSnapshot, error)
}
