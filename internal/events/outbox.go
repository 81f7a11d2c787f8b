package events

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Event describes a queue event to store in the outbox.
type Event struct {
	TenantID string
	Type     string
	Payload  map[string]any
}

// Outbox inserts queue events into the queue_events table. It feeds the
// dashboard activity feed; failures here must never fail an ingest, so
// callers log and continue.
type Outbox struct {
	db    *gorm.DB
	genID *snowflake.Node
}

func NewOutbox(db *gorm.DB, genID *snowflake.Node) *Outbox {
	return &Outbox{db: db, genID: genID}
}

// Publish stores an event using the default database connection.
func (o *Outbox) Publish(ctx context.Context, event Event) error {
	if o == nil || o.db == nil || o.genID == nil {
		return errors.New("outbox_unavailable")
	}
	tenantID := strings.TrimSpace(event.TenantID)
	if tenantID == "" {
		return errors.New("invalid_tenant")
	}
	name := strings.TrimSpace(event.Type)
	if name == "" {
		return errors.New("missing_event_type")
	}

	payload := datatypes.JSONMap{}
	for key, value := range event.Payload {
		if strings.TrimSpace(key) == "" {
			continue
		}
		payload[key] = value
	}

	return o.db.WithContext(ctx).Exec(
		`INSERT INTO queue_events (id, tenant_id, event_type, payload, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		o.genID.Generate(),
		tenantID,
		name,
		payload,
		time.Now().UTC(),
	).Error
}
