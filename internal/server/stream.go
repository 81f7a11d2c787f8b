package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tunedeck/tunedeck/internal/queue/broker"
	"go.uber.org/zap"
)

// sseSubscriber bridges broker fan-out onto one SSE connection. Send is
// non-blocking: a full buffer means the client is not draining, and the
// update is dropped rather than stalling the writer.
type sseSubscriber struct {
	id      string
	updates chan broker.Update
}

func newSSESubscriber(id string) *sseSubscriber {
	return &sseSubscriber{
		id:      id,
		updates: make(chan broker.Update, 16),
	}
}

func (s *sseSubscriber) ID() string { return s.id }

func (s *sseSubscriber) Send(update broker.Update) error {
	select {
	case s.updates <- update:
		return nil
	default:
		return errors.New("subscriber buffer full")
	}
}

// StreamQueue joins the caller to a tenant's live update stream over SSE.
// Updates published before the join are not replayed; clients fetch
// /api/queue/snapshot right after connecting to cover that window. The
// subscription ends when the client disconnects.
func (s *Server) StreamQueue(c *gin.Context) {
	tenantID := strings.TrimSpace(c.Query("tenantId"))
	if tenantID == "" {
		AbortWithError(c, newValidationError("tenantId", "required", "tenantId is required"))
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		AbortWithError(c, errors.New("streaming unsupported"))
		return
	}

	sub := newSSESubscriber(s.genID.Generate().String())
	s.broker.Join(tenantID, sub)
	defer s.broker.Leave(tenantID, sub)

	header := c.Writer.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(http.StatusOK)

	// Confirm the subscription before any update arrives.
	if _, err := c.Writer.WriteString(": joined\n\n"); err != nil {
		return
	}
	flusher.Flush()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case update := <-sub.updates:
			payload, err := json.Marshal(update.Snapshot)
			if err != nil {
				s.log.Warn("failed to encode update",
					zap.String("tenant_id", tenantID),
					zap.Error(err),
				)
				continue
			}
			if _, err := c.Writer.WriteString("event: update\ndata: " + string(payload) + "\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
