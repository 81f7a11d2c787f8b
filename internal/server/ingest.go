package server

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	queuedomain "github.com/tunedeck/tunedeck/internal/queue/domain"
	"github.com/tunedeck/tunedeck/internal/requestcontext"
)

const maxSnapshotBody = 1 << 20 // 1 MiB

// ReceiveQueueSnapshot accepts a queue snapshot push from a bot process.
//
// The response is 200 even when the write was superseded by a newer
// snapshot; writers that care can inspect the accepted flag.
func (s *Server) ReceiveQueueSnapshot(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxSnapshotBody))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	snapshot, err := queuedomain.DecodeSnapshot(body, time.Now().UTC())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	// A per-tenant token only authorizes its own tenant.
	ctx := c.Request.Context()
	if bound := requestcontext.TenantIDFromContext(ctx); bound != "" && bound != snapshot.TenantID {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	if !s.ingestLimiter.Allow(snapshot.TenantID) {
		AbortWithError(c, ErrRateLimited)
		return
	}

	accepted, err := s.queueSvc.Ingest(ctx, snapshot)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "accepted": accepted})
}
