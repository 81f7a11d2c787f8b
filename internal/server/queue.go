package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// GetQueueSnapshot serves the latest non-expired snapshot for polling
// clients and for first paint before the stream connects. An expired
// record is indistinguishable from one that was never written.
func (s *Server) GetQueueSnapshot(c *gin.Context) {
	tenantID := strings.TrimSpace(c.Query("tenantId"))
	if tenantID == "" {
		AbortWithError(c, newValidationError("tenantId", "required", "tenantId is required"))
		return
	}

	snapshot, err := s.queueSvc.Latest(c.Request.Context(), tenantID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}
