package server

import (
	"crypto/subtle"
	"net"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	apikeydomain "github.com/tunedeck/tunedeck/internal/apikey/domain"
	"github.com/tunedeck/tunedeck/internal/requestcontext"
)

const (
	writerSharedSecret = "shared_secret"
	writerTenantToken  = "tenant_token"
	writerLoopback     = "loopback"
)

// IngestAuthRequired authenticates a bot writer. Accepted credentials, in
// order: a request from the loopback interface when the allowance is
// configured (co-located bot processes push without a token; this is a
// deliberate relaxation), the shared ingest secret, or a per-tenant token
// from the ingest_tokens table. Token-authenticated requests are bound to
// their tenant; the handler rejects bodies naming a different one.
func (s *Server) IngestAuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.cfg.Ingest.AllowLoopback && isLoopbackRequest(c) {
			ctx := requestcontext.WithWriter(c.Request.Context(), writerLoopback)
			c.Request = c.Request.WithContext(ctx)
			c.Next()
			return
		}

		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		if secret := s.cfg.Ingest.SharedSecret; secret != "" &&
			subtle.ConstantTimeCompare([]byte(token), []byte(secret)) == 1 {
			ctx := requestcontext.WithWriter(c.Request.Context(), writerSharedSecret)
			c.Request = c.Request.WithContext(ctx)
			c.Next()
			return
		}

		tenantID, ok := s.lookupTenantToken(c, token)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := requestcontext.WithWriter(c.Request.Context(), writerTenantToken)
		ctx = requestcontext.WithTenantID(ctx, tenantID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func (s *Server) lookupTenantToken(c *gin.Context, token string) (string, bool) {
	if s.db == nil {
		return "", false
	}

	hash := apikeydomain.HashToken(token)
	now := time.Now().UTC()

	var record struct {
		ID        snowflake.ID `gorm:"column:id"`
		TenantID  string       `gorm:"column:tenant_id"`
		TokenHash string       `gorm:"column:token_hash"`
	}
	err := s.db.WithContext(c.Request.Context()).Raw(
		`SELECT id, tenant_id, token_hash
		 FROM ingest_tokens
		 WHERE token_hash = ?
		   AND is_active = true
		   AND (expires_at IS NULL OR expires_at > ?)
		 LIMIT 1`,
		hash,
		now,
	).Scan(&record).Error
	if err != nil {
		return "", false
	}

	if record.ID == 0 || subtle.ConstantTimeCompare([]byte(record.TokenHash), []byte(hash)) != 1 {
		return "", false
	}
	return record.TenantID, true
}

func bearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", false
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return parts[1], true
}

func isLoopbackRequest(c *gin.Context) bool {
	host := c.Request.RemoteAddr
	if addr, _, err := net.SplitHostPort(host); err == nil {
		host = addr
	}
	ip := net.ParseIP(strings.TrimSpace(host))
	return ip != nil && ip.IsLoopback()
}
