package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// IngestToken authorizes one bot process to push snapshots for one tenant.
// Only the hash is stored; the plaintext token is shown once at creation.
type IngestToken struct {
	ID        snowflake.ID `gorm:"column:id;primaryKey"`
	TenantID  string       `gorm:"column:tenant_id"`
	TokenHash string       `gorm:"column:token_hash"`
	IsActive  bool         `gorm:"column:is_active"`
	ExpiresAt *time.Time   `gorm:"column:expires_at"`
	CreatedAt time.Time    `gorm:"column:created_at"`
}

func (IngestToken) TableName() string { return "ingest_tokens" }

// HashToken derives the stored form of a bearer token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(token)))
	return hex.EncodeToString(sum[:])
}
