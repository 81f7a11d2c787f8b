package domain

import "errors"

var (
	ErrInvalidTenant    = errors.New("invalid_tenant")
	ErrInvalidPayload   = errors.New("invalid_payload")
	ErrSnapshotNotFound = errors.New("snapshot_not_found")
)
