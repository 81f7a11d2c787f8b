package domain

import "errors"

var (
	ErrInvalidTenant        = errors.New("invalid_tenant")
	ErrSubscriptionNotFound = errors.New("subscription_not_found")
)
