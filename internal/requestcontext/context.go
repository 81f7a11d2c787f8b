package requestcontext

import "context"

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	writerKey    contextKey = "writer"
	tenantIDKey  contextKey = "tenant_id"
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	if ctx == nil || requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(requestIDKey).(string)
	return value
}

// WithWriter records how the ingest request was authorized: "shared_secret",
// "tenant_token", or "loopback".
func WithWriter(ctx context.Context, writer string) context.Context {
	if ctx == nil || writer == "" {
		return ctx
	}
	return context.WithValue(ctx, writerKey, writer)
}

func WriterFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(writerKey).(string)
	return value
}

// WithTenantID binds a tenant to the request when the credential was a
// per-tenant token.
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	if ctx == nil || tenantID == "" {
		return ctx
	}
	return context.WithValue(ctx, tenantIDKey, tenantID)
}

func TenantIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(tenantIDKey).(string)
	return value
}
