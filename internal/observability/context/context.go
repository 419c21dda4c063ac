package context

import "context"

type ctxKey int

const (
	requestIDKey ctxKey = iota
	userIDKey
	roleKey
	ipAddressKey
	userAgentKey
	triggerKey
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	return stringValue(ctx, requestIDKey)
}

// WithUser stores the authenticated caller.
func WithUser(ctx context.Context, userID, role string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, roleKey, role)
}

func UserFromContext(ctx context.Context) (userID string, role string) {
	return stringValue(ctx, userIDKey), stringValue(ctx, roleKey)
}

func WithClient(ctx context.Context, ipAddress, userAgent string) context.Context {
	ctx = context.WithValue(ctx, ipAddressKey, ipAddress)
	return context.WithValue(ctx, userAgentKey, userAgent)
}

func ClientFromContext(ctx context.Context) (ipAddress string, userAgent string) {
	return stringValue(ctx, ipAddressKey), stringValue(ctx, userAgentKey)
}

// WithTrigger names what caused a state change, e.g. "read" or "sweep".
func WithTrigger(ctx context.Context, trigger string) context.Context {
	return context.WithValue(ctx, triggerKey, trigger)
}

func TriggerFromContext(ctx context.Context) string {
	return stringValue(ctx, triggerKey)
}

func stringValue(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}
